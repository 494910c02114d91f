// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

// HealthCheckStatus is a nagios plugin status
type HealthCheckStatus int

const (
	HealthCheckOK       HealthCheckStatus = 0
	HealthCheckWarning  HealthCheckStatus = 1
	HealthCheckCritical HealthCheckStatus = 2
	HealthCheckUnknown  HealthCheckStatus = 3
)

func (s HealthCheckStatus) String() string {
	switch s {
	case HealthCheckOK:
		return "OK"
	case HealthCheckWarning:
		return "WARNING"
	case HealthCheckCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// HealthCheckResult is the outcome of rendering a run for a monitoring system
type HealthCheckResult struct {
	Status HealthCheckStatus `json:"status" yaml:"status"`
	Output string            `json:"output" yaml:"output"`
}
