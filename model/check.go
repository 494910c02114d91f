// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"fmt"
	"time"
)

// CheckStatus is the outcome of a single check
type CheckStatus string

// FailureKind classifies why a check did not pass
type FailureKind string

const (
	CheckPassed  CheckStatus = "passed"
	CheckFailed  CheckStatus = "failed"
	CheckSkipped CheckStatus = "skipped"
	CheckError   CheckStatus = "error"

	ViolationFailure        FailureKind = "violation"
	MisconfigurationFailure FailureKind = "misconfiguration"
	EnvironmentFailure      FailureKind = "environment"
	GeneratorFailure        FailureKind = "generator"
	InfrastructureFailure   FailureKind = "infrastructure"
)

// Checker verifies one external subsystem and reports one result per check it performs
type Checker interface {
	// TypeName is the registered type of the checker, like secrets or https
	TypeName() string
	// Run performs every check, failing checks are reported in the results and never abort the run
	Run(ctx context.Context) ([]*CheckResult, error)
}

// CheckerFactory creates checkers of a specific type
type CheckerFactory interface {
	TypeName() string
	New(mgr Manager) (Checker, error)
}

// CheckResult is the outcome of a single check performed by a checker
type CheckResult struct {
	Checker        string        `json:"checker" yaml:"checker"`
	Check          string        `json:"check" yaml:"check"`
	Status         CheckStatus   `json:"status" yaml:"status"`
	Kind           FailureKind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Message        string        `json:"message,omitempty" yaml:"message,omitempty"`
	Counterexample string        `json:"counterexample,omitempty" yaml:"counterexample,omitempty"`
	Trials         int           `json:"trials,omitempty" yaml:"trials,omitempty"`
	Shrinks        int           `json:"shrinks,omitempty" yaml:"shrinks,omitempty"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
}

func NewCheckResult(checker string, check string) *CheckResult {
	return &CheckResult{Checker: checker, Check: check}
}

// Pass marks the result passed
func (r *CheckResult) Pass(format string, a ...any) *CheckResult {
	r.Status = CheckPassed
	r.Kind = ""
	r.Message = fmt.Sprintf(format, a...)

	return r
}

// Skip marks the result skipped because an environmental precondition was not met
func (r *CheckResult) Skip(format string, a ...any) *CheckResult {
	r.Status = CheckSkipped
	r.Kind = EnvironmentFailure
	r.Message = fmt.Sprintf(format, a...)

	return r
}

// Fail marks the result failed with kind
func (r *CheckResult) Fail(kind FailureKind, format string, a ...any) *CheckResult {
	r.Status = CheckFailed
	r.Kind = kind
	r.Message = fmt.Sprintf(format, a...)

	return r
}

// FromError sets the status based on the class of err, a nil error passes with msg
func (r *CheckResult) FromError(err error, msg string) *CheckResult {
	if err == nil {
		return r.Pass("%s", msg)
	}

	status, kind := ClassifyError(err)
	r.Status = status
	r.Kind = kind
	r.Message = err.Error()

	return r
}

// Timed records the time since start as the duration of the check
func (r *CheckResult) Timed(start time.Time) *CheckResult {
	r.Duration = time.Since(start)
	return r
}

// IsProblem is true for failed and errored results
func (r *CheckResult) IsProblem() bool {
	return r.Status == CheckFailed || r.Status == CheckError
}

func (r *CheckResult) String() string {
	msg := fmt.Sprintf("%s#%s %s", r.Checker, r.Check, r.Status)
	if r.Kind != "" && r.Status != CheckPassed {
		msg = fmt.Sprintf("%s (%s)", msg, r.Kind)
	}
	if r.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, r.Message)
	}
	if r.Counterexample != "" {
		msg = fmt.Sprintf("%s counterexample=%s", msg, r.Counterexample)
	}

	return msg
}

// ClassifyError maps an error onto the status and failure kind it should be reported as
func ClassifyError(err error) (CheckStatus, FailureKind) {
	switch {
	case err == nil:
		return CheckPassed, ""
	case IsEnvironmental(err):
		return CheckSkipped, EnvironmentFailure
	case IsMisconfiguration(err):
		return CheckFailed, MisconfigurationFailure
	case IsViolation(err):
		return CheckFailed, ViolationFailure
	case isAny(err, []error{ErrExhaustedGenerator}):
		return CheckError, GeneratorFailure
	default:
		return CheckError, InfrastructureFailure
	}
}
