// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
)

var (
	ErrUnknownChecker   = errors.New("unknown checker type")
	ErrDuplicateChecker = errors.New("checker already registered")

	// violations of a generated property or of observed runtime behavior
	ErrPropertyViolation  = errors.New("property violated")
	ErrRedirectMissing    = errors.New("plaintext request was not redirected to https")
	ErrCertificateInvalid = errors.New("certificate was not accepted")
	ErrHSTSInvalid        = errors.New("strict transport security header is invalid")
	ErrRestartTimeout     = errors.New("service did not recover within the restart window")
	ErrAssertionFailed    = errors.New("operator assertion failed")

	// static misconfiguration of files or policies
	ErrIgnoreRuleMissing          = errors.New("secrets file is not listed in the ignore rules")
	ErrIgnoreNotEffective         = errors.New("secrets file is not ignored by version control")
	ErrTemplateMissing            = errors.New("credential template file is missing")
	ErrTemplateIncomplete         = errors.New("credential template does not document every required variable")
	ErrSecretLeakSuspected        = errors.New("credential template contains a live credential")
	ErrMalformedCredential        = errors.New("credential is malformed")
	ErrHistoricalSecretLeak       = errors.New("secret found in version control history")
	ErrDocumentationIncomplete    = errors.New("secrets documentation is incomplete")
	ErrRestartPolicyMisconfigured = errors.New("restart policy does not recover the service")

	// environmental preconditions that were not met
	ErrEnvironmentUnavailable = errors.New("environment unavailable")
	ErrServiceNotRunning      = errors.New("service is not running")

	ErrExhaustedGenerator = errors.New("generator exhausted")
)

var misconfigurations = []error{
	ErrIgnoreRuleMissing,
	ErrIgnoreNotEffective,
	ErrTemplateMissing,
	ErrTemplateIncomplete,
	ErrSecretLeakSuspected,
	ErrMalformedCredential,
	ErrHistoricalSecretLeak,
	ErrDocumentationIncomplete,
	ErrRestartPolicyMisconfigured,
}

var violations = []error{
	ErrPropertyViolation,
	ErrRedirectMissing,
	ErrCertificateInvalid,
	ErrHSTSInvalid,
	ErrRestartTimeout,
	ErrAssertionFailed,
}

// IsMisconfiguration determines if err reports a static policy or file problem
func IsMisconfiguration(err error) bool {
	return isAny(err, misconfigurations)
}

// IsViolation determines if err reports behavior outside a declared invariant
func IsViolation(err error) bool {
	return isAny(err, violations)
}

// IsEnvironmental determines if err reports an unmet environmental precondition
func IsEnvironmental(err error) bool {
	return errors.Is(err, ErrEnvironmentUnavailable) || errors.Is(err, ErrServiceNotRunning)
}

func isAny(err error, targets []error) bool {
	if err == nil {
		return false
	}

	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}

	return false
}
