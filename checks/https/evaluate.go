// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package https

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/choria-io/platcheck/generators"
	"github.com/choria-io/platcheck/model"
)

// RedirectStatuses are the status codes accepted as a redirect to https
var RedirectStatuses = []int{
	http.StatusMovedPermanently,
	http.StatusFound,
	http.StatusTemporaryRedirect,
	http.StatusPermanentRedirect,
}

// IsRedirectStatus determines if status is one of RedirectStatuses
func IsRedirectStatus(status int) bool {
	return slices.Contains(RedirectStatuses, status)
}

// EvaluateRedirect determines if a response to a plaintext request for target redirected to the same resource over https
func EvaluateRedirect(target generators.Target, status int, location string) error {
	if !IsRedirectStatus(status) {
		return fmt.Errorf("%w: %s returned status %d", model.ErrRedirectMissing, target, status)
	}

	loc, err := url.Parse(location)
	if err != nil {
		return fmt.Errorf("%w: %s redirected to invalid location %q", model.ErrRedirectMissing, target, location)
	}

	if loc.Scheme != "https" || loc.Host == "" {
		return fmt.Errorf("%w: %s redirected to %q which is not an absolute https url", model.ErrRedirectMissing, target, location)
	}

	if loc.Path != target.Path && loc.Path != target.Path+"/" {
		return fmt.Errorf("%w: redirect changed path %q to %q", model.ErrPropertyViolation, target.Path, loc.Path)
	}

	query := strings.TrimPrefix(target.Query, "?")
	if query != "" && loc.RawQuery != query {
		return fmt.Errorf("%w: redirect changed query %q to %q", model.ErrPropertyViolation, query, loc.RawQuery)
	}

	return nil
}

// ParseHSTSMaxAge extracts the max-age directive of a Strict-Transport-Security header, it must be a positive integer
func ParseHSTSMaxAge(header string) (int64, error) {
	for _, directive := range strings.Split(header, ";") {
		name, value, _ := strings.Cut(strings.TrimSpace(directive), "=")
		if !strings.EqualFold(strings.TrimSpace(name), "max-age") {
			continue
		}

		value = strings.Trim(strings.TrimSpace(value), `"`)
		age, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: max-age %q is not a number", model.ErrHSTSInvalid, value)
		}

		if age <= 0 {
			return 0, fmt.Errorf("%w: max-age %d is not positive", model.ErrHSTSInvalid, age)
		}

		return age, nil
	}

	return 0, fmt.Errorf("%w: %q has no max-age directive", model.ErrHSTSInvalid, header)
}
