// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package healthcheck

import (
	"fmt"
	"strings"

	"github.com/choria-io/platcheck/model"
)

// maxProblems limits how many problem checks are named in the output line
const maxProblems = 5

// NagiosStatus determines the plugin status of a finished run
func NagiosStatus(summary *model.SessionSummary) model.HealthCheckStatus {
	switch {
	case summary == nil || summary.TotalChecks == 0:
		return model.HealthCheckUnknown
	case summary.FailedChecks > 0:
		return model.HealthCheckCritical
	case summary.ErroredChecks > 0:
		return model.HealthCheckUnknown
	case summary.SkippedChecks > 0:
		return model.HealthCheckWarning
	default:
		return model.HealthCheckOK
	}
}

// NagiosResult renders a finished run as a nagios plugin line with performance data, the status is the plugin exit code
func NagiosResult(summary *model.SessionSummary) *model.HealthCheckResult {
	status := NagiosStatus(summary)
	if summary == nil {
		return &model.HealthCheckResult{Status: status, Output: fmt.Sprintf("%s: no checks were run", status)}
	}

	var line string
	switch status {
	case model.HealthCheckOK:
		line = fmt.Sprintf("%d checks passed", summary.PassedChecks)
	case model.HealthCheckWarning:
		line = fmt.Sprintf("%d of %d checks skipped", summary.SkippedChecks, summary.TotalChecks)
	default:
		if summary.TotalChecks == 0 {
			line = "no checks were run"
		} else {
			line = fmt.Sprintf("%d failed and %d errored of %d checks", summary.FailedChecks, summary.ErroredChecks, summary.TotalChecks)
		}
	}

	if len(summary.Problems) > 0 {
		problems := summary.Problems
		more := ""
		if len(problems) > maxProblems {
			more = fmt.Sprintf(" and %d more", len(problems)-maxProblems)
			problems = problems[:maxProblems]
		}

		line = fmt.Sprintf("%s: %s%s", line, strings.Join(problems, ", "), more)
	}

	perf := fmt.Sprintf("checks=%d passed=%d failed=%d skipped=%d errors=%d trials=%d runtime=%.3fs",
		summary.TotalChecks, summary.PassedChecks, summary.FailedChecks, summary.SkippedChecks, summary.ErroredChecks, summary.TotalTrials, summary.TotalDuration.Seconds())

	return &model.HealthCheckResult{
		Status: status,
		Output: fmt.Sprintf("%s: %s |%s", status, line, perf),
	}
}
