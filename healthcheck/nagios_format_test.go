// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package healthcheck

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/choria-io/platcheck/model"
)

func TestHealthCheck(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "HealthCheck")
}

var _ = Describe("Nagios", func() {
	DescribeTable("NagiosStatus",
		func(summary *model.SessionSummary, expected model.HealthCheckStatus) {
			Expect(NagiosStatus(summary)).To(Equal(expected))
		},
		Entry("no summary", nil, model.HealthCheckUnknown),
		Entry("no checks", &model.SessionSummary{}, model.HealthCheckUnknown),
		Entry("all passed", &model.SessionSummary{TotalChecks: 2, PassedChecks: 2}, model.HealthCheckOK),
		Entry("skipped", &model.SessionSummary{TotalChecks: 2, PassedChecks: 1, SkippedChecks: 1}, model.HealthCheckWarning),
		Entry("errored", &model.SessionSummary{TotalChecks: 2, ErroredChecks: 1, SkippedChecks: 1}, model.HealthCheckUnknown),
		Entry("failed", &model.SessionSummary{TotalChecks: 3, FailedChecks: 1, ErroredChecks: 1}, model.HealthCheckCritical),
	)

	Describe("NagiosResult", func() {
		It("Should report passing runs with performance data", func() {
			res := NagiosResult(&model.SessionSummary{TotalChecks: 3, PassedChecks: 3, TotalTrials: 200, TotalDuration: 1500 * time.Millisecond})
			Expect(res.Status).To(Equal(model.HealthCheckOK))
			Expect(res.Output).To(Equal("OK: 3 checks passed |checks=3 passed=3 failed=0 skipped=0 errors=0 trials=200 runtime=1.500s"))
		})

		It("Should report skipped checks as warnings", func() {
			res := NagiosResult(&model.SessionSummary{TotalChecks: 3, PassedChecks: 2, SkippedChecks: 1})
			Expect(res.Status).To(Equal(model.HealthCheckWarning))
			Expect(res.Output).To(HavePrefix("WARNING: 1 of 3 checks skipped |"))
		})

		It("Should name the problem checks", func() {
			res := NagiosResult(&model.SessionSummary{
				TotalChecks:   9,
				FailedChecks:  6,
				ErroredChecks: 1,
				Problems:      []string{"vcs#commit", "https#hsts", "a#1", "a#2", "a#3", "a#4", "a#5"},
			})

			Expect(res.Status).To(Equal(model.HealthCheckCritical))
			Expect(res.Output).To(HavePrefix("CRITICAL: 6 failed and 1 errored of 9 checks: vcs#commit, https#hsts, a#1, a#2, a#3 and 2 more |"))
		})

		It("Should handle runs without checks", func() {
			Expect(NagiosResult(nil).Output).To(Equal("UNKNOWN: no checks were run"))

			res := NagiosResult(&model.SessionSummary{})
			Expect(res.Status).To(Equal(model.HealthCheckUnknown))
			Expect(res.Output).To(HavePrefix("UNKNOWN: no checks were run |checks=0"))
		})
	})
})
