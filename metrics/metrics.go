// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/choria-io/platcheck/model"
)

var (
	NameSpace = "choria"
	Subsystem = "platcheck"

	// RunTime is a summary of the time taken to run all selected checkers
	RunTime = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "run_duration_seconds"),
		Help: "Time taken to run all selected checkers",
	}, []string{})

	// CheckerRunTime is a summary of the time taken by a single checker
	CheckerRunTime = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "checker_duration_seconds"),
		Help: "Time taken to run a checker",
	}, []string{"checker"})

	// CheckTime is a summary of the time taken by individual checks
	CheckTime = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "check_duration_seconds"),
		Help: "Time taken to perform a check",
	}, []string{"checker", "check"})

	// CheckStatusCount counts check outcomes by status
	CheckStatusCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "check_status_count"),
		Help: "How many checks finished in a certain state",
	}, []string{"checker", "check", "status"})

	// CheckFailureKindCount counts failures by their classification
	CheckFailureKindCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "check_failure_kind_count"),
		Help: "How many checks did not pass by failure kind",
	}, []string{"checker", "kind"})

	// PropertyTrials counts generated inputs evaluated by properties
	PropertyTrials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "property_trials_count"),
		Help: "How many generated inputs were evaluated",
	}, []string{"checker", "check"})

	// PropertyShrinks counts shrink steps taken while minimising counterexamples
	PropertyShrinks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "property_shrinks_count"),
		Help: "How many shrink steps were taken minimising counterexamples",
	}, []string{"checker", "check"})

	// FactGatherTime is a summary of the time taken to gather facts
	FactGatherTime = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "facts_gather_duration_seconds"),
		Help: "Time taken to gather facts",
	}, []string{})

	// EventPublishFailureCount counts check events that could not be published
	EventPublishFailureCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "event_publish_error_count"),
		Help: "How many times publishing a check event failed",
	}, []string{"checker"})
)

// RegisterMetrics registers all collectors with the default registry, safe to call more than once
func RegisterMetrics() {
	for _, c := range []prometheus.Collector{
		RunTime,
		CheckerRunTime,
		CheckTime,
		CheckStatusCount,
		CheckFailureKindCount,
		PropertyTrials,
		PropertyShrinks,
		FactGatherTime,
		EventPublishFailureCount,
	} {
		err := prometheus.Register(c)
		if err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

// ObserveResult updates the check metrics from a finished check
func ObserveResult(r *model.CheckResult) {
	CheckTime.WithLabelValues(r.Checker, r.Check).Observe(r.Duration.Seconds())
	CheckStatusCount.WithLabelValues(r.Checker, r.Check, string(r.Status)).Inc()

	if r.Trials > 0 {
		PropertyTrials.WithLabelValues(r.Checker, r.Check).Add(float64(r.Trials))
	}
	if r.Shrinks > 0 {
		PropertyShrinks.WithLabelValues(r.Checker, r.Check).Add(float64(r.Shrinks))
	}
	if r.Status != model.CheckPassed && r.Kind != "" {
		CheckFailureKindCount.WithLabelValues(r.Checker, string(r.Kind)).Inc()
	}
}

// ListenAndServe starts the monitoring listener in the background when port is positive
func ListenAndServe(port int, log model.Logger) {
	if port <= 0 {
		return
	}

	go func() {
		log.Info("Starting monitoring server", "port", port)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
		if err != nil {
			log.Error("HTTP Listener failed", "error", err)
		}
	}()
}
