// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/choria-io/fisk"

	"github.com/choria-io/platcheck/healthcheck"
	"github.com/choria-io/platcheck/manager"
	"github.com/choria-io/platcheck/metrics"
	"github.com/choria-io/platcheck/model"
)

type runCommand struct {
	checks      []string
	trials      int
	seed        int64
	session     string
	jsonFormat  bool
	nagios      bool
	monitorPort int
	envFile     string
	natsContext string
	disruption  bool
}

func registerRunCommand(app *fisk.Application) {
	cmd := &runCommand{}

	run := app.Command("run", "Verifies the platform").Default().Action(cmd.runAction)
	run.Flag("check", "Limit the run to these checkers").StringsVar(&cmd.checks)
	run.Flag("trials", "Generated inputs evaluated per property").PlaceHolder("N").IntVar(&cmd.trials)
	run.Flag("seed", "Seed for reproducible generated inputs").PlaceHolder("N").Int64Var(&cmd.seed)
	run.Flag("session", "Store the run in a directory or, prefixed with sqlite:, a database").Envar("PLATCHECK_SESSION").StringVar(&cmd.session)
	run.Flag("json", "Produce JSON output").UnNegatableBoolVar(&cmd.jsonFormat)
	run.Flag("nagios", "Produce Nagios plugin output and exit codes").UnNegatableBoolVar(&cmd.nagios)
	run.Flag("monitor-port", "Port to expose Prometheus metrics on").PlaceHolder("PORT").IntVar(&cmd.monitorPort)
	run.Flag("env-file", "Read additional environment variables from a file").ExistingFileVar(&cmd.envFile)
	run.Flag("nats-context", "Publish check events using this NATS context").StringVar(&cmd.natsContext)
	run.Flag("disrupt", "Kill services to observe their recovery, never use against a system serving users").UnNegatableBoolVar(&cmd.disruption)
}

type runReport struct {
	Summary *model.SessionSummary `json:"summary"`
	Results []model.CheckEvent    `json:"results"`
}

func (c *runCommand) runAction(_ *fisk.ParseContext) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if c.trials > 0 {
		cfg.Trials = c.trials
	}
	if c.seed != 0 {
		cfg.Seed = c.seed
	}
	if c.monitorPort > 0 {
		cfg.MonitorPort = c.monitorPort
	}
	if c.disruption {
		cfg.Resilience.Disruption = true
	}

	err = cfg.Validate()
	if err != nil {
		return err
	}

	var opts []manager.Option
	if c.session != "" {
		opts = append(opts, manager.WithSession(c.session))
	}
	if c.natsContext != "" {
		opts = append(opts, manager.WithNatsContext(c.natsContext))
	}

	mgr, err := newManager(cfg, c.envFile, opts...)
	if err != nil {
		return err
	}
	defer mgr.Close()

	metrics.RegisterMetrics()
	if cfg.MonitorPort > 0 {
		log, err := mgr.Logger("component", "monitor")
		if err != nil {
			return err
		}
		metrics.ListenAndServe(cfg.MonitorPort, log)
	}

	summary, err := mgr.RunChecks(ctx, c.checks...)
	if err != nil {
		return err
	}

	switch {
	case c.nagios:
		res := healthcheck.NagiosResult(summary)
		fmt.Println(res.Output)
		mgr.Close()
		os.Exit(int(res.Status))

	case c.jsonFormat:
		var results []model.CheckEvent
		events, err := mgr.Session().AllEvents()
		if err != nil {
			return err
		}
		for _, e := range events {
			if ce, ok := e.(*model.CheckEvent); ok {
				results = append(results, *ce)
			}
		}

		err = printJSON(runReport{Summary: summary, Results: results})
		if err != nil {
			return err
		}

	default:
		printSummary(summary)
	}

	if !summary.Succeeded() {
		mgr.Close()
		os.Exit(1)
	}

	return nil
}

func printSummary(summary *model.SessionSummary) {
	fmt.Println()
	fmt.Println("Verification Summary")
	fmt.Println()
	if summary.TotalDuration > 0 {
		fmt.Printf("       Run Time: %v\n", summary.TotalDuration.Round(time.Millisecond))
	}
	fmt.Printf("       Checkers: %d\n", summary.Checkers)
	fmt.Printf("   Total Checks: %d\n", summary.TotalChecks)
	fmt.Printf("  Passed Checks: %d\n", summary.PassedChecks)
	fmt.Printf("  Failed Checks: %d\n", summary.FailedChecks)
	fmt.Printf(" Skipped Checks: %d\n", summary.SkippedChecks)
	fmt.Printf(" Errored Checks: %d\n", summary.ErroredChecks)
	fmt.Printf("   Total Trials: %d\n", summary.TotalTrials)

	if len(summary.Problems) > 0 {
		fmt.Println()
		fmt.Println("Problems:")
		fmt.Println()
		for _, p := range summary.Problems {
			fmt.Printf("  %s\n", p)
		}
	}
}
