// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package property

import (
	"fmt"
	"strings"
	"time"

	"github.com/leanovate/gopter"

	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/generators"
	"github.com/choria-io/platcheck/model"
)

const DefaultMaxDiscardRatio = 5

// Parameters controls how properties are evaluated, trials have no deadline
type Parameters struct {
	Trials          int
	MaxShrinks      int
	Seed            int64
	MaxDiscardRatio float64
}

// DefaultParameters is 100 trials with shrinking enabled
func DefaultParameters() Parameters {
	return Parameters{
		Trials:          config.DefaultTrials,
		MaxShrinks:      config.DefaultMaxShrinks,
		MaxDiscardRatio: DefaultMaxDiscardRatio,
	}
}

// FromConfig creates parameters from the harness configuration
func FromConfig(cfg *config.Config) Parameters {
	p := DefaultParameters()
	if cfg == nil {
		return p
	}

	if cfg.Trials > 0 {
		p.Trials = cfg.Trials
	}
	p.MaxShrinks = cfg.MaxShrinks
	p.Seed = cfg.Seed

	return p
}

// WithTrials returns a copy of p limited to at most n trials
func (p Parameters) WithTrials(n int) Parameters {
	if n > 0 && n < p.Trials {
		p.Trials = n
	}

	return p
}

func (p Parameters) testParameters() *gopter.TestParameters {
	tp := gopter.DefaultTestParametersWithSeed(p.Seed)
	tp.MinSuccessfulTests = p.Trials
	tp.MaxShrinkCount = p.MaxShrinks
	tp.MaxDiscardRatio = p.MaxDiscardRatio
	tp.Workers = 1

	return tp
}

// Verdict converts the outcome of one trial into a property result, failures of a declared invariant falsify the property and any other error aborts it
func Verdict(err error) *gopter.PropResult {
	switch {
	case err == nil:
		return &gopter.PropResult{Status: gopter.PropTrue}
	case model.IsViolation(err) || model.IsMisconfiguration(err):
		return gopter.NewPropResult(false, err.Error())
	default:
		return &gopter.PropResult{Status: gopter.PropError, Error: err}
	}
}

// Check evaluates prop and reports the outcome as the result of checker#check
func Check(params Parameters, checker string, check string, invariant string, prop gopter.Prop) *model.CheckResult {
	start := time.Now()

	if params.Seed == 0 {
		params.Seed = time.Now().UnixNano()
	}

	res := model.NewCheckResult(checker, check)
	defer res.Timed(start)

	tr := prop.Check(params.testParameters())
	res.Trials = tr.Succeeded

	switch tr.Status {
	case gopter.TestPassed, gopter.TestProved:
		return res.Pass("%s held for %d trials", invariant, tr.Succeeded)

	case gopter.TestFailed:
		res.Trials++
		res.Counterexample = formatArgs(tr.Args)
		res.Shrinks = countShrinks(tr.Args)

		return res.Fail(model.ViolationFailure, "%s: %s (seed %d)", invariant, strings.Join(tr.Labels, ", "), params.Seed)

	case gopter.TestExhausted:
		return res.FromError(fmt.Errorf("%w: %d trials passed and %d inputs were discarded (seed %d)", model.ErrExhaustedGenerator, tr.Succeeded, tr.Discarded, params.Seed), "")

	default:
		err := tr.Error
		if err == nil {
			err = fmt.Errorf("property could not be evaluated")
		}

		res.FromError(err, "")
		if res.Status != model.CheckSkipped {
			res.Counterexample = formatArgs(tr.Args)
		}

		return res
	}
}

func formatArgs(args gopter.PropArgs) string {
	var parts []string
	for _, a := range args {
		parts = append(parts, generators.Format(a.Arg))
	}

	return strings.Join(parts, ", ")
}

func countShrinks(args gopter.PropArgs) int {
	total := 0
	for _, a := range args {
		total += a.Shrinks
	}

	return total
}
