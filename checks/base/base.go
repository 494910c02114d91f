// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package base

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leanovate/gopter"

	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/property"
)

// Base holds behavior shared by all checkers, each check is recorded with the manager as it completes
type Base struct {
	TypeName string
	Manager  model.Manager
	Config   *config.Config
	Log      model.Logger
	Params   property.Parameters

	results []*model.CheckResult
	sync.Mutex
}

// New creates a base for a checker of typeName
func New(typeName string, mgr model.Manager) (*Base, error) {
	if mgr == nil {
		return nil, fmt.Errorf("%s checker requires a manager", typeName)
	}

	log, err := mgr.Logger("checker", typeName)
	if err != nil {
		return nil, err
	}

	cfg := mgr.Config()
	if cfg == nil {
		cfg = config.Default()
	}

	return &Base{
		TypeName: typeName,
		Manager:  mgr,
		Config:   cfg,
		Log:      log,
		Params:   property.FromConfig(cfg),
	}, nil
}

// Record stores a finished result and hands it to the manager
func (b *Base) Record(res *model.CheckResult) *model.CheckResult {
	res.Checker = b.TypeName

	b.Lock()
	b.results = append(b.results, res)
	b.Unlock()

	err := b.Manager.RecordResult(res)
	if err != nil {
		b.Log.Warn("Could not record check result", "check", res.Check, "error", err)
	}

	return res
}

// Results are all results recorded so far in the order they finished
func (b *Base) Results() []*model.CheckResult {
	b.Lock()
	defer b.Unlock()

	res := make([]*model.CheckResult, len(b.results))
	copy(res, b.results)

	return res
}

// Static performs a check whose outcome is decided by the error cb returns, nil passes with msg
func (b *Base) Static(ctx context.Context, check string, msg string, cb func(context.Context) error) *model.CheckResult {
	start := time.Now()
	res := model.NewCheckResult(b.TypeName, check)

	b.Log.Debug("Performing check", "check", check)
	err := cb(ctx)

	return b.Record(res.FromError(err, msg).Timed(start))
}

// Scenario performs a check that produces its own result
func (b *Base) Scenario(ctx context.Context, check string, cb func(context.Context, *model.CheckResult) *model.CheckResult) *model.CheckResult {
	start := time.Now()
	res := model.NewCheckResult(b.TypeName, check)

	b.Log.Debug("Performing check", "check", check)

	return b.Record(cb(ctx, res).Timed(start))
}

// Property evaluates prop using the configured trial parameters
func (b *Base) Property(check string, invariant string, prop gopter.Prop) *model.CheckResult {
	return b.PropertyWith(b.Params, check, invariant, prop)
}

// PropertyWith evaluates prop using params
func (b *Base) PropertyWith(params property.Parameters, check string, invariant string, prop gopter.Prop) *model.CheckResult {
	b.Log.Debug("Evaluating property", "check", check, "trials", params.Trials)

	return b.Record(property.Check(params, b.TypeName, check, invariant, prop))
}

// Finish returns all recorded results, a cancelled ctx is returned as the error
func (b *Base) Finish(ctx context.Context) ([]*model.CheckResult, error) {
	return b.Results(), ctx.Err()
}
