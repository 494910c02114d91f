// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package goss

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/goss-org/goss"
	"github.com/goss-org/goss/outputs"
	gossutil "github.com/goss-org/goss/util"
	"github.com/spf13/afero"

	"github.com/choria-io/platcheck/checks/base"
	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/internal/workspace"
	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/templates"
)

const TypeName = "goss"

// Checker validates operator supplied goss rules against the local host
type Checker struct {
	*base.Base

	cfg  config.Goss
	root string
}

func New(mgr model.Manager) (*Checker, error) {
	b, err := base.New(TypeName, mgr)
	if err != nil {
		return nil, err
	}

	return &Checker{Base: b, cfg: b.Config.Goss, root: b.Config.WorkspaceRoot}, nil
}

func (c *Checker) TypeName() string { return TypeName }

func (c *Checker) Run(ctx context.Context) ([]*model.CheckResult, error) {
	c.Scenario(ctx, "rules", c.validate)

	return c.Finish(ctx)
}

func (c *Checker) validate(ctx context.Context, res *model.CheckResult) *model.CheckResult {
	if c.cfg.RulesFile == "" {
		return res.Skip("no goss rules file configured")
	}

	rules, err := os.ReadFile(c.cfg.RulesFile)
	if err != nil {
		return res.FromError(fmt.Errorf("%w: %w", model.ErrEnvironmentUnavailable, err), "")
	}

	env, err := c.Manager.TemplateEnvironment(ctx)
	if err != nil {
		return res.FromError(err, "")
	}

	resolved, err := templates.ResolveTemplateString(string(rules), env)
	if err != nil {
		return res.FromError(fmt.Errorf("could not resolve rules: %w", err), "")
	}

	var output *outputs.StructuredOutput
	err = workspace.With(nil, c.root, TypeName, func(ws *workspace.Workspace) error {
		rulesFile := ws.Join("goss.yaml")

		err := afero.WriteFile(ws.Fs(), rulesFile, []byte(resolved), 0600)
		if err != nil {
			return err
		}

		output, err = Validate(rulesFile)
		return err
	})
	if err != nil {
		return res.FromError(err, "")
	}

	var failed []string
	for _, r := range output.Results {
		if r.Result == 0 {
			c.Log.Debug(r.SummaryLineCompact)
			continue
		}

		failed = append(failed, r.SummaryLineCompact)
	}

	if output.Summary.Failed > 0 {
		return res.FromError(fmt.Errorf("%w: %s: %s", model.ErrAssertionFailed, output.SummaryLine, strings.Join(failed, "; ")), "")
	}

	return res.Pass("%s", output.SummaryLine)
}

// Validate runs the goss rules in specFile and returns the structured results
func Validate(specFile string) (*outputs.StructuredOutput, error) {
	var out bytes.Buffer

	cfg, err := gossutil.NewConfig(
		gossutil.WithMaxConcurrency(1),
		gossutil.WithResultWriter(&out),
		gossutil.WithSpecFile(specFile),
	)
	if err != nil {
		return nil, err
	}

	_, err = goss.Validate(cfg)
	if err != nil {
		return nil, err
	}

	results := &outputs.StructuredOutput{}
	err = json.Unmarshal(out.Bytes(), results)
	if err != nil {
		return nil, err
	}

	return results, nil
}
