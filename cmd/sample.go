// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/choria-io/fisk"

	"github.com/choria-io/platcheck/generators"
)

type sampleCommand struct {
	generator string
	count     int
	seed      int64
}

func registerSampleCommand(app *fisk.Application) {
	cmd := &sampleCommand{}

	sample := app.Command("sample", "Prints values produced by an input generator").Action(cmd.sampleAction)
	sample.Arg("generator", "The generator to sample").Required().EnumVar(&cmd.generator, generators.Names()...)
	sample.Flag("count", "How many values to produce").Default("10").IntVar(&cmd.count)
	sample.Flag("seed", "Seed for reproducible values").Int64Var(&cmd.seed)
}

func (c *sampleCommand) sampleAction(_ *fisk.ParseContext) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	gen, err := generators.ByName(c.generator, cfg.Filesystem.ReservedNames)
	if err != nil {
		return err
	}

	values, err := generators.Sample(gen, c.count, c.seed)
	if err != nil {
		return err
	}

	for _, v := range values {
		fmt.Println(generators.Format(v))
	}

	return nil
}
