// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/choria-io/fisk"

	"github.com/choria-io/platcheck/internal/registry"
)

func registerChecksCommand(app *fisk.Application) {
	app.Command("checks", "Lists the available checkers").Action(func(_ *fisk.ParseContext) error {
		for _, t := range registry.Types() {
			fmt.Println(t)
		}

		return nil
	})
}
