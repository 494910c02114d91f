// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/choria-io/fisk"

	_ "github.com/choria-io/platcheck/checks"
)

var (
	ctx        context.Context
	debug      bool
	info       bool
	configFile string
	Version    = "development"
)

func main() {
	app := fisk.New("platcheck", "Choria Platform Verification")
	app.Version(Version)
	app.Author("https://choria.io")

	app.Flag("debug", "Enable debug logging").UnNegatableBoolVar(&debug)
	app.Flag("info", "Enable info logging").UnNegatableBoolVar(&info)
	app.Flag("config", "Configuration file to use").Envar("PLATCHECK_CONFIG").ExistingFileVar(&configFile)

	registerRunCommand(app)
	registerSampleCommand(app)
	registerHistoryCommand(app)
	registerChecksCommand(app)
	registerFactsCommand(app)

	var cancel context.CancelFunc
	ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app.MustParseWithUsage(os.Args[1:])
}
