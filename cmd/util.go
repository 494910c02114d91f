// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/choria-io/platcheck/config"
	iu "github.com/choria-io/platcheck/internal/util"
	"github.com/choria-io/platcheck/manager"
	"github.com/choria-io/platcheck/model"
)

var envLine = regexp.MustCompile(`^(?:export\s+)?([A-Za-z_][A-Za-z0-9_]*)="?(.*?)"?$`)

func loadConfig() (*config.Config, error) {
	file := configFile
	if file == "" {
		file = config.DefaultFile()
	}

	return config.Load(file)
}

func logLevel(cfg *config.Config) string {
	switch {
	case debug:
		return "debug"
	case info:
		return "info"
	default:
		return cfg.LogLevel
	}
}

func newManager(cfg *config.Config, envFile string, opts ...manager.Option) (*manager.Manager, error) {
	logger := manager.NewLogger(os.Stderr, logLevel(cfg), cfg.LogFormat)
	out := manager.NewOutputLogger(os.Stdout, debug, iu.IsTerminal())

	env, err := environment(envFile, logger)
	if err != nil {
		return nil, err
	}

	opts = append([]manager.Option{manager.WithEnvironment(env)}, opts...)

	mgr, err := manager.NewManager(cfg, logger, out, opts...)
	if err != nil {
		return nil, err
	}

	err = mgr.ResolveConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not resolve configuration: %w", err)
	}

	return mgr, nil
}

// environment is the process environment overlaid with variables from envFile
func environment(envFile string, log model.Logger) (map[string]string, error) {
	res := make(map[string]string)

	for _, line := range os.Environ() {
		matches := envLine.FindStringSubmatch(line)
		if len(matches) == 3 {
			res[matches[1]] = matches[2]
		}
	}

	if envFile == "" {
		return res, nil
	}

	log.Info("Reading environment variables", "file", envFile)

	f, err := os.Open(envFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		matches := envLine.FindStringSubmatch(scanner.Text())
		if len(matches) == 3 {
			res[matches[1]] = matches[2]
		}
	}

	return res, scanner.Err()
}

func printJSON(v any) error {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(j))

	return nil
}
