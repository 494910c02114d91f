// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"

	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/templates"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

type Manager interface {
	Config() *config.Config
	Environ() map[string]string
	Facts(ctx context.Context) (map[string]any, error)
	Logger(args ...any) (Logger, error)
	NewRunner() (CommandRunner, error)
	NewRemoteRunner() (CommandRunner, error)
	RecordResult(result *CheckResult) error
	TemplateEnvironment(ctx context.Context) (*templates.Env, error)
}
