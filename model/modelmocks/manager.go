// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package modelmocks

import (
	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/templates"
	"go.uber.org/mock/gomock"
)

// NewManager creates a mock manager serving cfg and environ along with a logger that accepts any informational logging
func NewManager(cfg *config.Config, environ map[string]string, ctl *gomock.Controller) (*MockManager, *MockLogger) {
	logger := NewMockLogger(ctl)
	mgr := NewMockManager(ctl)

	if cfg == nil {
		cfg = config.Default()
	}
	if environ == nil {
		environ = map[string]string{}
	}

	mgr.EXPECT().Logger(gomock.Any()).AnyTimes().Return(logger, nil)
	mgr.EXPECT().Config().AnyTimes().Return(cfg)
	mgr.EXPECT().Environ().AnyTimes().Return(environ)
	mgr.EXPECT().Facts(gomock.Any()).AnyTimes().Return(map[string]any{}, nil)
	mgr.EXPECT().TemplateEnvironment(gomock.Any()).AnyTimes().Return(&templates.Env{Environ: environ, Facts: map[string]any{}}, nil)

	logger.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	logger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	logger.EXPECT().With(gomock.Any()).AnyTimes().Return(logger)

	return mgr, logger
}
