// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"github.com/choria-io/platcheck/internal/registry"
	"github.com/choria-io/platcheck/model"
)

// Register registers this checker with the registry
func Register() {
	registry.MustRegister(&factory{})
}

type factory struct{}

func (p *factory) TypeName() string { return TypeName }
func (p *factory) New(mgr model.Manager) (model.Checker, error) {
	return New(mgr)
}
