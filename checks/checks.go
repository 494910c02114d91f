// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package checks registers every checker with the registry
package checks

import (
	"github.com/choria-io/platcheck/checks/filesystem"
	"github.com/choria-io/platcheck/checks/goss"
	"github.com/choria-io/platcheck/checks/https"
	"github.com/choria-io/platcheck/checks/resilience"
	"github.com/choria-io/platcheck/checks/secrets"
	"github.com/choria-io/platcheck/checks/vcs"
)

func init() {
	secrets.Register()
	filesystem.Register()
	vcs.Register()
	https.Register()
	resilience.Register()
	goss.Register()
}
