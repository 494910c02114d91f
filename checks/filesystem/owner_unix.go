// Copyright (c) 2025-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package filesystem

import (
	"os"
	"syscall"
)

// fileOwner is -1, -1 when the filesystem does not expose platform stat information
func fileOwner(stat os.FileInfo) (uid int, gid int) {
	ssys, ok := stat.Sys().(*syscall.Stat_t)
	if !ok {
		return -1, -1
	}

	return int(ssys.Uid), int(ssys.Gid)
}
