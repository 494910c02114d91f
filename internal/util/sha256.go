// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sha256HashReader computes the sha256 sum of everything read from r
func Sha256HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()

	_, err := io.Copy(hasher, r)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
