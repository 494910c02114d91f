// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package generators

import (
	"math/rand"
	"strings"
)

const (
	lowerLetters = "abcdefghijklmnopqrstuvwxyz"
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	letters      = lowerLetters + upperLetters
	digits       = "0123456789"
	alphanumeric = letters + digits
	punctuation  = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	// ComponentAlphabet is every rune a path component may contain
	ComponentAlphabet = alphanumeric + "-_."
	// ProjectAlphabet is every rune a project name may contain
	ProjectAlphabet = alphanumeric + "-_"
	// ContentAlphabet is every rune generated file content may contain
	ContentAlphabet = alphanumeric + " " + punctuation
	// WordAlphabet is every rune a commit message word may contain
	WordAlphabet = alphanumeric
)

// Extensions are appended to the final path component when it has none
var Extensions = []string{"txt", "py", "js", "md", "json"}

func pick(rng *rand.Rand, alphabet string) byte {
	return alphabet[rng.Intn(len(alphabet))]
}

// between returns a random integer in [lo, hi]
func between(rng *rand.Rand, lo int, hi int) int {
	if hi <= lo {
		return lo
	}

	return lo + rng.Intn(hi-lo+1)
}

// randomString builds a string of length n where the first and last runes come from edge and the rest from body
func randomString(rng *rand.Rand, n int, edge string, body string) string {
	if n <= 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(n)

	for i := 0; i < n; i++ {
		if i == 0 || i == n-1 {
			b.WriteByte(pick(rng, edge))
		} else {
			b.WriteByte(pick(rng, body))
		}
	}

	return b.String()
}

func onlyFrom(s string, alphabet string) bool {
	for _, r := range s {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}

	return true
}
