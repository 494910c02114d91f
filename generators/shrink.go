// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package generators

import (
	"slices"
	"strings"

	"github.com/leanovate/gopter"
)

// maxRemovals bounds the single rune removals proposed per shrink step
const maxRemovals = 16

// fromCandidates offers each candidate in turn
func fromCandidates(candidates []any) gopter.Shrink {
	i := 0

	return func() (any, bool) {
		if i >= len(candidates) {
			return nil, false
		}

		v := candidates[i]
		i++

		return v, true
	}
}

// stringCandidates proposes strictly simpler strings, shorter or with more runes replaced by simple
func stringCandidates(s string, simple byte) []string {
	n := len(s)
	if n == 0 {
		return nil
	}

	var res []string
	if n > 1 {
		res = append(res, s[:n/2], s[n/2:])
	}

	for i := 0; i < n && i < maxRemovals; i++ {
		res = append(res, s[:i]+s[i+1:])
	}
	if n > maxRemovals {
		res = append(res, s[:n-1])
	}

	idx := strings.IndexFunc(s, func(r rune) bool { return r != rune(simple) })
	if idx >= 0 {
		res = append(res, s[:idx]+string(simple)+s[idx+1:])
	}

	return res
}

func stringShrinker(valid func(string) bool) gopter.Shrinker {
	return func(v any) gopter.Shrink {
		s, ok := v.(string)
		if !ok {
			return gopter.NoShrink
		}

		seen := map[string]bool{s: true}
		var out []any

		for _, c := range stringCandidates(s, 'a') {
			if seen[c] || !valid(c) {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}

		return fromCandidates(out)
	}
}

func pathShrinker(valid func([]string) bool) gopter.Shrinker {
	return func(v any) gopter.Shrink {
		p, ok := v.([]string)
		if !ok || len(p) == 0 {
			return gopter.NoShrink
		}

		var out []any
		propose := func(c []string) {
			if valid(c) {
				out = append(out, c)
			}
		}

		last := len(p) - 1

		for i := 0; i < last; i++ {
			propose(slices.Delete(slices.Clone(p), i, i+1))
		}

		for i, comp := range p {
			stem, ext := comp, ""
			if i == last {
				if idx := strings.LastIndex(comp, "."); idx > 0 {
					stem, ext = comp[:idx], comp[idx:]
				}
			}

			for _, c := range stringCandidates(stem, 'a') {
				next := slices.Clone(p)
				next[i] = c + ext
				propose(next)
			}
		}

		return fromCandidates(out)
	}
}

func commitShrinker(v any) gopter.Shrink {
	s, ok := v.(string)
	if !ok {
		return gopter.NoShrink
	}

	words := strings.Split(s, " ")
	var out []any
	propose := func(w []string) {
		c := strings.Join(w, " ")
		if c != s && ValidCommitMessage(c) {
			out = append(out, c)
		}
	}

	if len(words) > MinCommitWords {
		propose(words[:MinCommitWords])
		for i := range words {
			propose(slices.Delete(slices.Clone(words), i, i+1))
		}
	}

	for i, w := range words {
		if len(w) > 1 {
			next := slices.Clone(words)
			next[i] = w[:1]
			propose(next)
		}
		if w != "a" {
			next := slices.Clone(words)
			next[i] = "a"
			propose(next)
		}
	}

	return fromCandidates(out)
}

func targetShrinker(paths []string, queries []string) gopter.Shrinker {
	return func(v any) gopter.Shrink {
		t, ok := v.(Target)
		if !ok {
			return gopter.NoShrink
		}

		var out []any
		for _, c := range []Target{{Path: paths[0], Query: t.Query}, {Path: t.Path, Query: queries[0]}} {
			if c != t {
				out = append(out, c)
			}
		}

		return fromCandidates(out)
	}
}
