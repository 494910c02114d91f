// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package generators produces constrained random inputs for property checks.
//
// Values are built directly from their allowed alphabets rather than filtered
// out of arbitrary strings, every generator still carries its validator as a
// sieve and its shrinker only proposes values the validator accepts.
package generators

import (
	"math/rand"
	"strings"

	"github.com/leanovate/gopter"
)

// Target is a request path and query string, the query is empty or starts with ?
type Target struct {
	Path  string `json:"path"`
	Query string `json:"query"`
}

func (t Target) String() string {
	return t.Path + t.Query
}

func pathComponent(rng *rand.Rand, reserved []string) string {
	n := between(rng, 1, MaxComponentLength)
	s := randomString(rng, n, alphanumeric+"-_", ComponentAlphabet)

	if IsReserved(s, reserved...) {
		s = "_" + s
		if len(s) > MaxComponentLength {
			s = s[:MaxComponentLength]
		}
		if strings.HasSuffix(s, ".") {
			s = s[:len(s)-1] + "_"
		}
	}

	return s
}

// PathComponent generates single path components, reserved stems default to DefaultReserved
func PathComponent(reserved ...string) gopter.Gen {
	reserved = reservedOrDefault(reserved)
	valid := func(s string) bool { return ValidPathComponent(s, reserved...) }

	return gopter.Gen(func(params *gopter.GenParameters) *gopter.GenResult {
		return gopter.NewGenResult(pathComponent(params.Rng, reserved), stringShrinker(valid))
	}).SuchThat(valid)
}

// RelativePath generates 1 to 3 path components, the last always has an extension
func RelativePath(reserved ...string) gopter.Gen {
	reserved = reservedOrDefault(reserved)
	valid := func(p []string) bool { return ValidRelativePath(p, reserved...) }

	return gopter.Gen(func(params *gopter.GenParameters) *gopter.GenResult {
		depth := between(params.Rng, 1, MaxPathDepth)
		p := make([]string, depth)
		for i := range p {
			p[i] = pathComponent(params.Rng, reserved)
		}

		last := depth - 1
		if !strings.Contains(p[last], ".") {
			p[last] = p[last] + "." + Extensions[params.Rng.Intn(len(Extensions))]
		}

		return gopter.NewGenResult(p, pathShrinker(valid))
	}).SuchThat(valid)
}

// FileContent generates printable text with a length in [min, max]
func FileContent(min int, max int) gopter.Gen {
	if max < min {
		max = min
	}

	valid := func(s string) bool { return ValidFileContent(s, min, max) }

	return gopter.Gen(func(params *gopter.GenParameters) *gopter.GenResult {
		n := between(params.Rng, min, max)
		s := randomString(params.Rng, n, ContentAlphabet, ContentAlphabet)

		return gopter.NewGenResult(s, stringShrinker(valid))
	}).SuchThat(valid)
}

// ProjectName generates names usable as a repository directory
func ProjectName() gopter.Gen {
	return gopter.Gen(func(params *gopter.GenParameters) *gopter.GenResult {
		n := between(params.Rng, 1, MaxProjectNameLength)
		s := randomString(params.Rng, n, alphanumeric, ProjectAlphabet)

		return gopter.NewGenResult(s, stringShrinker(ValidProjectName))
	}).SuchThat(ValidProjectName)
}

// CommitMessage generates descriptive messages of 2 to 10 words
func CommitMessage() gopter.Gen {
	return gopter.Gen(func(params *gopter.GenParameters) *gopter.GenResult {
		words := make([]string, between(params.Rng, MinCommitWords, MaxCommitWords))
		for i := range words {
			words[i] = randomString(params.Rng, between(params.Rng, 1, MaxCommitWordLength), WordAlphabet, WordAlphabet)
		}

		return gopter.NewGenResult(strings.Join(words, " "), commitShrinker)
	}).SuchThat(ValidCommitMessage)
}

// RequestTarget generates combinations of paths and queries, shrinking toward the first of each
func RequestTarget(paths []string, queries []string) gopter.Gen {
	if len(paths) == 0 {
		paths = []string{"/"}
	}
	if len(queries) == 0 {
		queries = []string{""}
	}

	valid := func(t Target) bool { return ValidTarget(t, paths, queries) }

	return gopter.Gen(func(params *gopter.GenParameters) *gopter.GenResult {
		t := Target{
			Path:  paths[params.Rng.Intn(len(paths))],
			Query: queries[params.Rng.Intn(len(queries))],
		}

		return gopter.NewGenResult(t, targetShrinker(paths, queries))
	}).SuchThat(valid)
}
