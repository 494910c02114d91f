// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package generators

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/leanovate/gopter"

	"github.com/choria-io/platcheck/model"
)

// DrawBudget is how many attempts are made to produce a single value passing a generator sieve
const DrawBudget = 100

// Sampler draws values from a generator deterministically for a seed
type Sampler struct {
	gen    gopter.Gen
	seed   int64
	params *gopter.GenParameters
}

// NewSampler creates a sampler, a zero seed picks one based on the current time
func NewSampler(gen gopter.Gen, seed int64) *Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Sampler{gen: gen, seed: seed}
	s.Reset()

	return s
}

// Seed is the seed the sampler draws with
func (s *Sampler) Seed() int64 {
	return s.seed
}

// Reset restarts the sequence from the beginning
func (s *Sampler) Reset() {
	s.params = gopter.DefaultGenParameters()
	s.params.Rng = rand.New(rand.NewSource(s.seed))
}

// Next draws the next value, failing with model.ErrExhaustedGenerator when the budget is spent without a valid value
func (s *Sampler) Next() (any, error) {
	for range DrawBudget {
		v, ok := s.gen(s.params).Retrieve()
		if ok {
			return v, nil
		}
	}

	return nil, fmt.Errorf("%w: no value satisfied the filter within %d attempts", model.ErrExhaustedGenerator, DrawBudget)
}

// Sample draws n values from gen
func Sample(gen gopter.Gen, n int, seed int64) ([]any, error) {
	s := NewSampler(gen, seed)
	res := make([]any, 0, n)

	for range n {
		v, err := s.Next()
		if err != nil {
			return res, err
		}
		res = append(res, v)
	}

	return res, nil
}

var catalog = map[string]func(reserved []string) gopter.Gen{
	"path-component": func(r []string) gopter.Gen { return PathComponent(r...) },
	"relative-path":  func(r []string) gopter.Gen { return RelativePath(r...) },
	"file-content":   func([]string) gopter.Gen { return FileContent(0, MaxContentLength) },
	"project-name":   func([]string) gopter.Gen { return ProjectName() },
	"commit-message": func([]string) gopter.Gen { return CommitMessage() },
}

// Names lists the generators available through ByName
func Names() []string {
	var names []string
	for k := range catalog {
		names = append(names, k)
	}

	slices.Sort(names)

	return names
}

// ByName finds a generator by its catalog name
func ByName(name string, reserved []string) (gopter.Gen, error) {
	f, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("unknown generator %q, valid generators are: %s", name, strings.Join(Names(), ", "))
	}

	return f(reserved), nil
}

// Format renders a generated value for reports, paths are joined and strings quoted
func Format(v any) string {
	switch tv := v.(type) {
	case []string:
		return fmt.Sprintf("%q", filepath.Join(tv...))
	case string:
		return fmt.Sprintf("%q", tv)
	case fmt.Stringer:
		return tv.String()
	default:
		return fmt.Sprintf("%v", tv)
	}
}
