// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/choria-io/platcheck/model"
)

var (
	factories = make(map[string]model.CheckerFactory)
	mu        sync.Mutex
)

// Clear removes all registered checker factories
func Clear() {
	mu.Lock()
	defer mu.Unlock()

	factories = make(map[string]model.CheckerFactory)
}

// Register registers a checker factory
func Register(p any) error {
	switch tp := p.(type) {
	case model.CheckerFactory:
		return registerChecker(tp)
	default:
		return fmt.Errorf("cannot register plugin of type %T", p)
	}
}

// MustRegister registers a plugin and panics if registration fails
func MustRegister(p any) {
	err := Register(p)
	if err != nil {
		panic(err)
	}
}

func registerChecker(f model.CheckerFactory) error {
	mu.Lock()
	defer mu.Unlock()

	tn := f.TypeName()
	if tn == "" {
		return fmt.Errorf("checker factory %T has no type name", f)
	}

	_, ok := factories[tn]
	if ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateChecker, tn)
	}

	factories[tn] = f

	return nil
}

// Types returns a sorted list of all registered checker types
func Types() []string {
	mu.Lock()
	defer mu.Unlock()

	return slices.Sorted(maps.Keys(factories))
}

// Factory finds the factory for a checker type
func Factory(typeName string) (model.CheckerFactory, error) {
	mu.Lock()
	defer mu.Unlock()

	f, ok := factories[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownChecker, typeName)
	}

	return f, nil
}

// New creates a checker of the given type bound to mgr
func New(typeName string, mgr model.Manager) (model.Checker, error) {
	f, err := Factory(typeName)
	if err != nil {
		return nil, err
	}

	return f.New(mgr)
}

// Select resolves the checker types to run, all registered types in sorted order when wanted is empty
func Select(wanted []string) ([]string, error) {
	known := Types()
	if len(wanted) == 0 {
		return known, nil
	}

	var res []string
	for _, w := range wanted {
		if !slices.Contains(known, w) {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownChecker, w)
		}
		if !slices.Contains(res, w) {
			res = append(res, w)
		}
	}

	return res, nil
}
