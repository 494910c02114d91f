// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package templates

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/tidwall/gjson"
)

var placeholder = regexp.MustCompile(`{{\s*(.*?)\s*}}`)

// Env is the environment configuration templates are resolved against
type Env struct {
	Facts   map[string]any    `json:"facts" yaml:"facts"`
	Data    map[string]any    `json:"data" yaml:"data"`
	Environ map[string]string `json:"environ" yaml:"environ"`

	envJSON json.RawMessage
	mu      sync.Mutex
}

// lookup fetches a gjson path from the environment, with one argument a missing key is an error
func (e *Env) lookup(params ...any) (any, error) {
	if len(params) == 0 || len(params) > 2 {
		return nil, fmt.Errorf("lookup requires 1 or 2 arguments")
	}

	key, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("lookup requires a string argument")
	}

	e.mu.Lock()
	if e.envJSON == nil {
		j, err := json.Marshal(e)
		if err != nil {
			e.mu.Unlock()
			return nil, err
		}
		e.envJSON = j
	}
	res := gjson.GetBytes(e.envJSON, key)
	e.mu.Unlock()

	if !res.Exists() {
		if len(params) == 2 {
			return params[1], nil
		}

		return nil, fmt.Errorf("missing key '%s' in environment", key)
	}

	if res.Type == gjson.Number {
		if strings.Contains(res.Raw, ".") {
			return res.Float(), nil
		}

		return res.Int(), nil
	}

	return res.Value(), nil
}

// ResolveTemplateString resolves {{ expression }} placeholders in a template string and returns the result as a string
func ResolveTemplateString(template string, env *Env) (string, error) {
	if !placeholder.MatchString(template) {
		return template, nil
	}

	var result strings.Builder
	last := 0

	for _, loc := range placeholder.FindAllStringSubmatchIndex(template, -1) {
		value, err := evaluate(template[loc[2]:loc[3]], env)
		if err != nil {
			return "", err
		}

		result.WriteString(template[last:loc[0]])
		if value != nil {
			result.WriteString(fmt.Sprint(value))
		}

		last = loc[1]
	}

	result.WriteString(template[last:])

	return result.String(), nil
}

// ResolveAll resolves every string in place, stopping at the first failure
func ResolveAll(env *Env, fields ...*string) error {
	for _, f := range fields {
		if f == nil || *f == "" {
			continue
		}

		res, err := ResolveTemplateString(*f, env)
		if err != nil {
			return fmt.Errorf("could not resolve %q: %w", *f, err)
		}

		*f = res
	}

	return nil
}

func evaluate(query string, env *Env) (any, error) {
	program, err := expr.Compile(query, expr.Env(env), expr.Function("lookup", env.lookup))
	if err != nil {
		return nil, fmt.Errorf("expr compile error for '%s': %w", query, err)
	}

	return expr.Run(program, env)
}
