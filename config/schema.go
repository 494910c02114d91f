// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://choria.io/schemas/platcheck/v1/config.json"

var (
	compiled    *jsonschema.Schema
	compileErr  error
	compileOnce sync.Once
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = err
			return
		}

		c := jsonschema.NewCompiler()
		err = c.AddResource(schemaURL, doc)
		if err != nil {
			compileErr = err
			return
		}

		compiled, compileErr = c.Compile(schemaURL)
	})

	return compiled, compileErr
}

// validateSchema validates the YAML document c against the configuration schema
func validateSchema(c []byte) error {
	if len(bytes.TrimSpace(c)) == 0 {
		return nil
	}

	sch, err := schema()
	if err != nil {
		return fmt.Errorf("could not compile configuration schema: %w", err)
	}

	j, err := yaml.YAMLToJSON(c)
	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(j))
	if err != nil {
		return err
	}

	if inst == nil {
		return nil
	}

	err = sch.Validate(inst)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}
