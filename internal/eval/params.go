// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Params holds the engine tuning knobs. They are set once at startup and
// passed by value; there is no mutable global configuration.
type Params struct {
	// UndefinedValue is the sentinel written to the result store for
	// undefined set entries. Inside the engine undefined stays a distinct
	// third state; the sentinel only appears at the store boundary.
	UndefinedValue float64 `yaml:"undefined_value" json:"undefined_value"`
	// CmpEpsilon is the relative tolerance used by the == and !=
	// operators.
	CmpEpsilon float64 `yaml:"cmp_epsilon" json:"cmp_epsilon"`
}

// DefaultParams returns the stock parameter values.
func DefaultParams() Params {
	return Params{
		UndefinedValue: -0.3e21,
		CmpEpsilon:     1.0e-4,
	}
}

// LoadParams reads parameters from a YAML file, filling missing fields
// with defaults.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse params file %s: %w", path, err)
	}
	if p.CmpEpsilon < 0 {
		return p, fmt.Errorf("params file %s: cmp_epsilon must be non-negative", path)
	}
	return p, nil
}
