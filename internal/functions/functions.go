// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package functions holds the fixed UDQ function registry.
//
// Elementwise functions apply once per entity and map undefined to
// undefined. Reducing functions collapse a vector to a scalar, skipping
// undefined entries; an all-undefined input reduces to undefined, never
// to a synthetic zero. Numeric edge cases (LN of a non-positive value,
// harmonic average across a zero) yield undefined rather than an error.
package functions

import (
	"math"
	"sort"
)

// Kind separates per-entity functions from vector-collapsing ones.
type Kind int

const (
	Elementwise Kind = iota
	Reducing
)

// String returns the kind name.
func (k Kind) String() string {
	if k == Reducing {
		return "REDUCING"
	}
	return "ELEMENTWISE"
}

// Function is one registry entry. Exactly one of Elem and Reduce is set.
// Elem maps one entry given its value and defined flag; Reduce maps the
// defined subset of a vector. A false second return means the result is
// undefined.
type Function struct {
	Name   string
	Arity  int
	Kind   Kind
	Elem   func(v float64, defined bool) (float64, bool)
	Reduce func([]float64) (float64, bool)
}

// Table is the read-only function registry, shared by reference between
// the parser and the evaluator.
type Table struct {
	funcs map[string]Function
}

// Lookup returns the named function.
func (t *Table) Lookup(name string) (Function, bool) {
	f, ok := t.funcs[name]
	return f, ok
}

// Has reports whether a name is registered.
func (t *Table) Has(name string) bool {
	_, ok := t.funcs[name]
	return ok
}

// Names returns every registered name, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.funcs))
	for name := range t.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the registry. The table is fixed: user-defined functions are
// a non-goal.
func New() *Table {
	t := &Table{funcs: make(map[string]Function)}

	// elem registers a pure function of one defined value: undefined
	// maps to undefined.
	elem := func(name string, fn func(float64) (float64, bool)) {
		t.funcs[name] = Function{
			Name: name, Arity: 1, Kind: Elementwise,
			Elem: func(v float64, defined bool) (float64, bool) {
				if !defined {
					return 0, false
				}
				return fn(v)
			},
		}
	}
	rawElem := func(name string, fn func(float64, bool) (float64, bool)) {
		t.funcs[name] = Function{Name: name, Arity: 1, Kind: Elementwise, Elem: fn}
	}
	reduce := func(name string, fn func([]float64) (float64, bool)) {
		t.funcs[name] = Function{Name: name, Arity: 1, Kind: Reducing, Reduce: fn}
	}

	elem("ABS", func(v float64) (float64, bool) { return math.Abs(v), true })
	elem("EXP", func(v float64) (float64, bool) { return finite(math.Exp(v)) })
	elem("LN", func(v float64) (float64, bool) {
		if v <= 0 {
			return 0, false
		}
		return math.Log(v), true
	})
	elem("LOG", func(v float64) (float64, bool) {
		if v <= 0 {
			return 0, false
		}
		return math.Log10(v), true
	})
	elem("NINT", func(v float64) (float64, bool) { return math.Round(v), true })
	// DEF marks defined entries with 1; UNDEF is its complement, the one
	// function that maps an undefined input to a defined value.
	rawElem("DEF", func(v float64, defined bool) (float64, bool) {
		if defined {
			return 1, true
		}
		return 0, false
	})
	rawElem("UNDEF", func(v float64, defined bool) (float64, bool) {
		if defined {
			return 0, false
		}
		return 1, true
	})

	reduce("SUM", func(vs []float64) (float64, bool) {
		s := 0.0
		for _, v := range vs {
			s += v
		}
		return s, true
	})
	reduce("PROD", func(vs []float64) (float64, bool) {
		p := 1.0
		for _, v := range vs {
			p *= v
		}
		return finite(p)
	})
	reduce("MAX", func(vs []float64) (float64, bool) {
		m := vs[0]
		for _, v := range vs[1:] {
			m = math.Max(m, v)
		}
		return m, true
	})
	reduce("MIN", func(vs []float64) (float64, bool) {
		m := vs[0]
		for _, v := range vs[1:] {
			m = math.Min(m, v)
		}
		return m, true
	})
	reduce("AVEA", func(vs []float64) (float64, bool) {
		s := 0.0
		for _, v := range vs {
			s += v
		}
		return s / float64(len(vs)), true
	})
	reduce("AVEG", func(vs []float64) (float64, bool) {
		s := 0.0
		for _, v := range vs {
			if v <= 0 {
				return 0, false
			}
			s += math.Log(v)
		}
		return math.Exp(s / float64(len(vs))), true
	})
	reduce("AVEH", func(vs []float64) (float64, bool) {
		s := 0.0
		for _, v := range vs {
			if v == 0 {
				return 0, false
			}
			s += 1 / v
		}
		return finite(float64(len(vs)) / s)
	})
	reduce("NORM1", func(vs []float64) (float64, bool) {
		s := 0.0
		for _, v := range vs {
			s += math.Abs(v)
		}
		return s, true
	})
	reduce("NORM2", func(vs []float64) (float64, bool) {
		s := 0.0
		for _, v := range vs {
			s += v * v
		}
		return math.Sqrt(s), true
	})
	reduce("NORMI", func(vs []float64) (float64, bool) {
		m := 0.0
		for _, v := range vs {
			m = math.Max(m, math.Abs(v))
		}
		return m, true
	})

	return t
}

// finite rejects overflowed results: arithmetic in this engine yields
// undefined instead of infinities.
func finite(v float64) (float64, bool) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
