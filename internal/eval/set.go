// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"math"

	"nickandperla.net/udq/internal/functions"
	"nickandperla.net/udq/internal/token"
)

// Entry is one named slot of a set. Undefined is a distinct third state:
// it is never 0.0 and never any defined number.
type Entry struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Defined bool    `json:"defined"`
}

// Set is the runtime vector value: an ordered, named mapping from entity
// name to an optional value. The entity order is a snapshot of the
// universe at construction and never changes afterwards. Sets live within
// a single evaluation call and are never persisted.
type Set struct {
	name    string
	varType token.VarType
	entries []Entry
}

// NewScalar builds a defined single-value scalar set.
func NewScalar(name string, value float64) Set {
	return Set{name: name, varType: token.Scalar, entries: []Entry{{Value: value, Defined: true}}}
}

// NewUndefinedScalar builds an undefined scalar set.
func NewUndefinedScalar(name string) Set {
	return Set{name: name, varType: token.Scalar, entries: []Entry{{}}}
}

// NewField builds a field-scalar set.
func NewField(name string, value float64) Set {
	return Set{name: name, varType: token.FieldVar, entries: []Entry{{Value: value, Defined: true}}}
}

// NewWells builds an all-undefined well set over the given universe
// snapshot.
func NewWells(name string, wells []string) Set {
	return newVector(name, token.WellVar, wells)
}

// NewGroups builds an all-undefined group set over the given universe
// snapshot.
func NewGroups(name string, groups []string) Set {
	return newVector(name, token.GroupVar, groups)
}

func newVector(name string, vt token.VarType, entities []string) Set {
	entries := make([]Entry, len(entities))
	for i, e := range entities {
		entries[i] = Entry{Name: e}
	}
	return Set{name: name, varType: vt, entries: entries}
}

// Name returns the set name.
func (s Set) Name() string { return s.name }

// WithName returns a copy carrying a new name.
func (s Set) WithName(name string) Set {
	s.name = name
	return s
}

// VarType returns the set's variable type.
func (s Set) VarType() token.VarType { return s.varType }

// Len returns the number of entries.
func (s Set) Len() int { return len(s.entries) }

// Entry returns entry i.
func (s Set) Entry(i int) Entry { return s.entries[i] }

// Entries returns a copy of all entries.
func (s Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// IsScalar reports whether the set collapses to a single value.
func (s Set) IsScalar() bool {
	return s.varType == token.Scalar || s.varType == token.FieldVar
}

// ScalarValue returns the single value of a scalar or field set.
func (s Set) ScalarValue() (float64, bool) {
	if len(s.entries) == 0 {
		return 0, false
	}
	e := s.entries[0]
	return e.Value, e.Defined
}

// Assign overwrites the entry for one entity. Missing entities are
// ignored: an assignment only touches what it selects.
func (s *Set) Assign(entity string, value float64) {
	for i := range s.entries {
		if s.entries[i].Name == entity {
			s.entries[i] = Entry{Name: entity, Value: value, Defined: true}
		}
	}
}

// AssignIndex overwrites entry i.
func (s *Set) AssignIndex(i int, value float64) {
	s.entries[i].Value = value
	s.entries[i].Defined = true
}

// DefinedValues returns the values of the defined entries, in order.
func (s Set) DefinedValues() []float64 {
	var vs []float64
	for _, e := range s.entries {
		if e.Defined {
			vs = append(vs, e.Value)
		}
	}
	return vs
}

// apply computes one defined arithmetic slot, turning numeric edge cases
// (division by zero, overflow, 0^-1 style results) into undefined rather
// than errors. Only structural problems are errors in this engine.
func apply(op token.Kind, a, b, eps float64) (float64, bool) {
	switch op {
	case token.Add:
		return finite(a + b)
	case token.Sub:
		return finite(a - b)
	case token.Mul:
		return finite(a * b)
	case token.Div:
		if b == 0 {
			return 0, false
		}
		return finite(a / b)
	case token.Pow:
		return finite(math.Pow(a, b))
	case token.EQ:
		return bool2f(almostEqual(a, b, eps)), true
	case token.NE:
		return bool2f(!almostEqual(a, b, eps)), true
	case token.GT:
		return bool2f(a > b), true
	case token.LT:
		return bool2f(a < b), true
	case token.GE:
		return bool2f(a >= b), true
	case token.LE:
		return bool2f(a <= b), true
	}
	return 0, false
}

func finite(v float64) (float64, bool) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func bool2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// almostEqual compares within a relative epsilon, matching the engine's
// comparison parameter.
func almostEqual(a, b, eps float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= eps*math.Max(math.Abs(a), math.Abs(b))
}

// BinOp combines two sets elementwise. Scalars broadcast against vectors;
// two vector sets must come from the same universe snapshot and pair
// positionally. Wherever either operand is undefined the result is
// undefined.
func BinOp(op token.Kind, a, b Set, eps float64) (Set, error) {
	vt, err := token.Promote(a.varType, b.varType)
	if err != nil {
		return Set{}, err
	}

	if a.IsScalar() && !b.IsScalar() {
		a = a.broadcast(b)
	} else if b.IsScalar() && !a.IsScalar() {
		b = b.broadcast(a)
	}

	if len(a.entries) != len(b.entries) {
		return Set{}, &token.TypeMismatchError{
			Left: a.varType, Right: b.varType,
			Detail: "operands built from different universe snapshots",
		}
	}

	out := Set{name: a.name, varType: vt, entries: make([]Entry, len(a.entries))}
	for i := range a.entries {
		ea, eb := a.entries[i], b.entries[i]
		if ea.Name != eb.Name {
			return Set{}, &token.TypeMismatchError{
				Left: a.varType, Right: b.varType,
				Detail: "entity order disagrees between operands",
			}
		}
		out.entries[i] = Entry{Name: ea.Name}
		if ea.Defined && eb.Defined {
			if v, ok := apply(op, ea.Value, eb.Value, eps); ok {
				out.entries[i].Value = v
				out.entries[i].Defined = true
			}
		}
	}
	return out, nil
}

// broadcast replicates a scalar against the shape of a vector set.
func (s Set) broadcast(shape Set) Set {
	v, defined := s.ScalarValue()
	entries := make([]Entry, len(shape.entries))
	for i, e := range shape.entries {
		entries[i] = Entry{Name: e.Name, Value: v, Defined: defined}
	}
	return Set{name: s.name, varType: shape.varType, entries: entries}
}

// Negate flips the sign of every defined entry.
func (s Set) Negate() Set {
	out := Set{name: s.name, varType: s.varType, entries: make([]Entry, len(s.entries))}
	for i, e := range s.entries {
		out.entries[i] = e
		if e.Defined {
			out.entries[i].Value = -e.Value
		}
	}
	return out
}

// MapElem applies an elementwise function entry by entry.
func (s Set) MapElem(fn functions.Function) Set {
	out := Set{name: s.name, varType: s.varType, entries: make([]Entry, len(s.entries))}
	for i, e := range s.entries {
		out.entries[i] = Entry{Name: e.Name}
		if v, ok := fn.Elem(e.Value, e.Defined); ok {
			out.entries[i].Value = v
			out.entries[i].Defined = true
		}
	}
	return out
}

// Reduce collapses the set to a scalar, skipping undefined entries. An
// all-undefined input reduces to undefined, never to a synthetic zero.
// Reducing a scalar is the identity.
func (s Set) Reduce(fn functions.Function) Set {
	if s.IsScalar() {
		v, defined := s.ScalarValue()
		if !defined {
			return NewUndefinedScalar(s.name)
		}
		return NewScalar(s.name, v)
	}
	defined := s.DefinedValues()
	if len(defined) == 0 {
		return NewUndefinedScalar(s.name)
	}
	v, ok := fn.Reduce(defined)
	if !ok {
		return NewUndefinedScalar(s.name)
	}
	return NewScalar(s.name, v)
}
