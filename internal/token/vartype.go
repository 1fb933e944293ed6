// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package token

import "fmt"

// VarType classifies a quantity by the entity universe it ranges over.
type VarType int

const (
	NoneVar VarType = iota
	Scalar
	WellVar
	GroupVar
	FieldVar
	SegmentVar
)

// String returns the variable type name.
func (v VarType) String() string {
	switch v {
	case NoneVar:
		return "NONE"
	case Scalar:
		return "SCALAR"
	case WellVar:
		return "WELL"
	case GroupVar:
		return "GROUP"
	case FieldVar:
		return "FIELD"
	case SegmentVar:
		return "SEGMENT"
	}
	return "UNKNOWN"
}

var varTypeNames = map[string]VarType{
	"NONE": NoneVar, "SCALAR": Scalar, "WELL": WellVar,
	"GROUP": GroupVar, "FIELD": FieldVar, "SEGMENT": SegmentVar,
}

// MarshalText encodes a variable type by name.
func (v VarType) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a variable type from its name.
func (v *VarType) UnmarshalText(text []byte) error {
	vt, ok := varTypeNames[string(text)]
	if !ok {
		return fmt.Errorf("unknown var type %q", string(text))
	}
	*v = vt
	return nil
}

// IsVector returns true for per-entity variable types.
func (v VarType) IsVector() bool {
	switch v {
	case WellVar, GroupVar, SegmentVar:
		return true
	}
	return false
}

// UnknownKeywordError reports a UDQ keyword whose name does not follow the
// WU/GU/FU/SU naming convention.
type UnknownKeywordError struct {
	Keyword string
}

func (e *UnknownKeywordError) Error() string {
	return fmt.Sprintf("keyword %q is not a valid UDQ name", e.Keyword)
}

// UDQVarType derives the variable type of a declared UDQ keyword from its
// naming convention: a two character WU/GU/FU/SU prefix. The type is fixed
// forever at first declaration.
func UDQVarType(keyword string) (VarType, error) {
	if len(keyword) >= 2 && keyword[1] == 'U' {
		switch keyword[0] {
		case 'W':
			return WellVar, nil
		case 'G':
			return GroupVar, nil
		case 'F':
			return FieldVar, nil
		case 'S':
			return SegmentVar, nil
		}
	}
	return NoneVar, &UnknownKeywordError{Keyword: keyword}
}

// TargetVarType derives the variable type of a quantity referenced on the
// right hand side of a DEFINE (summary vectors such as WOPR or FOPT).
// Unrecognized leading characters classify as Scalar; resolution against
// the result store happens at evaluation time.
func TargetVarType(name string) VarType {
	if name == "" {
		return Scalar
	}
	switch name[0] {
	case 'W':
		return WellVar
	case 'G':
		return GroupVar
	case 'F':
		return FieldVar
	case 'S':
		return SegmentVar
	}
	return Scalar
}

// TypeMismatchError reports an illegal combination of two vector variable
// types, either at parse time or when two sets from different universes
// meet at evaluation time.
type TypeMismatchError struct {
	Left   VarType
	Right  VarType
	Detail string
}

func (e *TypeMismatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("type mismatch: %s vs %s: %s", e.Left, e.Right, e.Detail)
	}
	return fmt.Sprintf("type mismatch: cannot combine %s with %s", e.Left, e.Right)
}

// Promote combines two variable types under the broadcast rule: Scalar
// combined with a vector type yields that vector type; two distinct
// vector types never combine.
func Promote(a, b VarType) (VarType, error) {
	if a == b {
		return a, nil
	}
	// Field quantities are single-valued and broadcast like scalars.
	if a == Scalar {
		return b, nil
	}
	if b == Scalar {
		return a, nil
	}
	if a == FieldVar {
		return b, nil
	}
	if b == FieldVar {
		return a, nil
	}
	return NoneVar, &TypeMismatchError{Left: a, Right: b}
}
