// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package ast defines the typed UDQ expression tree and its parser.
//
// The tree is a closed set of variants - Number, EntityRef, UnaryOp,
// BinaryOp and Call - matched exhaustively by the evaluator. Nodes are
// immutable once built and shared by pointer: copying a definition copies
// the handle, never the tree.
package ast

import (
	"nickandperla.net/udq/internal/token"
)

// Node is the interface all expression variants implement. The node
// method closes the set.
type Node interface {
	// VarType returns the variable type inferred bottom-up at parse time.
	VarType() token.VarType
	node()
}

// Number is a literal scalar.
type Number struct {
	Value float64
}

func (Number) VarType() token.VarType { return token.Scalar }
func (Number) node()                  {}

// EntityRef references a quantity in the result store, optionally
// narrowed by a selector of entity names or wildcard patterns.
type EntityRef struct {
	Name     string
	Selector []string
	Type     token.VarType
}

func (e *EntityRef) VarType() token.VarType { return e.Type }
func (*EntityRef) node()                    {}

// UnaryOp is a prefix operator application.
type UnaryOp struct {
	Op    token.Kind
	Child Node
}

func (u *UnaryOp) VarType() token.VarType { return u.Child.VarType() }
func (*UnaryOp) node()                    {}

// BinaryOp is an infix operator application.
type BinaryOp struct {
	Op    token.Kind
	Left  Node
	Right Node
	Type  token.VarType
}

func (b *BinaryOp) VarType() token.VarType { return b.Type }
func (*BinaryOp) node()                    {}

// Call applies a registered function to its arguments.
type Call struct {
	Func string
	Args []Node
	Type token.VarType
}

func (c *Call) VarType() token.VarType { return c.Type }
func (*Call) node()                    {}

// RequiredSummary collects the underlying quantity name of every leaf
// entity reference into keys. The host uses this to ensure dependencies
// are computed upstream before evaluation.
func RequiredSummary(n Node, keys map[string]struct{}) {
	switch v := n.(type) {
	case Number:
		// no dependencies
	case *EntityRef:
		keys[v.Name] = struct{}{}
	case *UnaryOp:
		RequiredSummary(v.Child, keys)
	case *BinaryOp:
		RequiredSummary(v.Left, keys)
		RequiredSummary(v.Right, keys)
	case *Call:
		for _, arg := range v.Args {
			RequiredSummary(arg, keys)
		}
	}
}
