// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package ast

import (
	"encoding/json"
	"fmt"

	"nickandperla.net/udq/internal/token"
)

// envelope is the serialized form of a node: a tagged union with a kind
// discriminator, so whole trees travel through the generic JSON encoder.
type envelope struct {
	Kind     string        `json:"kind"`
	Value    float64       `json:"value,omitempty"`
	Name     string        `json:"name,omitempty"`
	Selector []string      `json:"selector,omitempty"`
	Op       token.Kind    `json:"op,omitempty"`
	Type     token.VarType `json:"type,omitempty"`
	Func     string        `json:"func,omitempty"`
	Child    *envelope     `json:"child,omitempty"`
	Left     *envelope     `json:"left,omitempty"`
	Right    *envelope     `json:"right,omitempty"`
	Args     []*envelope   `json:"args,omitempty"`
}

func toEnvelope(n Node) *envelope {
	switch v := n.(type) {
	case Number:
		return &envelope{Kind: "number", Value: v.Value}
	case *EntityRef:
		return &envelope{Kind: "entity", Name: v.Name, Selector: v.Selector, Type: v.Type}
	case *UnaryOp:
		return &envelope{Kind: "unary", Op: v.Op, Child: toEnvelope(v.Child)}
	case *BinaryOp:
		return &envelope{
			Kind: "binary", Op: v.Op, Type: v.Type,
			Left: toEnvelope(v.Left), Right: toEnvelope(v.Right),
		}
	case *Call:
		args := make([]*envelope, len(v.Args))
		for i, arg := range v.Args {
			args[i] = toEnvelope(arg)
		}
		return &envelope{Kind: "call", Func: v.Func, Type: v.Type, Args: args}
	}
	return nil
}

func (e *envelope) toNode() (Node, error) {
	switch e.Kind {
	case "number":
		return Number{Value: e.Value}, nil
	case "entity":
		return &EntityRef{Name: e.Name, Selector: e.Selector, Type: e.Type}, nil
	case "unary":
		child, err := e.Child.toNode()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: e.Op, Child: child}, nil
	case "binary":
		left, err := e.Left.toNode()
		if err != nil {
			return nil, err
		}
		right, err := e.Right.toNode()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: e.Op, Left: left, Right: right, Type: e.Type}, nil
	case "call":
		args := make([]Node, len(e.Args))
		for i, arg := range e.Args {
			n, err := arg.toNode()
			if err != nil {
				return nil, err
			}
			args[i] = n
		}
		return &Call{Func: e.Func, Args: args, Type: e.Type}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", e.Kind)
}

// MarshalNode serializes an expression tree.
func MarshalNode(n Node) ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	return json.Marshal(toEnvelope(n))
}

// UnmarshalNode reconstructs an expression tree.
func UnmarshalNode(data []byte) (Node, error) {
	if string(data) == "null" {
		return nil, nil
	}
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e.toNode()
}
