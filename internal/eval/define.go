// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"fmt"

	"nickandperla.net/udq/internal/ast"
	"nickandperla.net/udq/internal/functions"
	"nickandperla.net/udq/internal/lexer"
	"nickandperla.net/udq/internal/token"
)

// Define is one DEFINE declaration: a keyword bound to a parsed
// expression. The tree is built once at declaration time and is immutable
// afterwards; copies of a Define share it. Only the update status mutates
// over the definition's lifetime.
type Define struct {
	keyword  string
	tokens   []token.Token
	tree     ast.Node // shared, immutable
	varType  token.VarType
	location token.Location
	status   Status
	input    string // lazily rendered expression string
}

// NewDefine lexes and parses a DEFINE record's data. Lex and parse errors
// surface here, at declaration time, annotated with the declaration
// location - never at evaluation.
func NewDefine(funcs *functions.Table, keyword string, location token.Location, data []string, reportStep int) (*Define, error) {
	varType, err := token.UDQVarType(keyword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}

	toks, err := lexer.Lex(data)
	if err != nil {
		return nil, fmt.Errorf("DEFINE %s at %s: %w", keyword, location, err)
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("DEFINE %s at %s: %w", keyword, location,
			&ast.SyntaxError{Message: "empty expression"})
	}

	tree, err := ast.Parse(toks, funcs)
	if err != nil {
		return nil, fmt.Errorf("DEFINE %s at %s: %w", keyword, location, err)
	}

	return &Define{
		keyword:  keyword,
		tokens:   toks,
		tree:     tree,
		varType:  varType,
		location: location,
		status:   Status{Policy: token.On, Step: reportStep},
	}, nil
}

// Keyword returns the defined keyword.
func (d *Define) Keyword() string { return d.keyword }

// VarType returns the keyword's declared variable type, fixed forever at
// first declaration.
func (d *Define) VarType() token.VarType { return d.varType }

// Location returns where the definition was declared.
func (d *Define) Location() token.Location { return d.location }

// Status returns the current update policy and its effective step.
func (d *Define) Status() Status { return d.status }

// Tokens returns the classified token stream.
func (d *Define) Tokens() []token.Token {
	return append([]token.Token(nil), d.tokens...)
}

// Tree returns the shared expression tree.
func (d *Define) Tree() ast.Node { return d.tree }

// UpdateStatus transitions the update policy as of a report step.
func (d *Define) UpdateStatus(policy token.Policy, reportStep int) {
	d.status = Status{Policy: policy, Step: reportStep}
}

// InputString renders an input-equivalent expression string, used when
// writing the definition to a restart store.
func (d *Define) InputString() string {
	if d.input == "" {
		d.input = token.Render(d.tokens)
	}
	return d.input
}

// RequiredSummary collects the leaf quantity names this definition reads.
func (d *Define) RequiredSummary(keys map[string]struct{}) {
	ast.RequiredSummary(d.tree, keys)
}

// typeCompatible is the declared-vs-produced variable type check. As in
// the system this engine models, it accepts everything: the scatter step
// absorbs scalar results, and rejecting the remaining combinations has
// never been enabled. Kept as a named predicate so a real check has a
// place to land.
func typeCompatible(declared, produced token.VarType) bool {
	return true
}

// Eval evaluates the definition against a context. A scalar result under
// a vector-typed keyword scatters across the declared universe. Any
// failure is logged once and wrapped with the keyword and declaration
// location, preserving the root cause.
func (d *Define) Eval(ctx *Context) (Set, error) {
	res, err := evalNode(d.tree, ctx)
	if err == nil && !typeCompatible(d.varType, res.VarType()) {
		err = &token.TypeMismatchError{
			Left: d.varType, Right: res.VarType(),
			Detail: "declared and produced types disagree",
		}
	}
	if err != nil {
		ctx.log.Error("UDQ evaluation failed",
			"keyword", d.keyword,
			"file", d.location.File,
			"line", d.location.Line,
			"err", err)
		return Set{}, fmt.Errorf("evaluating %s (defined at %s): %w", d.keyword, d.location, err)
	}

	res = res.WithName(d.keyword)
	if res.IsScalar() && d.varType.IsVector() {
		return d.scatter(res, ctx), nil
	}
	return res, nil
}

// scatter replicates a scalar result (defined or not) across every entity
// of the declared universe, so KEYWORD:ENTITY reads the same value for
// every entity.
func (d *Define) scatter(res Set, ctx *Context) Set {
	var out Set
	switch d.varType {
	case token.WellVar:
		out = NewWells(d.keyword, ctx.Wells())
	case token.GroupVar:
		out = NewGroups(d.keyword, ctx.Groups())
	default:
		return res
	}

	if v, defined := res.ScalarValue(); defined {
		for i := 0; i < out.Len(); i++ {
			out.AssignIndex(i, v)
		}
	}
	return out
}
