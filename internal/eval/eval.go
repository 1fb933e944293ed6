// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package eval is the UDQ evaluation engine: the vectorized set type, the
// per-evaluation context, the DEFINE/ASSIGN declaration types and the
// order- and policy-gated configuration driver.
package eval

import (
	"fmt"

	"nickandperla.net/udq/internal/ast"
	"nickandperla.net/udq/internal/token"
)

// evalNode evaluates an expression tree against a context, recursing over
// the closed node set. Undefined values propagate; only structural
// problems (mixed universes, unsupported variable classes) return errors.
func evalNode(n ast.Node, ctx *Context) (Set, error) {
	switch v := n.(type) {
	case ast.Number:
		return NewScalar("", v.Value), nil

	case *ast.EntityRef:
		return evalEntityRef(v, ctx)

	case *ast.UnaryOp:
		child, err := evalNode(v.Child, ctx)
		if err != nil {
			return Set{}, err
		}
		return child.Negate(), nil

	case *ast.BinaryOp:
		left, err := evalNode(v.Left, ctx)
		if err != nil {
			return Set{}, err
		}
		right, err := evalNode(v.Right, ctx)
		if err != nil {
			return Set{}, err
		}
		return BinOp(v.Op, left, right, ctx.Params().CmpEpsilon)

	case *ast.Call:
		return evalCall(v, ctx)
	}
	return Set{}, fmt.Errorf("unhandled expression node %T", n)
}

func evalCall(call *ast.Call, ctx *Context) (Set, error) {
	fn, ok := ctx.Funcs().Lookup(call.Func)
	if !ok {
		// The parser verified the name; a miss here means the tables
		// diverged between parse and eval.
		return Set{}, fmt.Errorf("function %q vanished from the registry", call.Func)
	}

	arg, err := evalNode(call.Args[0], ctx)
	if err != nil {
		return Set{}, err
	}
	if fn.Reduce != nil {
		return arg.Reduce(fn), nil
	}
	return arg.MapElem(fn), nil
}

// evalEntityRef pulls a quantity from the result store across the live
// universe. An empty selector spans the whole universe, a wildcard
// selector spans the matched subset, and an exact selector collapses to a
// scalar. Missing store entries become undefined, never zero.
func evalEntityRef(ref *ast.EntityRef, ctx *Context) (Set, error) {
	switch ref.Type {
	case token.WellVar:
		return evalVectorRef(ref, ctx, ctx.Wells(), ctx.MatchWells, NewWells)
	case token.GroupVar:
		return evalVectorRef(ref, ctx, ctx.Groups(), ctx.MatchGroups, NewGroups)
	case token.FieldVar, token.Scalar:
		if v, ok := ctx.Get(ref.Name); ok {
			return NewScalar(ref.Name, v), nil
		}
		return NewUndefinedScalar(ref.Name), nil
	case token.SegmentVar:
		return Set{}, fmt.Errorf("segment quantity %s is not supported in this evaluation path", ref.Name)
	}
	return Set{}, fmt.Errorf("cannot evaluate reference to %s (%s)", ref.Name, ref.Type)
}

func evalVectorRef(ref *ast.EntityRef, ctx *Context, universe []string,
	match func(string) []string, build func(string, []string) Set) (Set, error) {

	if len(ref.Selector) == 0 {
		set := build(ref.Name, universe)
		fillFromStore(&set, ref.Name, ctx)
		return set, nil
	}

	pattern := ref.Selector[0]
	if !hasPattern(pattern) {
		// Exact entity: collapses to a scalar, later scattered back out
		// if the defined keyword is vector typed.
		if v, ok := ctx.GetEntityVar(ref.Name, pattern); ok {
			return NewScalar(ref.Name, v), nil
		}
		return NewUndefinedScalar(ref.Name), nil
	}

	set := build(ref.Name, match(pattern))
	fillFromStore(&set, ref.Name, ctx)
	return set, nil
}

func fillFromStore(set *Set, name string, ctx *Context) {
	for i := 0; i < set.Len(); i++ {
		if v, ok := ctx.GetEntityVar(name, set.Entry(i).Name); ok {
			set.AssignIndex(i, v)
		}
	}
}
