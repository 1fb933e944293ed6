// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package ast

import (
	"fmt"
	"strconv"

	"nickandperla.net/udq/internal/functions"
	"nickandperla.net/udq/internal/token"
)

// SyntaxError reports a malformed token sequence at declaration time.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Message
}

// UnknownFunctionError reports a call to a name absent from the function
// table.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}

// Parse builds a typed expression tree from a classified token stream.
// Parsing happens once, at declaration time; the returned tree is
// immutable. Precedence, low to high: comparisons, additive,
// multiplicative, unary minus, power, call/parenthesized primary.
func Parse(tokens []token.Token, funcs *functions.Table) (Node, error) {
	p := &parser{tokens: tokens, funcs: funcs}
	node, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, &SyntaxError{Message: fmt.Sprintf("unexpected trailing token %q", p.peek().Text)}
	}
	return node, nil
}

type parser struct {
	tokens []token.Token
	pos    int
	funcs  *functions.Table
}

func (p *parser) atEnd() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() token.Token {
	if p.atEnd() {
		return token.Token{Kind: token.End}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() token.Token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind.IsComparison() {
		op := p.next().Kind
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left, err = newBinary(op, left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		k := p.peek().Kind
		if k != token.Add && k != token.Sub {
			return left, nil
		}
		op := p.next().Kind
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left, err = newBinary(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		k := p.peek().Kind
		if k != token.Mul && k != token.Div {
			return left, nil
		}
		op := p.next().Kind
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left, err = newBinary(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if p.peek().Kind == token.Sub {
		p.next()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: token.UnaryMinus, Child: child}, nil
	}
	return p.parsePower()
}

// parsePower is right associative: a^b^c parses as a^(b^c).
func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != token.Pow {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return newBinary(token.Pow, base, exp)
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.peek()
	switch t.Kind {
	case token.Number:
		p.next()
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, &SyntaxError{Message: fmt.Sprintf("bad numeric literal %q", t.Text)}
		}
		return Number{Value: v}, nil

	case token.LParen:
		p.next()
		inner, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != token.RParen {
			return nil, &SyntaxError{Message: "unbalanced parentheses"}
		}
		p.next()
		return inner, nil

	case token.EntityRef:
		p.next()
		if p.peek().Kind == token.LParen {
			return p.parseCall(t)
		}
		return &EntityRef{
			Name:     t.Quantity(),
			Selector: t.Selector,
			Type:     token.TargetVarType(t.Quantity()),
		}, nil

	case token.End:
		return nil, &SyntaxError{Message: "unexpected end of expression"}
	}
	return nil, &SyntaxError{Message: fmt.Sprintf("unexpected token %q", t.Text)}
}

func (p *parser) parseCall(head token.Token) (Node, error) {
	name := head.Quantity()
	fn, ok := p.funcs.Lookup(name)
	if !ok {
		return nil, &UnknownFunctionError{Name: name}
	}
	if len(head.Selector) != 0 {
		return nil, &SyntaxError{Message: fmt.Sprintf("function %s cannot take a selector", name)}
	}

	p.next() // consume '('
	if p.peek().Kind == token.RParen {
		return nil, &SyntaxError{Message: fmt.Sprintf("empty argument list for %s", name)}
	}

	var args []Node
	for {
		arg, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().Kind == token.Comma {
			p.next()
			continue
		}
		break
	}
	if p.peek().Kind != token.RParen {
		return nil, &SyntaxError{Message: fmt.Sprintf("missing ) in call to %s", name)}
	}
	p.next()

	if len(args) != fn.Arity {
		return nil, &SyntaxError{
			Message: fmt.Sprintf("%s expects %d argument(s), got %d", name, fn.Arity, len(args)),
		}
	}

	typ, err := callType(fn, args)
	if err != nil {
		return nil, err
	}
	return &Call{Func: name, Args: args, Type: typ}, nil
}

// newBinary constructs a binary node, promoting the operand types under
// the broadcast rule.
func newBinary(op token.Kind, left, right Node) (Node, error) {
	typ, err := token.Promote(left.VarType(), right.VarType())
	if err != nil {
		return nil, err
	}
	return &BinaryOp{Op: op, Left: left, Right: right, Type: typ}, nil
}

// callType infers a call's type: reducing functions collapse any argument
// type to Scalar, elementwise calls keep the promoted argument type.
func callType(fn functions.Function, args []Node) (token.VarType, error) {
	if fn.Kind == functions.Reducing {
		return token.Scalar, nil
	}
	typ := token.Scalar
	for _, arg := range args {
		t, err := token.Promote(typ, arg.VarType())
		if err != nil {
			return token.NoneVar, err
		}
		typ = t
	}
	return typ, nil
}
