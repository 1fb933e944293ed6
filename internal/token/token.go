// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines UDQ token kinds, variable types and the keyword
// classification rules shared by the lexer, the parser and the evaluator.
package token

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a token class.
type Kind int

const (
	End Kind = iota
	Number
	String // quoted literal
	EntityRef
	LParen
	RParen
	Comma

	// Binary operators
	Add
	Sub
	Mul
	Div
	Pow

	// Comparison operators
	EQ
	NE
	GT
	LT
	GE
	LE

	// Produced by the parser, never by classification
	UnaryMinus
)

// Token is one classified lexeme. EntityRef tokens may carry a selector:
// the trailing entity names that followed the quantity in the input
// (e.g. WOPR 'OP1' yields one token with Selector ["OP1"]).
type Token struct {
	Text     string   `json:"text"`
	Kind     Kind     `json:"kind"`
	Selector []string `json:"selector,omitempty"`
}

// IsOperator returns true for operator kinds.
func (k Kind) IsOperator() bool {
	switch k {
	case Add, Sub, Mul, Div, Pow, EQ, NE, GT, LT, GE, LE, UnaryMinus:
		return true
	}
	return false
}

// IsComparison returns true for the six comparison kinds.
func (k Kind) IsComparison() bool {
	switch k {
	case EQ, NE, GT, LT, GE, LE:
		return true
	}
	return false
}

// String returns the canonical spelling of a kind.
func (k Kind) String() string {
	switch k {
	case End:
		return "END"
	case Number:
		return "NUMBER"
	case String:
		return "STRING"
	case EntityRef:
		return "ENTITY"
	case LParen:
		return "("
	case RParen:
		return ")"
	case Comma:
		return ","
	case Add:
		return "+"
	case Sub, UnaryMinus:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Pow:
		return "^"
	case EQ:
		return "=="
	case NE:
		return "!="
	case GT:
		return ">"
	case LT:
		return "<"
	case GE:
		return ">="
	case LE:
		return "<="
	}
	return "UNKNOWN"
}

// kindNames maps the text form back to a kind. UnaryMinus is produced by
// the parser, never by classification, so "-" maps to Sub here.
var kindNames = map[string]Kind{
	"END": End, "NUMBER": Number, "STRING": String, "ENTITY": EntityRef,
	"(": LParen, ")": RParen, ",": Comma,
	"+": Add, "-": Sub, "*": Mul, "/": Div, "^": Pow,
	"==": EQ, "!=": NE, ">": GT, "<": LT, ">=": GE, "<=": LE,
	"UNARY-": UnaryMinus,
}

// MarshalText encodes a kind as its canonical spelling.
func (k Kind) MarshalText() ([]byte, error) {
	if k == UnaryMinus {
		return []byte("UNARY-"), nil
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind from its canonical spelling.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, ok := kindNames[string(text)]
	if !ok {
		return fmt.Errorf("unknown token kind %q", string(text))
	}
	*k = kind
	return nil
}

// operatorKinds maps operator and punctuation spellings to kinds.
var operatorKinds = map[string]Kind{
	"(": LParen, ")": RParen, ",": Comma,
	"+": Add, "-": Sub, "*": Mul, "/": Div, "^": Pow,
	"==": EQ, "!=": NE, ">=": GE, "<=": LE, ">": GT, "<": LT,
}

// OperatorKind returns the kind for an operator or punctuation spelling.
func OperatorKind(word string) (Kind, bool) {
	k, ok := operatorKinds[word]
	return k, ok
}

// IsQuoted returns true if the word is a single-quoted literal.
func IsQuoted(word string) bool {
	return len(word) >= 2 && word[0] == '\'' && word[len(word)-1] == '\''
}

// StripQuotes removes one layer of single quotes if present.
func StripQuotes(word string) string {
	if IsQuoted(word) {
		return word[1 : len(word)-1]
	}
	return word
}

// Classify assigns a kind to one normalized word. Classification never
// fails: anything that is not an operator, punctuation or number passes
// through as an entity reference and is resolved later by the parser.
func Classify(word string) Kind {
	if k, ok := OperatorKind(word); ok {
		return k
	}
	if IsQuoted(word) {
		return String
	}
	if _, err := strconv.ParseFloat(word, 64); err == nil {
		return Number
	}
	return EntityRef
}

// Quantity returns the quantity name an EntityRef token refers to, with
// quoting removed.
func (t Token) Quantity() string {
	return StripQuotes(t.Text)
}

// Render reconstructs an input-equivalent expression string from a token
// slice. Selectors are re-quoted so the result survives another lexer pass.
// Used to write DEFINE expressions to the restart store.
func Render(tokens []Token) string {
	var sb strings.Builder
	for i, t := range tokens {
		if i > 0 && needsSpace(tokens[i-1].Kind, t.Kind) {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
		for _, sel := range t.Selector {
			sb.WriteString(" '")
			sb.WriteString(sel)
			sb.WriteByte('\'')
		}
	}
	return sb.String()
}

func needsSpace(prev, next Kind) bool {
	return prev != LParen && next != RParen && next != Comma
}
