// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package lexer normalizes raw UDQ deck fields into classified tokens.
//
// Lexing runs in two passes. Split is quote-aware: content inside '...'
// is never divided, and everything else is split on whitespace,
// parentheses, comma and the arithmetic/comparison operators, with the
// two-character operators checked before their one-character prefixes
// and numeric literals consumed longest-match first. Classify then
// assigns token kinds and merges quantity names with their trailing
// selectors.
package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"nickandperla.net/udq/internal/token"
)

// ErrUnbalancedQuotes reports a ' with no matching close quote.
type ErrUnbalancedQuotes struct {
	Input string
}

func (e *ErrUnbalancedQuotes) Error() string {
	return fmt.Sprintf("unbalanced quotes in %q", e.Input)
}

// splitters in match order: two-character operators before their
// one-character prefixes.
var splitters = []string{
	"==", "!=", ">=", "<=",
	"(", ")", ",", "+", "-", "/", "*", "^", ">", "<",
}

// Split normalizes an ordered list of raw deck strings into words.
// Quoted segments survive intact, quotes included.
func Split(data []string) ([]string, error) {
	var words []string
	for _, item := range data {
		segments, err := quoteSplit(item)
		if err != nil {
			return nil, err
		}
		for _, seg := range segments {
			if token.IsQuoted(seg) {
				words = append(words, seg)
				continue
			}
			words = append(words, splitSegment(seg)...)
		}
	}
	return words, nil
}

// quoteSplit divides an item into quoted and unquoted segments.
func quoteSplit(item string) ([]string, error) {
	var segments []string
	offset := 0
	for {
		open := strings.IndexByte(item[offset:], '\'')
		if open < 0 {
			if offset < len(item) {
				segments = append(segments, item[offset:])
			}
			return segments, nil
		}
		open += offset

		close := strings.IndexByte(item[open+1:], '\'')
		if close < 0 {
			return nil, &ErrUnbalancedQuotes{Input: item}
		}
		close += open + 1

		if open > offset {
			segments = append(segments, item[offset:open])
		}
		segments = append(segments, item[open:close+1])
		offset = close + 1
	}
}

// splitSegment walks an unquoted segment, emitting words between
// whitespace, punctuation and operators.
func splitSegment(seg string) []string {
	var words []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(seg); {
		c := seg[i]

		if unicode.IsSpace(rune(c)) {
			flush()
			i++
			continue
		}

		// Longest valid numeric literal wins at any digit position.
		if c >= '0' && c <= '9' && cur.Len() == 0 {
			if n := numberLen(seg[i:]); n > 0 {
				words = append(words, seg[i:i+n])
				i += n
				continue
			}
		}

		if op, n := matchSplitter(seg[i:]); n > 0 {
			flush()
			words = append(words, op)
			i += n
			continue
		}

		cur.WriteByte(c)
		i++
	}
	flush()
	return words
}

// matchSplitter matches the longest operator or punctuation at the start
// of s.
func matchSplitter(s string) (string, int) {
	for _, sp := range splitters {
		if strings.HasPrefix(s, sp) {
			return sp, len(sp)
		}
	}
	return "", 0
}

// numberLen returns the length of the longest float literal prefix of s,
// or 0 if s does not start a valid literal. Mirrors strtod consumption:
// digits, optional fraction, optional signed exponent.
func numberLen(s string) int {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Classify turns normalized words into tokens. It never fails: unknown
// identifiers pass through as entity references, resolved later by the
// parser and the function table. An identifier-like word immediately
// followed by numbers or further identifier-like words absorbs them as
// its selector, capturing references such as WOPR 'OP1'.
func Classify(words []string) []token.Token {
	var toks []token.Token
	for i := 0; i < len(words); {
		word := words[i]
		kind := token.Classify(word)
		i++

		if kind != token.EntityRef && kind != token.String {
			toks = append(toks, token.Token{Text: word, Kind: kind})
			continue
		}

		// Quantity name, possibly followed by selector entries.
		var selector []string
		for i < len(words) {
			k := token.Classify(words[i])
			if k != token.EntityRef && k != token.String && k != token.Number {
				break
			}
			selector = append(selector, token.StripQuotes(words[i]))
			i++
		}
		toks = append(toks, token.Token{
			Text:     token.StripQuotes(word),
			Kind:     token.EntityRef,
			Selector: selector,
		})
	}
	return toks
}

// Lex runs both passes over raw deck data.
func Lex(data []string) ([]token.Token, error) {
	words, err := Split(data)
	if err != nil {
		return nil, err
	}
	return Classify(words), nil
}
