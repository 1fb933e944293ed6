// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package token

import (
	"fmt"
	"strings"
)

// Action is the verb of one UDQ deck record.
type Action int

const (
	Assign Action = iota
	Define
	Units
	Update
)

// String returns the deck spelling of an action.
func (a Action) String() string {
	switch a {
	case Assign:
		return "ASSIGN"
	case Define:
		return "DEFINE"
	case Units:
		return "UNITS"
	case Update:
		return "UPDATE"
	}
	return "UNKNOWN"
}

// MarshalText encodes an action by its deck spelling.
func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText decodes an action from its deck spelling.
func (a *Action) UnmarshalText(text []byte) error {
	act, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = act
	return nil
}

// ParseAction parses an ACTION field, case-insensitively.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASSIGN":
		return Assign, nil
	case "DEFINE":
		return Define, nil
	case "UNITS", "UNIT":
		return Units, nil
	case "UPDATE":
		return Update, nil
	}
	return Assign, fmt.Errorf("unknown UDQ action %q", s)
}

// Policy controls whether and when a DEFINE re-evaluates across report
// steps.
type Policy int

const (
	// On re-evaluates at every report step.
	On Policy = iota
	// Off suspends evaluation until another UPDATE.
	Off
	// Next evaluates exactly once at the qualifying step, then reads as Off.
	Next
)

// String returns the deck spelling of a policy.
func (p Policy) String() string {
	switch p {
	case On:
		return "ON"
	case Off:
		return "OFF"
	case Next:
		return "NEXT"
	}
	return "UNKNOWN"
}

// MarshalText encodes a policy by its deck spelling.
func (p Policy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText decodes a policy from its deck spelling.
func (p *Policy) UnmarshalText(text []byte) error {
	pol, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = pol
	return nil
}

// ParsePolicy parses an UPDATE payload (ON, OFF or NEXT), case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(StripQuotes(s))) {
	case "ON":
		return On, nil
	case "OFF":
		return Off, nil
	case "NEXT":
		return Next, nil
	}
	return On, fmt.Errorf("unknown UDQ update policy %q, expected ON|OFF|NEXT", s)
}

// Location records where a declaration came from, for error reporting.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// RestartLocation marks declarations replayed from a restart store.
func RestartLocation() Location {
	return Location{File: "restart", Line: 0}
}

func (l Location) String() string {
	return fmt.Sprintf("%s line %d", l.File, l.Line)
}
