// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"log/slog"
	"path"

	"nickandperla.net/udq/internal/functions"
)

// Universe exposes the ordered well and group name lists defining the
// live entity universe at the moment of evaluation.
type Universe interface {
	Wells() []string
	Groups() []string
}

// ResultStore is the external key/value result store. Keys are "VAR" for
// field scalars and "VAR:ENTITY" for per-entity values. The store owns
// the accumulation policy for total quantities; the engine only reads and
// writes through it.
type ResultStore interface {
	Has(key string) bool
	Get(key string) (float64, bool)
	// UpdateUDQ writes a whole set, substituting undefined for the given
	// sentinel value under the store's own update rules.
	UpdateUDQ(set Set, undefined float64)
}

// Context binds one evaluation to the live universe, the result store and
// the update-policy state. It borrows everything it references and must
// not be retained past the eval call that created it: the universe and
// the store both change between report steps.
type Context struct {
	funcs  *functions.Table
	wells  []string // universe snapshot, ordered
	groups []string // universe snapshot, ordered
	store  ResultStore
	state  *State
	params Params
	log    *slog.Logger
}

// NewContext snapshots the universe and wires up the collaborators for
// one evaluation pass.
func NewContext(funcs *functions.Table, universe Universe, store ResultStore, state *State, params Params, log *slog.Logger) *Context {
	if log == nil {
		log = slog.Default()
	}
	return &Context{
		funcs:  funcs,
		wells:  append([]string(nil), universe.Wells()...),
		groups: append([]string(nil), universe.Groups()...),
		store:  store,
		state:  state,
		params: params,
		log:    log,
	}
}

// Wells returns the well universe snapshot.
func (c *Context) Wells() []string { return c.wells }

// Groups returns the group universe snapshot.
func (c *Context) Groups() []string { return c.groups }

// Funcs returns the shared function table.
func (c *Context) Funcs() *functions.Table { return c.funcs }

// Params returns the engine parameters.
func (c *Context) Params() Params { return c.params }

// Get reads one result-store key.
func (c *Context) Get(key string) (float64, bool) {
	return c.store.Get(key)
}

// GetEntityVar reads a per-entity key ("VAR:ENTITY").
func (c *Context) GetEntityVar(name, entity string) (float64, bool) {
	return c.store.Get(name + ":" + entity)
}

// MatchWells expands a well selector pattern ('*' and '?' wildcards)
// against the universe snapshot, preserving universe order.
func (c *Context) MatchWells(pattern string) []string {
	return matchNames(pattern, c.wells)
}

// MatchGroups expands a group selector pattern against the universe
// snapshot.
func (c *Context) MatchGroups(pattern string) []string {
	return matchNames(pattern, c.groups)
}

func matchNames(pattern string, names []string) []string {
	if !hasPattern(pattern) {
		for _, n := range names {
			if n == pattern {
				return []string{n}
			}
		}
		return nil
	}
	var out []string
	for _, n := range names {
		if ok, err := path.Match(pattern, n); err == nil && ok {
			out = append(out, n)
		}
	}
	return out
}

func hasPattern(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// UpdateAssign writes an ASSIGN result through the store and records the
// firing so the keyword is not re-assigned at this step.
func (c *Context) UpdateAssign(reportStep int, keyword string, set Set) {
	c.store.UpdateUDQ(set, c.params.UndefinedValue)
	c.state.AddAssign(reportStep, keyword)
}

// UpdateDefine writes a DEFINE result through the store and records that
// the definition fired this step.
func (c *Context) UpdateDefine(reportStep int, keyword string, set Set) {
	c.store.UpdateUDQ(set, c.params.UndefinedValue)
	c.state.AddDefine(reportStep, keyword)
}
