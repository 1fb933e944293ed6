// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package summary is the persistent key/value result store the UDQ engine
// reads from and writes to. Keys are "VAR" for field scalars and
// "VAR:ENTITY" for per-entity values. Variables whose names mark totals
// accumulate on update; everything else overwrites. The store also keeps
// the ordered well and group registries that define the live entity
// universe.
package summary

import (
	"strings"

	"nickandperla.net/udq/internal/eval"
	"nickandperla.net/udq/internal/token"
)

// totalSuffixes are the variable-name stems that accumulate. The leading
// entity character (W/G/F/...) is skipped before matching.
var totalSuffixes = []string{
	"OPT", "GPT", "WPT", "GIT", "WIT", "OPTF", "OPTS", "OIT", "OVPT", "OVIT", "MWT",
	"WVPT", "WVIT", "GMT", "GPTF", "SGT", "GST", "FGT", "GCT", "GIMT",
	"WGPT", "WGIT", "EGT", "EXGT", "GVPT", "GVIT", "LPT", "VPT", "VIT", "NPT", "NIT",
	"TPT", "TIT", "CPT", "CIT", "SPT", "SIT", "EPT", "EIT", "TPTHEA", "TITHEA",
	"OFT", "OFT+", "OFT-", "OFTG", "OFTL",
	"GFT", "GFT+", "GFT-", "GFTG", "GFTL",
	"WFT", "WFT+", "WFT-",
}

func isTotal(key string) bool {
	if sep := strings.IndexByte(key, ':'); sep == 0 {
		return false
	} else if sep > 0 {
		key = key[:sep]
	}
	if len(key) < 2 {
		return false
	}
	stem := key[1:]
	for _, t := range totalSuffixes {
		if strings.HasPrefix(stem, t) {
			return true
		}
	}
	return false
}

// State is an in-memory result store with ordered entity registries.
type State struct {
	values   map[string]float64
	wells    []string
	wellSet  map[string]struct{}
	groups   []string
	groupSet map[string]struct{}
}

// New returns an empty store.
func New() *State {
	return &State{
		values:   make(map[string]float64),
		wellSet:  make(map[string]struct{}),
		groupSet: make(map[string]struct{}),
	}
}

// AddWell registers a well name, keeping first-seen order.
func (s *State) AddWell(well string) {
	if _, ok := s.wellSet[well]; !ok {
		s.wellSet[well] = struct{}{}
		s.wells = append(s.wells, well)
	}
}

// AddGroup registers a group name, keeping first-seen order.
func (s *State) AddGroup(group string) {
	if _, ok := s.groupSet[group]; !ok {
		s.groupSet[group] = struct{}{}
		s.groups = append(s.groups, group)
	}
}

// Wells returns the ordered well universe.
func (s *State) Wells() []string { return append([]string(nil), s.wells...) }

// Groups returns the ordered group universe.
func (s *State) Groups() []string { return append([]string(nil), s.groups...) }

// Has reports whether a key holds a value.
func (s *State) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Get reads one key.
func (s *State) Get(key string) (float64, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetOr reads one key with a fallback.
func (s *State) GetOr(key string, fallback float64) float64 {
	if v, ok := s.values[key]; ok {
		return v
	}
	return fallback
}

// Update writes a field-scalar key under the accumulation rule.
func (s *State) Update(key string, value float64) {
	if isTotal(key) {
		s.values[key] += value
	} else {
		s.values[key] = value
	}
}

// UpdateWellVar writes a per-well value and registers the well.
func (s *State) UpdateWellVar(well, variable string, value float64) {
	s.AddWell(well)
	s.writeEntity(variable+":"+well, variable, value)
}

// UpdateGroupVar writes a per-group value and registers the group.
func (s *State) UpdateGroupVar(group, variable string, value float64) {
	s.AddGroup(group)
	s.writeEntity(variable+":"+group, variable, value)
}

func (s *State) writeEntity(key, variable string, value float64) {
	if isTotal(variable) {
		s.values[key] += value
	} else {
		s.values[key] = value
	}
}

// UpdateUDQ writes a whole evaluated set: per-entity for well and group
// sets, a single key for scalar and field sets. Undefined entries are
// written as the given sentinel; the store never invents zeros.
func (s *State) UpdateUDQ(set eval.Set, undefined float64) {
	switch set.VarType() {
	case token.WellVar:
		for _, e := range set.Entries() {
			s.UpdateWellVar(e.Name, set.Name(), valueOr(e, undefined))
		}
	case token.GroupVar:
		for _, e := range set.Entries() {
			s.UpdateGroupVar(e.Name, set.Name(), valueOr(e, undefined))
		}
	default:
		v, definedOK := set.ScalarValue()
		if !definedOK {
			v = undefined
		}
		s.Update(set.Name(), v)
	}
}

func valueOr(e eval.Entry, fallback float64) float64 {
	if e.Defined {
		return e.Value
	}
	return fallback
}

// Keys returns every stored key (unordered).
func (s *State) Keys() []string {
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	return out
}
