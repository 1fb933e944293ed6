// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"encoding/json"
	"fmt"

	"nickandperla.net/udq/internal/ast"
	"nickandperla.net/udq/internal/token"
)

// The snapshot types are the serialized shape of a configuration: plain
// exported structs the generic JSON visitor can walk without bespoke
// per-field code. Everything needed to reconstruct equal-by-value state
// rides along: tokens, trees, assignment records, units, indexes and
// per-keyword policy.

// DefineSnapshot is the serialized form of one definition.
type DefineSnapshot struct {
	Keyword  string          `json:"keyword"`
	Tokens   []token.Token   `json:"tokens"`
	Tree     json.RawMessage `json:"tree"`
	VarType  token.VarType   `json:"var_type"`
	Location token.Location  `json:"location"`
	Status   Status          `json:"status"`
}

// AssignSnapshot is the serialized form of one assignment record list.
type AssignSnapshot struct {
	Keyword string         `json:"keyword"`
	VarType token.VarType  `json:"var_type"`
	Records []AssignRecord `json:"records"`
}

// IndexSnapshot pairs a keyword with its declaration-order index.
type IndexSnapshot struct {
	Keyword string `json:"keyword"`
	Index
}

// ConfigSnapshot is the full serialized configuration.
type ConfigSnapshot struct {
	Params      Params            `json:"params"`
	Defines     []DefineSnapshot  `json:"defines"`
	Assigns     []AssignSnapshot  `json:"assigns"`
	Units       map[string]string `json:"units"`
	Index       []IndexSnapshot   `json:"index"`
	DefineOrder []string          `json:"define_order"`
}

// Snapshot captures the configuration as plain data, in insertion order.
func (c *Config) Snapshot() (ConfigSnapshot, error) {
	snap := ConfigSnapshot{
		Params:      c.params,
		Units:       c.Units(),
		DefineOrder: append([]string(nil), c.defineOrder...),
	}

	for _, kw := range c.order {
		snap.Index = append(snap.Index, IndexSnapshot{Keyword: kw, Index: c.index[kw]})
		if d, ok := c.definitions[kw]; ok {
			tree, err := ast.MarshalNode(d.tree)
			if err != nil {
				return ConfigSnapshot{}, fmt.Errorf("serialize DEFINE %s: %w", kw, err)
			}
			snap.Defines = append(snap.Defines, DefineSnapshot{
				Keyword:  d.keyword,
				Tokens:   d.Tokens(),
				Tree:     tree,
				VarType:  d.varType,
				Location: d.location,
				Status:   d.status,
			})
		}
		if a, ok := c.assignments[kw]; ok {
			snap.Assigns = append(snap.Assigns, AssignSnapshot{
				Keyword: a.keyword,
				VarType: a.varType,
				Records: a.Records(),
			})
		}
	}
	return snap, nil
}

// RestoreConfig rebuilds a configuration from a snapshot. The result is
// equal by value to the snapshotted original.
func RestoreConfig(snap ConfigSnapshot, cfg *Config) error {
	cfg.params = snap.Params
	cfg.units = snap.Units
	if cfg.units == nil {
		cfg.units = make(map[string]string)
	}
	cfg.defineOrder = append([]string(nil), snap.DefineOrder...)

	cfg.order = cfg.order[:0]
	cfg.index = make(map[string]Index, len(snap.Index))
	cfg.typeCount = make(map[token.VarType]int)
	for _, is := range snap.Index {
		cfg.order = append(cfg.order, is.Keyword)
		cfg.index[is.Keyword] = is.Index
		if is.TypeSlot > cfg.typeCount[is.VarType] {
			cfg.typeCount[is.VarType] = is.TypeSlot
		}
	}

	cfg.definitions = make(map[string]*Define, len(snap.Defines))
	for _, ds := range snap.Defines {
		tree, err := ast.UnmarshalNode(ds.Tree)
		if err != nil {
			return fmt.Errorf("restore DEFINE %s: %w", ds.Keyword, err)
		}
		cfg.definitions[ds.Keyword] = &Define{
			keyword:  ds.Keyword,
			tokens:   ds.Tokens,
			tree:     tree,
			varType:  ds.VarType,
			location: ds.Location,
			status:   ds.Status,
		}
	}

	cfg.assignments = make(map[string]*Assign, len(snap.Assigns))
	for _, as := range snap.Assigns {
		cfg.assignments[as.Keyword] = &Assign{
			keyword: as.Keyword,
			varType: as.VarType,
			records: as.Records,
		}
	}
	return nil
}

// MarshalJSON serializes the configuration through its snapshot.
func (c *Config) MarshalJSON() ([]byte, error) {
	snap, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(snap)
}

// UnmarshalJSON restores a serialized configuration. The function table
// and logger are not serialized state; the receiver keeps its own.
func (c *Config) UnmarshalJSON(data []byte) error {
	var snap ConfigSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	return RestoreConfig(snap, c)
}
