// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"nickandperla.net/udq/internal/ast"
	"nickandperla.net/udq/internal/functions"
	"nickandperla.net/udq/internal/token"
)

// UnitConflictError reports an attempt to change a keyword's unit after
// it was set.
type UnitConflictError struct {
	Keyword string
	Old     string
	New     string
}

func (e *UnitConflictError) Error() string {
	return fmt.Sprintf("illegal to change unit of UDQ %s from %q to %q at runtime",
		e.Keyword, e.Old, e.New)
}

// UpdateWithoutDefineError reports an UPDATE record for a keyword with no
// prior DEFINE.
type UpdateWithoutDefineError struct {
	Keyword string
}

func (e *UpdateWithoutDefineError) Error() string {
	return fmt.Sprintf("UDQ %s must be DEFINEd before UPDATE", e.Keyword)
}

// Index is a keyword's slot in the declaration order: a unique, stable
// insertion index, a per-variable-type counter, and the latest action.
type Index struct {
	InsertIndex int           `json:"insert_index"`
	TypeSlot    int           `json:"type_slot"`
	Action      token.Action  `json:"action"`
	VarType     token.VarType `json:"var_type"`
}

// Config is the declaration store and evaluation driver. It owns every
// DEFINE/ASSIGN/unit declaration and walks them in declaration order at
// each report step, gated per keyword by the update-policy state.
type Config struct {
	params      Params
	funcs       *functions.Table
	definitions map[string]*Define
	assignments map[string]*Assign
	units       map[string]string
	index       map[string]Index
	order       []string // keywords in insertion order
	defineOrder []string // DEFINE keywords in first-declaration order
	typeCount   map[token.VarType]int
	log         *slog.Logger
}

// NewConfig builds an empty configuration. The function table is built
// once here and shared by reference with every parse and eval.
func NewConfig(params Params, log *slog.Logger) *Config {
	if log == nil {
		log = slog.Default()
	}
	return &Config{
		params:      params,
		funcs:       functions.New(),
		definitions: make(map[string]*Define),
		assignments: make(map[string]*Assign),
		units:       make(map[string]string),
		index:       make(map[string]Index),
		typeCount:   make(map[token.VarType]int),
		log:         log,
	}
}

// Params returns the engine parameters.
func (c *Config) Params() Params { return c.params }

// Funcs returns the shared function table.
func (c *Config) Funcs() *functions.Table { return c.funcs }

// addNode registers a keyword in the declaration order the first time it
// appears; later records only refresh the action. The insert index and
// the variable type are fixed forever at first declaration.
func (c *Config) addNode(keyword string, action token.Action) error {
	if idx, ok := c.index[keyword]; ok {
		idx.Action = action
		c.index[keyword] = idx
		return nil
	}

	varType, err := token.UDQVarType(keyword)
	if err != nil {
		return err
	}
	c.typeCount[varType]++
	c.index[keyword] = Index{
		InsertIndex: len(c.index),
		TypeSlot:    c.typeCount[varType],
		Action:      action,
		VarType:     varType,
	}
	c.order = append(c.order, keyword)
	return nil
}

// AddAssign records an ASSIGN for a keyword, appending to its record list
// if the keyword was assigned before.
func (c *Config) AddAssign(keyword string, selector []string, value float64, reportStep int) error {
	if err := c.addNode(keyword, token.Assign); err != nil {
		return err
	}
	if existing, ok := c.assignments[keyword]; ok {
		existing.AddRecord(selector, value, reportStep)
		return nil
	}
	assign, err := NewAssign(keyword, selector, value, reportStep)
	if err != nil {
		return err
	}
	c.assignments[keyword] = assign
	return nil
}

// AddDefine parses and records a DEFINE for a keyword. A later DEFINE for
// the same keyword replaces the expression.
func (c *Config) AddDefine(keyword string, location token.Location, data []string, reportStep int) error {
	if err := c.addNode(keyword, token.Define); err != nil {
		return err
	}
	define, err := NewDefine(c.funcs, keyword, location, data, reportStep)
	if err != nil {
		return err
	}
	if _, seen := c.definitions[keyword]; !seen {
		c.defineOrder = append(c.defineOrder, keyword)
	}
	c.definitions[keyword] = define
	return nil
}

// AddUnit records a keyword's unit string. Re-declaring a different unit
// is an error; re-declaring the same unit is a no-op.
func (c *Config) AddUnit(keyword, quotedUnit string) error {
	unit := token.StripQuotes(quotedUnit)
	if old, ok := c.units[keyword]; ok {
		if old != unit {
			return &UnitConflictError{Keyword: keyword, Old: old, New: unit}
		}
		return nil
	}
	c.units[keyword] = unit
	return nil
}

// AddUpdate transitions a DEFINE keyword's update policy as of a report
// step. Only legal once the keyword has a DEFINE.
func (c *Config) AddUpdate(keyword string, reportStep int, location token.Location, data []string) error {
	if len(data) == 0 {
		return fmt.Errorf("%s: %w", location,
			&ast.SyntaxError{Message: fmt.Sprintf("missing ON|OFF|NEXT item for UDQ update of %s", keyword)})
	}
	define, ok := c.definitions[keyword]
	if !ok {
		return fmt.Errorf("%s: %w", location, &UpdateWithoutDefineError{Keyword: keyword})
	}
	policy, err := token.ParsePolicy(data[0])
	if err != nil {
		return fmt.Errorf("%s: %w", location, err)
	}
	define.UpdateStatus(policy, reportStep)
	return nil
}

// AddRecord is the single intake point for deck records, dispatching on
// the ACTION field. ASSIGN data is selector entries followed by the
// value; DEFINE data is the expression tokens; UNITS data is the unit
// string; UPDATE data is ON|OFF|NEXT.
func (c *Config) AddRecord(action, quantity string, data []string, location token.Location, reportStep int) error {
	act, err := token.ParseAction(action)
	if err != nil {
		return fmt.Errorf("%s: %w", location, err)
	}

	switch act {
	case token.Update:
		return c.AddUpdate(quantity, reportStep, location, data)
	case token.Units:
		if len(data) == 0 {
			return fmt.Errorf("%s: %w", location,
				&ast.SyntaxError{Message: fmt.Sprintf("missing unit string for %s", quantity)})
		}
		return c.AddUnit(quantity, data[0])
	case token.Assign:
		if len(data) == 0 {
			return fmt.Errorf("%s: %w", location,
				&ast.SyntaxError{Message: fmt.Sprintf("missing value for ASSIGN %s", quantity)})
		}
		value, err := strconv.ParseFloat(data[len(data)-1], 64)
		if err != nil {
			return fmt.Errorf("%s: %w", location,
				&ast.SyntaxError{Message: fmt.Sprintf("bad ASSIGN value %q for %s", data[len(data)-1], quantity)})
		}
		return c.AddAssign(quantity, data[:len(data)-1], value, reportStep)
	case token.Define:
		return c.AddDefine(quantity, location, data, reportStep)
	}
	return fmt.Errorf("%s: unknown UDQ action %q", location, action)
}

// Has reports whether a keyword has any ASSIGN or DEFINE.
func (c *Config) Has(keyword string) bool {
	_, a := c.assignments[keyword]
	_, d := c.definitions[keyword]
	return a || d
}

// Size counts the keywords with an ASSIGN or DEFINE.
func (c *Config) Size() int {
	n := 0
	for _, kw := range c.order {
		switch c.index[kw].Action {
		case token.Assign, token.Define:
			n++
		}
	}
	return n
}

// Unit returns a keyword's unit string.
func (c *Config) Unit(keyword string) (string, bool) {
	u, ok := c.units[keyword]
	return u, ok
}

// Units returns a copy of the unit table.
func (c *Config) Units() map[string]string {
	out := make(map[string]string, len(c.units))
	for k, v := range c.units {
		out[k] = v
	}
	return out
}

// Lookup returns a keyword's declaration-order index.
func (c *Config) Lookup(keyword string) (Index, bool) {
	idx, ok := c.index[keyword]
	return idx, ok
}

// LookupByInsertIndex returns the keyword occupying one insertion slot.
func (c *Config) LookupByInsertIndex(insertIndex int) (string, bool) {
	if insertIndex < 0 || insertIndex >= len(c.order) {
		return "", false
	}
	return c.order[insertIndex], true
}

// Keywords returns the declared keywords in insertion order.
func (c *Config) Keywords() []string {
	return append([]string(nil), c.order...)
}

// Define returns the definition for a keyword.
func (c *Config) Define(keyword string) (*Define, bool) {
	d, ok := c.definitions[keyword]
	return d, ok
}

// Assign returns the assignment records for a keyword.
func (c *Config) Assign(keyword string) (*Assign, bool) {
	a, ok := c.assignments[keyword]
	return a, ok
}

// Definitions returns every definition in first-declaration order.
func (c *Config) Definitions() []*Define {
	out := make([]*Define, 0, len(c.defineOrder))
	for _, kw := range c.defineOrder {
		if d, ok := c.definitions[kw]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Assignments returns every assignment in insertion order.
func (c *Config) Assignments() []*Assign {
	out := make([]*Assign, 0, len(c.assignments))
	for _, kw := range c.order {
		if a, ok := c.assignments[kw]; ok {
			out = append(out, a)
		}
	}
	return out
}

// assignmentsOfType returns assignments of one variable type in insertion
// order.
func (c *Config) assignmentsOfType(vt token.VarType) []*Assign {
	var out []*Assign
	for _, kw := range c.order {
		if a, ok := c.assignments[kw]; ok && a.VarType() == vt {
			out = append(out, a)
		}
	}
	return out
}

// RequiredSummary adds every quantity name any DEFINE reads to keys, so
// the host can ensure the upstream values exist before evaluation.
func (c *Config) RequiredSummary(keys map[string]struct{}) {
	for _, d := range c.definitions {
		d.RequiredSummary(keys)
	}
}

// RequiredSummaryKeys is RequiredSummary with a sorted slice result.
func (c *Config) RequiredSummaryKeys() []string {
	keys := make(map[string]struct{})
	c.RequiredSummary(keys)
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Eval runs one report step: due ASSIGNs first, then due DEFINEs in
// declaration order. Results already written when a later keyword fails
// stay in the result store; there is no rollback.
func (c *Config) Eval(reportStep int, universe Universe, store ResultStore, state *State) error {
	ctx := NewContext(c.funcs, universe, store, state, c.params, c.log)
	if err := c.evalAssign(reportStep, ctx, state); err != nil {
		return err
	}
	return c.evalDefine(reportStep, ctx, state)
}

// EvalAssign runs only the ASSIGN pass, used when a restart needs
// assignments re-applied without re-evaluating definitions.
func (c *Config) EvalAssign(reportStep int, universe Universe, store ResultStore, state *State) error {
	ctx := NewContext(c.funcs, universe, store, state, c.params, c.log)
	return c.evalAssign(reportStep, ctx, state)
}

// evalAssign resolves due ASSIGN keywords in the fixed variable-type
// order wells, groups, field.
func (c *Config) evalAssign(reportStep int, ctx *Context, state *State) error {
	for _, assign := range c.assignmentsOfType(token.WellVar) {
		if state.Assign(reportStep, assign.Keyword()) {
			ctx.UpdateAssign(reportStep, assign.Keyword(), assign.Eval(ctx.Wells()))
		}
	}
	for _, assign := range c.assignmentsOfType(token.GroupVar) {
		if state.Assign(reportStep, assign.Keyword()) {
			ctx.UpdateAssign(reportStep, assign.Keyword(), assign.Eval(ctx.Groups()))
		}
	}
	for _, assign := range c.assignmentsOfType(token.FieldVar) {
		if state.Assign(assign.ReportStep(), assign.Keyword()) {
			ctx.UpdateAssign(reportStep, assign.Keyword(), assign.EvalScalar())
		}
	}
	return nil
}

// evalDefine walks DEFINE keywords in declaration order, restricted to
// the well/group/field variable types (segment definitions use a separate
// segment-aware path), evaluating those the state machine reports due.
func (c *Config) evalDefine(reportStep int, ctx *Context, state *State) error {
	for _, kw := range c.order {
		idx := c.index[kw]
		if idx.Action != token.Define {
			continue
		}
		def, ok := c.definitions[kw]
		if !ok {
			return fmt.Errorf("internal error: UDQ %s is indexed as DEFINE but has no definition", kw)
		}

		switch def.VarType() {
		case token.WellVar, token.GroupVar, token.FieldVar:
		default:
			continue
		}
		if !state.Define(kw, def.Status()) {
			continue
		}

		set, err := def.Eval(ctx)
		if err != nil {
			return err
		}
		ctx.UpdateDefine(reportStep, kw, set)
	}
	return nil
}
