// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"fmt"
	"path"

	"nickandperla.net/udq/internal/token"
)

// AssignRecord is one ASSIGN occurrence for a keyword: the entities it
// selects, the value, and the report step it arrived at.
type AssignRecord struct {
	Selector   []string `json:"selector,omitempty"`
	Value      float64  `json:"value"`
	ReportStep int      `json:"report_step"`
}

// Assign is the ordered record list for one ASSIGN keyword. Records apply
// in arrival order; each only overwrites the entities it selects.
type Assign struct {
	keyword string
	varType token.VarType
	records []AssignRecord
}

// NewAssign starts a record list for a keyword.
func NewAssign(keyword string, selector []string, value float64, reportStep int) (*Assign, error) {
	varType, err := token.UDQVarType(keyword)
	if err != nil {
		return nil, err
	}
	a := &Assign{keyword: keyword, varType: varType}
	a.AddRecord(selector, value, reportStep)
	return a, nil
}

// AddRecord appends a later ASSIGN occurrence for the same keyword.
func (a *Assign) AddRecord(selector []string, value float64, reportStep int) {
	stripped := make([]string, len(selector))
	for i, s := range selector {
		stripped[i] = token.StripQuotes(s)
	}
	a.records = append(a.records, AssignRecord{
		Selector:   stripped,
		Value:      value,
		ReportStep: reportStep,
	})
}

// Keyword returns the assigned keyword.
func (a *Assign) Keyword() string { return a.keyword }

// VarType returns the keyword's variable type, fixed at first declaration.
func (a *Assign) VarType() token.VarType { return a.varType }

// Records returns a copy of the record list.
func (a *Assign) Records() []AssignRecord {
	return append([]AssignRecord(nil), a.records...)
}

// ReportStep returns the arrival step of the latest record.
func (a *Assign) ReportStep() int {
	return a.records[len(a.records)-1].ReportStep
}

// Eval builds the keyword's set over a universe snapshot, applying each
// record in order. Entities no record selects stay undefined. Selector
// entries may be exact names or '*'/'?' patterns.
func (a *Assign) Eval(entities []string) Set {
	set := newVector(a.keyword, a.varType, entities)
	for _, rec := range a.records {
		if len(rec.Selector) == 0 {
			for i := 0; i < set.Len(); i++ {
				set.AssignIndex(i, rec.Value)
			}
			continue
		}
		for _, sel := range rec.Selector {
			assignMatching(&set, sel, rec.Value)
		}
	}
	return set
}

func assignMatching(set *Set, selector string, value float64) {
	if !hasPattern(selector) {
		set.Assign(selector, value)
		return
	}
	for i := 0; i < set.Len(); i++ {
		if ok, err := path.Match(selector, set.Entry(i).Name); err == nil && ok {
			set.AssignIndex(i, value)
		}
	}
}

// EvalScalar builds the field/scalar form: the latest record wins.
func (a *Assign) EvalScalar() Set {
	return NewField(a.keyword, a.records[len(a.records)-1].Value)
}

func (a *Assign) String() string {
	return fmt.Sprintf("ASSIGN %s (%d records)", a.keyword, len(a.records))
}
