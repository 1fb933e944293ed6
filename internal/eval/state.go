// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"encoding/json"

	"nickandperla.net/udq/internal/token"
)

// Status is a definition's update policy together with the report step at
// which that policy took effect.
type Status struct {
	Policy token.Policy `json:"policy"`
	Step   int          `json:"step"`
}

// State tracks, per keyword, the last report step at which an ASSIGN or
// DEFINE fired. Together with each definition's Status it decides whether
// evaluation is due at a given step. It persists across steps and rides
// along in restart snapshots.
type State struct {
	assigned map[string]int
	defined  map[string]int
}

// NewState returns an empty tracker.
func NewState() *State {
	return &State{
		assigned: make(map[string]int),
		defined:  make(map[string]int),
	}
}

// Assign reports whether an ASSIGN for keyword is due at reportStep: due
// when it has never fired, or last fired at an earlier step.
func (s *State) Assign(reportStep int, keyword string) bool {
	last, ok := s.assigned[keyword]
	return !ok || last < reportStep
}

// Define reports whether a DEFINE with the given status is due at the
// current step. Off never fires; On always fires; Next fires exactly
// once after the step its UPDATE took effect, then reads as Off.
func (s *State) Define(keyword string, status Status) bool {
	switch status.Policy {
	case token.Off:
		return false
	case token.Next:
		last, ok := s.defined[keyword]
		return !ok || last < status.Step
	}
	return true
}

// AddAssign records an ASSIGN firing.
func (s *State) AddAssign(reportStep int, keyword string) {
	s.assigned[keyword] = reportStep
}

// AddDefine records a DEFINE firing. This is what consumes a Next
// transition: once the definition fires at a step at or after the UPDATE
// step, Define reports it no longer due.
func (s *State) AddDefine(reportStep int, keyword string) {
	s.defined[keyword] = reportStep
}

type stateSnapshot struct {
	Assigned map[string]int `json:"assigned"`
	Defined  map[string]int `json:"defined"`
}

// MarshalJSON snapshots the tracker for restart persistence.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateSnapshot{Assigned: s.assigned, Defined: s.defined})
}

// UnmarshalJSON restores a snapshot.
func (s *State) UnmarshalJSON(data []byte) error {
	var snap stateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	s.assigned = snap.Assigned
	s.defined = snap.Defined
	if s.assigned == nil {
		s.assigned = make(map[string]int)
	}
	if s.defined == nil {
		s.defined = make(map[string]int)
	}
	return nil
}
