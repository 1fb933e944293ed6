// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package udq is the embedding surface of the UDQ engine: declaration
// intake, per-report-step evaluation, and restart persistence behind one
// runtime value.
package udq

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"nickandperla.net/udq/internal/eval"
	"nickandperla.net/udq/internal/store"
	"nickandperla.net/udq/internal/summary"
	"nickandperla.net/udq/internal/token"
)

// Location mirrors the declaration location attached to deck records.
type Location = token.Location

// Runtime owns a configuration, its update-policy state and a result
// store, and optionally journals declarations for restart.
type Runtime struct {
	params  eval.Params
	cfg     *eval.Config
	state   *eval.State
	summary *summary.State
	store   store.Store
	log     *slog.Logger
}

// New creates a runtime with the given options.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		params:  eval.DefaultParams(),
		summary: summary.New(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	r.cfg = eval.NewConfig(r.params, r.log)
	r.state = eval.NewState()
	return r, nil
}

// AddRecord ingests one deck record {ACTION, QUANTITY, DATA} and, when a
// restart store is attached, journals it.
func (r *Runtime) AddRecord(action, quantity string, data []string, loc Location, reportStep int) error {
	if err := r.cfg.AddRecord(action, quantity, data, loc, reportStep); err != nil {
		return err
	}
	if r.store != nil {
		unit, _ := r.cfg.Unit(quantity)
		return r.store.Append(store.Row{
			Action:     action,
			Keyword:    quantity,
			Data:       data,
			Unit:       unit,
			ReportStep: reportStep,
		})
	}
	return nil
}

// Eval runs one report step against the runtime's result store.
func (r *Runtime) Eval(reportStep int) error {
	return r.cfg.Eval(reportStep, r.summary, r.summary, r.state)
}

// Summary exposes the result store, for seeding upstream quantities and
// reading evaluation results.
func (r *Runtime) Summary() *summary.State { return r.summary }

// Config exposes the declaration store.
func (r *Runtime) Config() *eval.Config { return r.cfg }

// RequiredSummary lists every upstream quantity the definitions read.
func (r *Runtime) RequiredSummary() []string {
	return r.cfg.RequiredSummaryKeys()
}

// stateMetadataKey indexes the policy-tracker snapshot in the restart
// store's metadata table.
const stateMetadataKey = "udq_state"

// Persist writes the update-policy tracker snapshot to the restart store.
func (r *Runtime) Persist() error {
	if r.store == nil {
		return fmt.Errorf("no restart store attached")
	}
	data, err := json.Marshal(r.state)
	if err != nil {
		return err
	}
	return r.store.SetMetadata(stateMetadataKey, string(data))
}

// Restore replays journaled declarations into a fresh configuration and
// reloads the policy tracker, reproducing pre-restart declaration state.
func (r *Runtime) Restore() error {
	if r.store == nil {
		return fmt.Errorf("no restart store attached")
	}
	cfg := eval.NewConfig(r.params, r.log)
	if err := store.Replay(r.store, cfg); err != nil {
		return err
	}
	r.cfg = cfg

	data, err := r.store.GetMetadata(stateMetadataKey)
	if err != nil {
		return err
	}
	state := eval.NewState()
	if data != "" {
		if err := json.Unmarshal([]byte(data), state); err != nil {
			return fmt.Errorf("corrupt state snapshot: %w", err)
		}
	}
	r.state = state
	return nil
}

// Close releases the restart store, if any.
func (r *Runtime) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}
