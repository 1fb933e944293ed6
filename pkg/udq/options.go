// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package udq

import (
	"log/slog"

	"nickandperla.net/udq/internal/eval"
	"nickandperla.net/udq/internal/store"
)

// Option configures a Runtime.
type Option func(*Runtime) error

// WithParams sets the engine parameters.
func WithParams(p eval.Params) Option {
	return func(r *Runtime) error {
		r.params = p
		return nil
	}
}

// WithParamsFile loads engine parameters from a YAML file.
func WithParamsFile(path string) Option {
	return func(r *Runtime) error {
		p, err := eval.LoadParams(path)
		if err != nil {
			return err
		}
		r.params = p
		return nil
	}
}

// WithSQLiteStore attaches a SQLite-backed restart store.
func WithSQLiteStore(path string) Option {
	return func(r *Runtime) error {
		s, err := store.NewSQLite(path)
		if err != nil {
			return err
		}
		r.store = s
		return nil
	}
}

// WithMemoryStore attaches an in-memory restart store.
func WithMemoryStore() Option {
	return func(r *Runtime) error {
		r.store = store.NewMemory()
		return nil
	}
}

// WithStore attaches a caller-provided restart store.
func WithStore(s store.Store) Option {
	return func(r *Runtime) error {
		r.store = s
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runtime) error {
		r.log = log
		return nil
	}
}
