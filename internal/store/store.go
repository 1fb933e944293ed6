// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package store provides restart persistence for UDQ declarations.
//
// Every accepted deck record is journaled as an ordered row. On restart
// the rows replay through the same configuration entry points used by
// live parsing, reproducing the declaration state; the update-policy
// tracker rides along as a metadata snapshot.
package store

import (
	"nickandperla.net/udq/internal/eval"
	"nickandperla.net/udq/internal/token"
)

// Row is one journaled deck record.
type Row struct {
	Seq        int      `json:"seq"`
	Action     string   `json:"action"`
	Keyword    string   `json:"keyword"`
	Data       []string `json:"data"`
	Unit       string   `json:"unit,omitempty"`
	ReportStep int      `json:"report_step"`
}

// Store is the interface for declaration persistence.
type Store interface {
	// Append journals one record in arrival order.
	Append(row Row) error
	// Rows returns every journaled record, ordered by sequence.
	Rows() ([]Row, error)
	// GetMetadata retrieves a metadata value by key ("" if absent).
	GetMetadata(key string) (string, error)
	// SetMetadata stores a metadata value by key.
	SetMetadata(key, value string) error
	// Close releases resources.
	Close() error
}

// Replay feeds journaled records back through the configuration's intake,
// marking each with the restart location. Units recorded on a row are
// re-declared alongside the record itself.
func Replay(s Store, cfg *eval.Config) error {
	rows, err := s.Rows()
	if err != nil {
		return err
	}
	loc := token.RestartLocation()
	for _, row := range rows {
		if err := cfg.AddRecord(row.Action, row.Keyword, row.Data, loc, row.ReportStep); err != nil {
			return err
		}
		if row.Unit != "" {
			if err := cfg.AddUnit(row.Keyword, row.Unit); err != nil {
				return err
			}
		}
	}
	return nil
}
