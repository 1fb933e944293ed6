// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import "sync"

// Memory is an in-memory store for testing and ephemeral runs.
type Memory struct {
	mu       sync.RWMutex
	rows     []Row
	metadata map[string]string
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{metadata: make(map[string]string)}
}

// Append journals one record.
func (m *Memory) Append(row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row.Seq = len(m.rows)
	m.rows = append(m.rows, row)
	return nil
}

// Rows returns every journaled record in order.
func (m *Memory) Rows() ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

// GetMetadata retrieves a metadata value by key.
func (m *Memory) GetMetadata(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[key], nil
}

// SetMetadata stores a metadata value by key.
func (m *Memory) SetMetadata(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
	return nil
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error { return nil }
