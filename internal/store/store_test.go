// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"os"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"nickandperla.net/udq/internal/eval"
	"nickandperla.net/udq/internal/token"
)

func sampleRows() []Row {
	return []Row{
		{Action: "ASSIGN", Keyword: "WUX", Data: []string{"'OP*'", "5"}, ReportStep: 1},
		{Action: "DEFINE", Keyword: "FUTOT", Data: []string{"SUM(WOPR) * 1.25"}, ReportStep: 1},
		{Action: "UNITS", Keyword: "FUTOT", Data: []string{"'SM3/DAY'"}, Unit: "SM3/DAY", ReportStep: 1},
		{Action: "UPDATE", Keyword: "FUTOT", Data: []string{"NEXT"}, ReportStep: 2},
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	for _, row := range sampleRows() {
		if err := s.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	rows, err := s.Rows()
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if row.Seq != i {
			t.Errorf("row %d has seq %d", i, row.Seq)
		}
	}
	if rows[1].Keyword != "FUTOT" || !reflect.DeepEqual(rows[1].Data, []string{"SUM(WOPR) * 1.25"}) {
		t.Errorf("row 1 = %+v", rows[1])
	}

	if err := s.SetMetadata("udq_state", `{"assigned":{}}`); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	v, err := s.GetMetadata("udq_state")
	if err != nil || v != `{"assigned":{}}` {
		t.Errorf("GetMetadata = %q, %v", v, err)
	}
	if v, _ := s.GetMetadata("absent"); v != "" {
		t.Errorf("missing key = %q, want empty", v)
	}
}

func TestSQLiteStore(t *testing.T) {
	f, err := os.CreateTemp("", "udq-test-*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}

	for _, row := range sampleRows() {
		if err := s.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := s.SetMetadata("udq_state", "snapshot"); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}

	// Close and reopen to verify persistence
	s.Close()

	s2, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("Failed to reopen SQLite store: %v", err)
	}
	defer s2.Close()

	rows, err := s2.Rows()
	if err != nil {
		t.Fatalf("Rows after reopen failed: %v", err)
	}
	want := sampleRows()
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, row := range rows {
		if row.Action != want[i].Action || row.Keyword != want[i].Keyword ||
			!reflect.DeepEqual(row.Data, want[i].Data) ||
			row.Unit != want[i].Unit || row.ReportStep != want[i].ReportStep {
			t.Errorf("row %d = %+v, want %+v", i, row, want[i])
		}
	}

	v, err := s2.GetMetadata("udq_state")
	if err != nil || v != "snapshot" {
		t.Errorf("GetMetadata after reopen = %q, %v", v, err)
	}
}

func TestSQLiteSchemaVersion(t *testing.T) {
	f, err := os.CreateTemp("", "udq-test-*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	if err := s.SetMetadata("schema_version", "999"); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	s.Close()

	if _, err := NewSQLite(path); err == nil {
		t.Error("expected error for unsupported schema version")
	}
}

func TestReplayReproducesDeclarations(t *testing.T) {
	s := NewMemory()
	for _, row := range sampleRows() {
		if err := s.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	cfg := eval.NewConfig(eval.DefaultParams(), nil)
	if err := Replay(s, cfg); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	if !cfg.Has("WUX") || !cfg.Has("FUTOT") {
		t.Fatalf("keywords missing after replay: %v", cfg.Keywords())
	}
	def, ok := cfg.Define("FUTOT")
	if !ok {
		t.Fatal("FUTOT definition missing")
	}
	if def.Status().Policy != token.Next || def.Status().Step != 2 {
		t.Errorf("status = %+v, want NEXT at step 2", def.Status())
	}
	if def.Location() != token.RestartLocation() {
		t.Errorf("location = %v, want restart marker", def.Location())
	}
	if u, ok := cfg.Unit("FUTOT"); !ok || u != "SM3/DAY" {
		t.Errorf("unit = %q, %v", u, ok)
	}

	assign, ok := cfg.Assign("WUX")
	if !ok {
		t.Fatal("WUX assignment missing")
	}
	recs := assign.Records()
	if len(recs) != 1 || recs[0].Selector[0] != "OP*" || recs[0].Value != 5 {
		t.Errorf("records = %+v", recs)
	}
}

func TestReplayEquivalence(t *testing.T) {
	// A config built live and one rebuilt from the journal must agree on
	// everything except the declaration locations.
	live := eval.NewConfig(eval.DefaultParams(), nil)
	s := NewMemory()
	loc := token.Location{File: "deck.inc", Line: 3}
	for _, row := range sampleRows() {
		if err := live.AddRecord(row.Action, row.Keyword, row.Data, loc, row.ReportStep); err != nil {
			t.Fatalf("AddRecord failed: %v", err)
		}
		if err := s.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	replayed := eval.NewConfig(eval.DefaultParams(), nil)
	if err := Replay(s, replayed); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	want, err := live.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	got, err := replayed.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	ignoreLoc := cmpopts.IgnoreFields(eval.DefineSnapshot{}, "Location")
	if diff := cmp.Diff(want, got, ignoreLoc); diff != "" {
		t.Errorf("replayed config diverged (-live +replayed):\n%s", diff)
	}
}

func TestReplayFailsOnCorruptRecord(t *testing.T) {
	s := NewMemory()
	if err := s.Append(Row{Action: "DEFINE", Keyword: "FUX", Data: []string{"1 +"}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	cfg := eval.NewConfig(eval.DefaultParams(), nil)
	if err := Replay(s, cfg); err == nil {
		t.Error("expected replay error for a malformed expression")
	}
}
