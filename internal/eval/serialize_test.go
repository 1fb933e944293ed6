// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"nickandperla.net/udq/internal/token"
)

func populatedConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewConfig(DefaultParams(), nil)
	loc := token.Location{File: "deck.inc", Line: 7}

	records := []struct {
		action, keyword string
		data            []string
	}{
		{"ASSIGN", "WUGAS", []string{"'OP*'", "0.0"}},
		{"ASSIGN", "WUGAS", []string{"OP2", "1.5"}},
		{"DEFINE", "FUTOT", []string{"SUM(WOPR) * 1.25"}},
		{"DEFINE", "GUPR", []string{"GGPR 'GRP*' + 1"}},
		{"UNITS", "FUTOT", []string{"'SM3/DAY'"}},
		{"UPDATE", "FUTOT", []string{"NEXT"}},
	}
	for _, r := range records {
		if err := cfg.AddRecord(r.action, r.keyword, r.data, loc, 3); err != nil {
			t.Fatalf("AddRecord %s %s failed: %v", r.action, r.keyword, err)
		}
	}
	return cfg
}

func TestConfigSnapshotRoundTrip(t *testing.T) {
	cfg := populatedConfig(t)

	snap, err := cfg.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	restored := NewConfig(Params{}, nil)
	if err := RestoreConfig(snap, restored); err != nil {
		t.Fatalf("RestoreConfig failed: %v", err)
	}

	again, err := restored.Snapshot()
	if err != nil {
		t.Fatalf("second Snapshot failed: %v", err)
	}
	if diff := cmp.Diff(snap, again); diff != "" {
		t.Errorf("snapshot diverged after restore (-want +got):\n%s", diff)
	}
}

func TestConfigJSONRoundTrip(t *testing.T) {
	cfg := populatedConfig(t)

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	restored := NewConfig(Params{}, nil)
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if restored.Params() != DefaultParams() {
		t.Errorf("params = %+v, want %+v", restored.Params(), DefaultParams())
	}
	if u, ok := restored.Unit("FUTOT"); !ok || u != "SM3/DAY" {
		t.Errorf("unit = %q, %v", u, ok)
	}

	def, ok := restored.Define("FUTOT")
	if !ok {
		t.Fatal("FUTOT definition lost")
	}
	if def.Status().Policy != token.Next || def.Status().Step != 3 {
		t.Errorf("status = %+v, want NEXT at step 3", def.Status())
	}
	if def.InputString() != "SUM (WOPR) * 1.25" {
		t.Errorf("input = %q", def.InputString())
	}

	assign, ok := restored.Assign("WUGAS")
	if !ok {
		t.Fatal("WUGAS assignment lost")
	}
	recs := assign.Records()
	if len(recs) != 2 || recs[0].Selector[0] != "OP*" || recs[1].Value != 1.5 {
		t.Errorf("records = %+v", recs)
	}

	idx, ok := restored.Lookup("GUPR")
	if !ok || idx.InsertIndex != 2 || idx.VarType != token.GroupVar {
		t.Errorf("GUPR index = %+v, %v", idx, ok)
	}
}

func TestRestoredConfigEvaluates(t *testing.T) {
	cfg := populatedConfig(t)
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	restored := NewConfig(Params{}, nil)
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	store := newFakeStore([]string{"OP1", "OP2"}, []string{"GRP1"})
	store.set("WOPR:OP1", 40)
	store.set("WOPR:OP2", 60)
	store.set("GGPR:GRP1", 9)

	if err := restored.Eval(4, store, store, NewState()); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, _ := store.Get("FUTOT"); v != 125 {
		t.Errorf("FUTOT = %v, want 125", v)
	}
	if v, _ := store.Get("GUPR:GRP1"); v != 10 {
		t.Errorf("GUPR:GRP1 = %v, want 10", v)
	}
	if v, _ := store.Get("WUGAS:OP2"); v != 1.5 {
		t.Errorf("WUGAS:OP2 = %v, want 1.5", v)
	}
}
