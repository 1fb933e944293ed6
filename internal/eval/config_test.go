// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"errors"
	"math"
	"testing"

	"nickandperla.net/udq/internal/lexer"
	"nickandperla.net/udq/internal/token"
)

// fakeStore is a minimal in-package Universe + ResultStore for driver
// tests. The real store lives in the summary package.
type fakeStore struct {
	wells  []string
	groups []string
	values map[string]float64
}

func newFakeStore(wells, groups []string) *fakeStore {
	return &fakeStore{wells: wells, groups: groups, values: make(map[string]float64)}
}

func (f *fakeStore) Wells() []string  { return f.wells }
func (f *fakeStore) Groups() []string { return f.groups }

func (f *fakeStore) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *fakeStore) Get(key string) (float64, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeStore) UpdateUDQ(set Set, undefined float64) {
	for _, e := range set.Entries() {
		v := e.Value
		if !e.Defined {
			v = undefined
		}
		switch set.VarType() {
		case token.WellVar, token.GroupVar:
			f.values[set.Name()+":"+e.Name] = v
		default:
			f.values[set.Name()] = v
		}
	}
}

func (f *fakeStore) set(key string, v float64) { f.values[key] = v }

func testLocation() token.Location {
	return token.Location{File: "deck.inc", Line: 42}
}

func TestDefineReducesAndScatters(t *testing.T) {
	store := newFakeStore([]string{"OP1", "OP2", "OP3"}, nil)
	for _, w := range store.wells {
		store.set("WOPR:"+w, 50)
	}

	cfg := NewConfig(DefaultParams(), nil)
	err := cfg.AddRecord("DEFINE", "WUINJ1", []string{"SUM(WOPR) * 1.25"}, testLocation(), 1)
	if err != nil {
		t.Fatalf("AddRecord failed: %v", err)
	}

	state := NewState()
	if err := cfg.Eval(1, store, store, state); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	for _, w := range store.wells {
		v, ok := store.Get("WUINJ1:" + w)
		if !ok || v != 187.5 {
			t.Errorf("WUINJ1:%s = %v, %v, want 187.5", w, v, ok)
		}
	}
}

func TestAssignRecordsApplyInOrder(t *testing.T) {
	store := newFakeStore([]string{"OP1", "OP2", "OP3"}, nil)
	cfg := NewConfig(DefaultParams(), nil)

	if err := cfg.AddRecord("ASSIGN", "WUX", []string{"'OP*'", "5"}, testLocation(), 1); err != nil {
		t.Fatalf("first ASSIGN failed: %v", err)
	}
	if err := cfg.AddRecord("ASSIGN", "WUX", []string{"OP2", "7"}, testLocation(), 1); err != nil {
		t.Fatalf("second ASSIGN failed: %v", err)
	}

	if err := cfg.Eval(1, store, store, NewState()); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	want := map[string]float64{"OP1": 5, "OP2": 7, "OP3": 5}
	for w, wv := range want {
		if v, ok := store.Get("WUX:" + w); !ok || v != wv {
			t.Errorf("WUX:%s = %v, %v, want %v", w, v, ok, wv)
		}
	}
}

func TestAssignScalar(t *testing.T) {
	store := newFakeStore(nil, nil)
	cfg := NewConfig(DefaultParams(), nil)

	if err := cfg.AddRecord("ASSIGN", "FUABC", []string{"3.14"}, testLocation(), 1); err != nil {
		t.Fatalf("ASSIGN failed: %v", err)
	}
	if err := cfg.Eval(1, store, store, NewState()); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, ok := store.Get("FUABC"); !ok || v != 3.14 {
		t.Errorf("FUABC = %v, %v, want 3.14", v, ok)
	}
}

func TestAssignUntouchedEntitiesGetSentinel(t *testing.T) {
	store := newFakeStore([]string{"OP1", "OP2"}, nil)
	cfg := NewConfig(DefaultParams(), nil)

	if err := cfg.AddRecord("ASSIGN", "WUX", []string{"OP1", "5"}, testLocation(), 1); err != nil {
		t.Fatalf("ASSIGN failed: %v", err)
	}
	if err := cfg.Eval(1, store, store, NewState()); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	v, ok := store.Get("WUX:OP2")
	if !ok || v != DefaultParams().UndefinedValue {
		t.Errorf("unselected entity = %v, %v, want the undefined sentinel", v, ok)
	}
}

func TestDefineChainsInDeclarationOrder(t *testing.T) {
	store := newFakeStore(nil, nil)
	cfg := NewConfig(DefaultParams(), nil)

	if err := cfg.AddRecord("DEFINE", "FUA", []string{"2"}, testLocation(), 1); err != nil {
		t.Fatalf("FUA failed: %v", err)
	}
	if err := cfg.AddRecord("DEFINE", "FUB", []string{"FUA * 3"}, testLocation(), 1); err != nil {
		t.Fatalf("FUB failed: %v", err)
	}

	if err := cfg.Eval(1, store, store, NewState()); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, ok := store.Get("FUB"); !ok || v != 6 {
		t.Errorf("FUB = %v, %v, want 6 (reads FUA written earlier this pass)", v, ok)
	}
}

func TestExactSelectorCollapsesAndScatters(t *testing.T) {
	store := newFakeStore([]string{"OP1", "OP2"}, nil)
	store.set("WOPR:OP1", 100)
	store.set("WOPR:OP2", 999)

	cfg := NewConfig(DefaultParams(), nil)
	if err := cfg.AddRecord("DEFINE", "WUY", []string{"WOPR 'OP1' * 2"}, testLocation(), 1); err != nil {
		t.Fatalf("DEFINE failed: %v", err)
	}
	if err := cfg.Eval(1, store, store, NewState()); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	// The exact selector collapses to a scalar; the scatter step writes
	// the same value under every well.
	for _, w := range store.wells {
		if v, _ := store.Get("WUY:" + w); v != 200 {
			t.Errorf("WUY:%s = %v, want 200", w, v)
		}
	}
}

func TestWildcardSelectorSubset(t *testing.T) {
	store := newFakeStore([]string{"OP1", "OP2", "WI1"}, nil)
	store.set("WOPR:OP1", 10)
	store.set("WOPR:OP2", 20)
	store.set("WOPR:WI1", 999)

	cfg := NewConfig(DefaultParams(), nil)
	if err := cfg.AddRecord("DEFINE", "FUOP", []string{"SUM(WOPR 'OP*')"}, testLocation(), 1); err != nil {
		t.Fatalf("DEFINE failed: %v", err)
	}
	if err := cfg.Eval(1, store, store, NewState()); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, ok := store.Get("FUOP"); !ok || v != 30 {
		t.Errorf("FUOP = %v, %v, want 30 (injector excluded)", v, ok)
	}
}

func TestUndefinedSentinelAtStoreBoundary(t *testing.T) {
	store := newFakeStore([]string{"OP1", "OP2"}, nil)
	store.set("WOPR:OP1", 10)
	store.set("WOPR:OP2", 20)
	store.set("WWCT:OP1", 2)
	store.set("WWCT:OP2", 0)

	cfg := NewConfig(DefaultParams(), nil)
	if err := cfg.AddRecord("DEFINE", "WUQ", []string{"WOPR / WWCT"}, testLocation(), 1); err != nil {
		t.Fatalf("DEFINE failed: %v", err)
	}
	if err := cfg.Eval(1, store, store, NewState()); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, _ := store.Get("WUQ:OP1"); v != 5 {
		t.Errorf("WUQ:OP1 = %v, want 5", v)
	}
	if v, _ := store.Get("WUQ:OP2"); v != DefaultParams().UndefinedValue {
		t.Errorf("WUQ:OP2 = %v, want the undefined sentinel", v)
	}
}

func TestUpdatePolicyGating(t *testing.T) {
	store := newFakeStore(nil, nil)
	store.set("FOPT", 100)

	cfg := NewConfig(DefaultParams(), nil)
	state := NewState()
	if err := cfg.AddRecord("DEFINE", "FUX", []string{"FOPT * 2"}, testLocation(), 1); err != nil {
		t.Fatalf("DEFINE failed: %v", err)
	}
	if err := cfg.Eval(1, store, store, state); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, _ := store.Get("FUX"); v != 200 {
		t.Fatalf("FUX = %v, want 200", v)
	}

	// OFF freezes the value across upstream changes.
	if err := cfg.AddRecord("UPDATE", "FUX", []string{"OFF"}, testLocation(), 2); err != nil {
		t.Fatalf("UPDATE OFF failed: %v", err)
	}
	store.set("FOPT", 500)
	if err := cfg.Eval(2, store, store, state); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, _ := store.Get("FUX"); v != 200 {
		t.Errorf("FUX = %v, want frozen 200 under OFF", v)
	}

	// ON resumes every-step evaluation.
	if err := cfg.AddRecord("UPDATE", "FUX", []string{"ON"}, testLocation(), 3); err != nil {
		t.Fatalf("UPDATE ON failed: %v", err)
	}
	if err := cfg.Eval(3, store, store, state); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, _ := store.Get("FUX"); v != 1000 {
		t.Errorf("FUX = %v, want 1000 under ON", v)
	}
}

func TestUpdateNextEvaluatesOnce(t *testing.T) {
	store := newFakeStore(nil, nil)
	store.set("FOPT", 100)

	cfg := NewConfig(DefaultParams(), nil)
	state := NewState()
	if err := cfg.AddRecord("DEFINE", "FUX", []string{"FOPT"}, testLocation(), 1); err != nil {
		t.Fatalf("DEFINE failed: %v", err)
	}
	if err := cfg.AddRecord("UPDATE", "FUX", []string{"NEXT"}, testLocation(), 2); err != nil {
		t.Fatalf("UPDATE NEXT failed: %v", err)
	}

	if err := cfg.Eval(2, store, store, state); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, _ := store.Get("FUX"); v != 100 {
		t.Fatalf("FUX = %v, want 100 at the NEXT step", v)
	}

	store.set("FOPT", 777)
	if err := cfg.Eval(3, store, store, state); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, _ := store.Get("FUX"); v != 100 {
		t.Errorf("FUX = %v, want 100: NEXT fires exactly once", v)
	}
}

func TestUpdateWithoutDefine(t *testing.T) {
	cfg := NewConfig(DefaultParams(), nil)
	err := cfg.AddRecord("UPDATE", "FUX", []string{"ON"}, testLocation(), 1)
	var uwd *UpdateWithoutDefineError
	if !errors.As(err, &uwd) {
		t.Fatalf("got %v, want UpdateWithoutDefineError", err)
	}
}

func TestUnitConflict(t *testing.T) {
	cfg := NewConfig(DefaultParams(), nil)
	if err := cfg.AddUnit("FUX", "'SM3/DAY'"); err != nil {
		t.Fatalf("first unit failed: %v", err)
	}
	if u, ok := cfg.Unit("FUX"); !ok || u != "SM3/DAY" {
		t.Errorf("unit = %q, %v, want quote-stripped SM3/DAY", u, ok)
	}
	if err := cfg.AddUnit("FUX", "SM3/DAY"); err != nil {
		t.Errorf("same unit re-declared should be a no-op: %v", err)
	}
	err := cfg.AddUnit("FUX", "BARSA")
	var uc *UnitConflictError
	if !errors.As(err, &uc) {
		t.Fatalf("got %v, want UnitConflictError", err)
	}
}

func TestDeclarationIndexStable(t *testing.T) {
	cfg := NewConfig(DefaultParams(), nil)
	records := []struct {
		action, keyword string
		data            []string
	}{
		{"ASSIGN", "WUA", []string{"1"}},
		{"DEFINE", "FUB", []string{"2"}},
		{"DEFINE", "WUC", []string{"WOPR * 2"}},
		{"DEFINE", "WUA", []string{"WOPR + 1"}}, // re-declaration
	}
	for _, r := range records {
		if err := cfg.AddRecord(r.action, r.keyword, r.data, testLocation(), 1); err != nil {
			t.Fatalf("AddRecord %s %s failed: %v", r.action, r.keyword, err)
		}
	}

	idx, ok := cfg.Lookup("WUA")
	if !ok {
		t.Fatal("WUA not indexed")
	}
	if idx.InsertIndex != 0 || idx.TypeSlot != 1 || idx.VarType != token.WellVar {
		t.Errorf("WUA index = %+v, want insert 0, slot 1, WELL", idx)
	}
	if idx.Action != token.Define {
		t.Errorf("WUA action = %v, want latest action DEFINE", idx.Action)
	}

	idx, _ = cfg.Lookup("WUC")
	if idx.InsertIndex != 2 || idx.TypeSlot != 2 {
		t.Errorf("WUC index = %+v, want insert 2, slot 2", idx)
	}
	if kw, ok := cfg.LookupByInsertIndex(1); !ok || kw != "FUB" {
		t.Errorf("insert index 1 = %q, %v, want FUB", kw, ok)
	}
	if cfg.Size() != 3 {
		t.Errorf("Size = %d, want 3", cfg.Size())
	}
}

func TestBadKeywordRejected(t *testing.T) {
	cfg := NewConfig(DefaultParams(), nil)
	err := cfg.AddRecord("DEFINE", "XUBAD", []string{"1"}, testLocation(), 1)
	var uk *token.UnknownKeywordError
	if !errors.As(err, &uk) {
		t.Fatalf("got %v, want UnknownKeywordError", err)
	}
}

func TestLexErrorSurfacesAtDeclaration(t *testing.T) {
	cfg := NewConfig(DefaultParams(), nil)
	err := cfg.AddRecord("DEFINE", "FUX", []string{"WOPR 'OP1 + 1"}, testLocation(), 1)
	var unbalanced *lexer.ErrUnbalancedQuotes
	if !errors.As(err, &unbalanced) {
		t.Fatalf("got %v, want ErrUnbalancedQuotes at declaration time", err)
	}
}

func TestRequiredSummaryKeys(t *testing.T) {
	cfg := NewConfig(DefaultParams(), nil)
	if err := cfg.AddRecord("DEFINE", "FUA", []string{"SUM(WOPR) + FOPT"}, testLocation(), 1); err != nil {
		t.Fatalf("DEFINE failed: %v", err)
	}
	if err := cfg.AddRecord("DEFINE", "GUB", []string{"GGPR * 2"}, testLocation(), 1); err != nil {
		t.Fatalf("DEFINE failed: %v", err)
	}
	got := cfg.RequiredSummaryKeys()
	want := []string{"FOPT", "GGPR", "WOPR"}
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keys = %v, want sorted %v", got, want)
		}
	}
}

func TestGroupUniverse(t *testing.T) {
	store := newFakeStore(nil, []string{"GRP1", "GRP2"})
	store.set("GGPR:GRP1", 7)
	store.set("GGPR:GRP2", 11)

	cfg := NewConfig(DefaultParams(), nil)
	if err := cfg.AddRecord("DEFINE", "GUD", []string{"GGPR * 2"}, testLocation(), 1); err != nil {
		t.Fatalf("DEFINE failed: %v", err)
	}
	if err := cfg.Eval(1, store, store, NewState()); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if v, _ := store.Get("GUD:GRP1"); v != 14 {
		t.Errorf("GUD:GRP1 = %v, want 14", v)
	}
	if v, _ := store.Get("GUD:GRP2"); v != 22 {
		t.Errorf("GUD:GRP2 = %v, want 22", v)
	}
}

func TestAllUndefinedReduceWritesSentinel(t *testing.T) {
	store := newFakeStore([]string{"OP1", "OP2"}, nil)
	cfg := NewConfig(DefaultParams(), nil)
	if err := cfg.AddRecord("DEFINE", "FUZ", []string{"SUM(WOPR)"}, testLocation(), 1); err != nil {
		t.Fatalf("DEFINE failed: %v", err)
	}
	// An undefined scalar under a vector keyword scatters as all-undefined.
	if err := cfg.AddRecord("DEFINE", "WUZ", []string{"SUM(WOPR)"}, testLocation(), 1); err != nil {
		t.Fatalf("DEFINE failed: %v", err)
	}
	if err := cfg.Eval(1, store, store, NewState()); err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	v, ok := store.Get("FUZ")
	if !ok {
		t.Fatal("FUZ not written")
	}
	if v != DefaultParams().UndefinedValue || math.Abs(v) < 1 {
		t.Errorf("FUZ = %v, want the undefined sentinel, never 0", v)
	}
	for _, w := range store.wells {
		if v, _ := store.Get("WUZ:" + w); v != DefaultParams().UndefinedValue {
			t.Errorf("WUZ:%s = %v, want the sentinel", w, v)
		}
	}
}
