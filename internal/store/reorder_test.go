package store

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
)

// stageAll stages every entry of tbl in logical order with the key chosen
// by keyOf, applies the reorder and commits.
func stageAll(t *testing.T, s *Store, tbl *Table, desc bool, keyOf func(string) any) int64 {
	t.Helper()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer tx.Rollback()

	rows, err := tbl.Range(ctx, tx, 0, -1)
	if err != nil {
		t.Fatalf("Range() failed: %v", err)
	}
	stage, err := tbl.Stage(ctx, tx)
	if err != nil {
		t.Fatalf("Stage() failed: %v", err)
	}
	for i, r := range rows {
		e := Staged{ID: r.ID, Pos: i, Key: keyOf(string(r.Value)), Value: r.Value}
		if err := stage.Add(ctx, e); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}
	n, err := stage.Apply(ctx, desc)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return n
}

func byLength(s string) any { return int64(len(s)) }

func TestStage_ApplyAscending(t *testing.T) {
	s, tbl := createTestTable(t, entry(nil, "ccc"), entry(nil, "a"), entry(nil, "bb"), entry(nil, "d"))

	n := stageAll(t, s, tbl, false, byLength)
	if n != 4 {
		t.Errorf("Apply() rewrote %d rows, want 4", n)
	}

	want := []string{"a", "d", "bb", "ccc"}
	if got := logical(t, s, tbl); !reflect.DeepEqual(got, want) {
		t.Errorf("after Apply = %v, want %v", got, want)
	}
	assertKeysCleared(t, s.DB())
}

func TestStage_ApplyDescendingKeepsTies(t *testing.T) {
	s, tbl := createTestTable(t, entry(nil, "a"), entry(nil, "ccc"), entry(nil, "d"), entry(nil, "bb"))

	stageAll(t, s, tbl, true, byLength)

	want := []string{"ccc", "bb", "a", "d"}
	if got := logical(t, s, tbl); !reflect.DeepEqual(got, want) {
		t.Errorf("after descending Apply = %v, want %v", got, want)
	}
}

func TestStage_RepeatedInOneConnection(t *testing.T) {
	s, tbl := createTestTable(t, entry(nil, "b"), entry(nil, "a"))

	stageAll(t, s, tbl, false, func(v string) any { return v })
	stageAll(t, s, tbl, true, func(v string) any { return v })

	if got := logical(t, s, tbl); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("after two reorders = %v", got)
	}
}

func TestStage_RollbackLeavesTable(t *testing.T) {
	ctx := context.Background()
	s, tbl := createTestTable(t, entry(nil, "b"), entry(nil, "a"))

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	stage, err := tbl.Stage(ctx, tx)
	if err != nil {
		t.Fatalf("Stage() failed: %v", err)
	}
	if err := stage.Add(ctx, Staged{ID: 2, Pos: 0, Key: "a", Value: []byte("a")}); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := stage.Add(ctx, Staged{ID: 1, Pos: 1, Key: "b", Value: []byte("b")}); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if _, err := stage.Apply(ctx, false); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}

	if got := logical(t, s, tbl); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("after rollback = %v", got)
	}
}

func TestFlatten(t *testing.T) {
	ctx := context.Background()
	s, tbl := createTestTable(t, entry(int64(3), "c"), entry(nil, "n"), entry(int64(1), "a"))
	before := logical(t, s, tbl)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	defer tx.Rollback()
	if _, err := tbl.Flatten(ctx, tx); err != nil {
		t.Fatalf("Flatten() failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	if got := logical(t, s, tbl); !reflect.DeepEqual(got, before) {
		t.Errorf("Flatten changed logical order: %v, want %v", got, before)
	}
	rows, err := tbl.Physical(ctx, s.DB(), 0, -1)
	if err != nil {
		t.Fatalf("Physical() failed: %v", err)
	}
	if got := payloads(rows); !reflect.DeepEqual(got, before) {
		t.Errorf("physical order = %v, want %v", got, before)
	}
	assertKeysCleared(t, s.DB())
}

func assertKeysCleared(t *testing.T, db *sql.DB) {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM data WHERE "key" IS NOT NULL`).Scan(&n); err != nil {
		t.Fatalf("count keys: %v", err)
	}
	if n != 0 {
		t.Errorf("%d keys left after reorder, want 0", n)
	}
}
