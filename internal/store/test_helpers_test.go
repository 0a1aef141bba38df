package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTable creates an in-memory store with a fresh table holding
// the given entries, inserted in order.
func createTestTable(t *testing.T, entries ...Entry) (*Store, *Table) {
	t.Helper()
	ctx := context.Background()

	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	tbl, err := s.Table(ctx, DefaultTable, true)
	if err != nil {
		t.Fatalf("Table() failed: %v", err)
	}
	for _, e := range entries {
		if _, err := tbl.Insert(ctx, s.DB(), e); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}
	return s, tbl
}

// entry builds an Entry with a string payload.
func entry(key any, value string) Entry {
	return Entry{Key: key, Value: []byte(value)}
}

// payloads returns the payloads of rows as strings.
func payloads(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = string(r.Value)
	}
	return out
}

// logical returns every payload of tbl in logical order.
func logical(t *testing.T, s *Store, tbl *Table) []string {
	t.Helper()
	rows, err := tbl.Range(context.Background(), s.DB(), 0, -1)
	if err != nil {
		t.Fatalf("Range() failed: %v", err)
	}
	return payloads(rows)
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(items []string, item string) bool {
	return slices.Contains(items, item)
}
