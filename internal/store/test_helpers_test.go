package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"testing"
)

// createTestStore creates a new empty store for testing.
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

// createSeededStore creates a store holding the built-in fixtures.
func createSeededStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	f, err := DefaultFixtures()
	if err != nil {
		t.Fatalf("DefaultFixtures() failed: %v", err)
	}
	if _, err := s.Seed(context.Background(), f); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	return s
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func contains(list []string, s string) bool {
	return slices.Contains(list, s)
}
