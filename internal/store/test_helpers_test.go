package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/attest/internal/model"
)

// createTestStore creates a fresh store in a temp directory.
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

// createTestChecklist creates an api key and a checklist owned by it.
func createTestChecklist(t *testing.T, s *Store) (model.APIKey, model.Checklist) {
	t.Helper()
	ctx := context.Background()

	key, err := s.CreateAPIKey(ctx)
	if err != nil {
		t.Fatalf("CreateAPIKey() failed: %v", err)
	}
	checklist, err := s.CreateChecklist(ctx, key.ID, "http://worker.test")
	if err != nil {
		t.Fatalf("CreateChecklist() failed: %v", err)
	}
	return key, checklist
}

// countRows counts rows in a table.
func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
