// ABOUTME: Tests for SQLite store initialization and schema migrations.

package store

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesSchema(t *testing.T) {
	s := setupTestDB(t)

	for _, table := range []string{"schema_migrations", "api_calls"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		t.Fatalf("getCurrentMigrationVersion: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestNewStore_ReopenSkipsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.db")

	s, err := New(path, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.LogCall(&APICall{Method: "GET", Path: "system/user", StatusCode: 200}); err != nil {
		t.Fatalf("LogCall: %v", err)
	}
	s.Close()

	s, err = New(path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	var applied int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatal(err)
	}
	if applied != CurrentSchemaVersion {
		t.Errorf("migrations recorded = %d, want %d", applied, CurrentSchemaVersion)
	}

	calls, err := s.ListCalls(&CallQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 {
		t.Errorf("expected the call to survive reopening, got %d", len(calls))
	}
}
