package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if db.Path() != dbPath {
		t.Errorf("Expected path %s, got %s", dbPath, db.Path())
	}

	// Verify file exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database with nested path: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("Nested directories were not created")
	}
}

func TestSchema_TablesExist(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	tables := []string{
		"cop_analysis_cache",
		"parameter_settings",
		"ccr_parameter_data",
		"ccr_footer_data",
	}

	for _, table := range tables {
		var name string
		err := db.QueryRowContext(context.Background(), "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}
}

func TestFixLegacyTimeFormats(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO cop_analysis_cache (id, cache_key, year, month, analysis_data, created_at, expires_at, last_accessed)
		VALUES ('legacy', 'k', 2025, 10, '{}', '2025-10-01 08:00:00.000Z', '2025-10-02 08:00:00.000Z', '2025-10-01 09:00:00.000Z')
	`)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := db.FixLegacyTimeFormats(); err != nil {
		t.Fatalf("FixLegacyTimeFormats failed: %v", err)
	}

	var expiresAt string
	err = db.QueryRowContext(context.Background(), "SELECT expires_at FROM cop_analysis_cache WHERE id = 'legacy'").Scan(&expiresAt)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if expiresAt != "2025-10-02T08:00:00.000Z" {
		t.Errorf("expires_at = %q, want T layout", expiresAt)
	}
}

func TestVacuum(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	if err := db.Vacuum(); err != nil {
		t.Errorf("Vacuum failed: %v", err)
	}
}

func TestClose(t *testing.T) {
	db := newTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	// Verify database is closed by trying to query
	_, err := db.QueryContext(context.Background(), "SELECT 1")
	if err == nil {
		t.Error("Expected error querying closed database")
	}
}

// Helper to create a test database
func newTestDB(t *testing.T) *DB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	return db
}
