// Package db manages the database connection
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

// ErrNotFound is returned when an update or delete targets a missing record.
var ErrNotFound = errors.New("record not found")

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database connection
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas are per connection; a single connection keeps busy_timeout applied to every write.
	sqlDB.SetMaxOpenConns(1)

	// Test connection
	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	// Configure database
	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	// Create schema
	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// Normalize timestamps imported from PocketBase exports
	if err := db.FixLegacyTimeFormats(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to fix legacy time formats: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas for optimal performance.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000", // 64MB cache
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createCopAnalysisCacheTable(); err != nil {
		return err
	}
	if err := db.createParameterSettingsTable(); err != nil {
		return err
	}
	if err := db.createParameterDataTable(); err != nil {
		return err
	}
	return db.createFooterDataTable()
}

func (db *DB) createCopAnalysisCacheTable() error {
	// cache_key is deliberately not unique: writers delete then insert.
	query := `
	CREATE TABLE IF NOT EXISTS cop_analysis_cache (
		id TEXT PRIMARY KEY,
		cache_key TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		unit TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL,
		month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		cement_type TEXT NOT NULL DEFAULT '',
		analysis_data TEXT NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		last_accessed TEXT NOT NULL,
		data_size INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_cop_cache_key ON cop_analysis_cache(cache_key, created_at);
	CREATE INDEX IF NOT EXISTS idx_cop_cache_expires ON cop_analysis_cache(expires_at);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createParameterSettingsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS parameter_settings (
		id TEXT PRIMARY KEY,
		parameter TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		plant_unit TEXT NOT NULL,
		opc_min REAL,
		opc_max REAL,
		pcc_min REAL,
		pcc_max REAL,
		is_counter INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_parameter_settings_unit ON parameter_settings(plant_unit, category);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createParameterDataTable() error {
	// Hour columns have no declared type so operator input keeps its original
	// representation (number, numeric text, empty text or NULL).
	var hours strings.Builder
	for h := 1; h <= models.HoursPerDay; h++ {
		fmt.Fprintf(&hours, "\t\t%s,\n", models.HourField(h))
	}

	query := `
	CREATE TABLE IF NOT EXISTS ccr_parameter_data (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		parameter_id TEXT NOT NULL,
		plant_unit TEXT NOT NULL DEFAULT '',
` + hours.String() + `		updated_at TEXT NOT NULL,
		UNIQUE(date, parameter_id)
	);
	CREATE INDEX IF NOT EXISTS idx_parameter_data_unit_date ON ccr_parameter_data(plant_unit, date);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createFooterDataTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS ccr_footer_data (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		parameter_id TEXT NOT NULL,
		plant_unit TEXT NOT NULL DEFAULT '',
		shift3_cont REAL NOT NULL DEFAULT 0,
		shift1 REAL NOT NULL DEFAULT 0,
		shift2 REAL NOT NULL DEFAULT 0,
		shift3 REAL NOT NULL DEFAULT 0,
		total REAL NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		UNIQUE(date, parameter_id)
	);
	CREATE INDEX IF NOT EXISTS idx_footer_data_unit_date ON ccr_footer_data(plant_unit, date);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Vacuum performs database maintenance to reclaim space.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}
