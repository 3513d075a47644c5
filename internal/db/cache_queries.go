package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

// updatableCacheFields are the cop_analysis_cache columns UpdateCacheEntry may set.
var updatableCacheFields = map[string]bool{
	models.FieldCategory:     true,
	models.FieldUnit:         true,
	models.FieldYear:         true,
	models.FieldMonth:        true,
	models.FieldCementType:   true,
	models.FieldAnalysisData: true,
	models.FieldExpiresAt:    true,
	models.FieldLastAccessed: true,
	models.FieldDataSize:     true,
}

// FindCacheEntries returns cache entries matching filter, newest first.
func (db *DB) FindCacheEntries(ctx context.Context, filter models.CacheFilter) ([]models.CacheEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.Key != "" {
		where = append(where, "cache_key = ?")
		args = append(args, filter.Key)
	}
	if !filter.ExpiresBefore.IsZero() {
		where = append(where, "expires_at < ?")
		args = append(args, models.FormatTimestamp(filter.ExpiresBefore))
	}

	query := "SELECT " + sqlCacheColumns + " FROM cop_analysis_cache"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var entries []models.CacheEntry
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

func scanCacheEntry(rows *sql.Rows) (*models.CacheEntry, error) {
	var (
		e                                models.CacheEntry
		createdAt, expiresAt, accessedAt string
	)
	err := rows.Scan(
		&e.ID, &e.Key, &e.Category, &e.Unit, &e.Year, &e.Month, &e.CementType,
		&e.AnalysisData, &createdAt, &expiresAt, &accessedAt, &e.DataSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache entry: %w", err)
	}

	// Unparsable timestamps stay zero so the entry reads as expired.
	e.CreatedAt = parseColumn(e.ID, "created_at", createdAt)
	e.ExpiresAt = parseColumn(e.ID, "expires_at", expiresAt)
	e.LastAccessed = parseColumn(e.ID, "last_accessed", accessedAt)
	return &e, nil
}

func parseColumn(id, column, raw string) time.Time {
	t, err := models.ParseTimestamp(raw)
	if err != nil {
		logger.Warn("unparsable cache entry timestamp", "id", id, "column", column, "value", raw, "error", err)
		return time.Time{}
	}
	return t
}

// CreateCacheEntry inserts entry, assigning an id when it has none.
func (db *DB) CreateCacheEntry(ctx context.Context, entry *models.CacheEntry) error {
	return insertCacheEntry(ctx, db.DB, entry)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCacheEntry(ctx context.Context, ex execer, entry *models.CacheEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := "INSERT INTO cop_analysis_cache (" + sqlCacheColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := ex.ExecContext(ctx, query,
		entry.ID,
		entry.Key,
		entry.Category,
		entry.Unit,
		entry.Year,
		entry.Month,
		entry.CementType,
		entry.AnalysisData,
		models.FormatTimestamp(entry.CreatedAt),
		models.FormatTimestamp(entry.ExpiresAt),
		models.FormatTimestamp(entry.LastAccessed),
		entry.DataSize,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// UpdateCacheEntry sets the given fields on one entry. Field names are the
// persisted column names; time values are stored in TimestampLayout.
func (db *DB) UpdateCacheEntry(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if !updatableCacheFields[name] {
			return fmt.Errorf("cannot update cache field %q", name)
		}
		names = append(names, name)
	}
	slices.Sort(names)

	sets := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		sets[i] = name + " = ?"
		value := fields[name]
		if t, ok := value.(time.Time); ok {
			value = models.FormatTimestamp(t)
		}
		args = append(args, value)
	}
	args = append(args, id)

	query := "UPDATE cop_analysis_cache SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update cache entry: %w", err)
	}
	return requireAffected(result, "cache entry", id)
}

// DeleteCacheEntry removes one entry by id.
func (db *DB) DeleteCacheEntry(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, "DELETE FROM cop_analysis_cache WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return requireAffected(result, "cache entry", id)
}

// ReplaceCacheEntry deletes every entry with the same cache key and inserts
// entry in a single transaction, so concurrent writers cannot leave duplicates.
func (db *DB) ReplaceCacheEntry(ctx context.Context, entry *models.CacheEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cop_analysis_cache WHERE cache_key = ?", entry.Key); err != nil {
		return fmt.Errorf("failed to delete previous cache entries: %w", err)
	}
	if err := insertCacheEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result, what, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
