package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

// UpsertFooter stores the shift counters of one parameter and date.
func (db *DB) UpsertFooter(ctx context.Context, rec *models.FooterRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	rec.Total = rec.Counters.Total()

	query := `
		INSERT INTO ccr_footer_data (` + sqlFooterColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, parameter_id) DO UPDATE SET
			plant_unit = excluded.plant_unit,
			shift3_cont = excluded.shift3_cont,
			shift1 = excluded.shift1,
			shift2 = excluded.shift2,
			shift3 = excluded.shift3,
			total = excluded.total,
			updated_at = excluded.updated_at
	`

	_, err := db.ExecContext(ctx, query,
		rec.ID,
		rec.Date,
		rec.ParameterID,
		rec.PlantUnit,
		rec.Counters.Shift3Cont,
		rec.Counters.Shift1,
		rec.Counters.Shift2,
		rec.Counters.Shift3,
		rec.Total,
		models.FormatTimestamp(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert footer: %w", err)
	}
	return nil
}

// GetFooter returns the footer rows of a date, optionally for one plant unit.
func (db *DB) GetFooter(ctx context.Context, date, plantUnit string) ([]models.FooterRecord, error) {
	query := "SELECT " + sqlFooterColumns + " FROM ccr_footer_data WHERE date = ?"
	args := []any{date}
	if plantUnit != "" {
		query += " AND plant_unit = ?"
		args = append(args, plantUnit)
	}
	query += " ORDER BY parameter_id"
	return db.queryFooters(ctx, query, args...)
}

// GetFooterSeries returns the footer rows of one parameter with from <= date <= to.
func (db *DB) GetFooterSeries(ctx context.Context, parameterID, from, to string) ([]models.FooterRecord, error) {
	query := "SELECT " + sqlFooterColumns +
		" FROM ccr_footer_data WHERE parameter_id = ? AND date >= ? AND date <= ? ORDER BY date"
	return db.queryFooters(ctx, query, parameterID, from, to)
}

func (db *DB) queryFooters(ctx context.Context, query string, args ...any) ([]models.FooterRecord, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query footer data: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var records []models.FooterRecord
	for rows.Next() {
		var (
			rec       models.FooterRecord
			updatedAt sql.NullString
		)
		err := rows.Scan(
			&rec.ID, &rec.Date, &rec.ParameterID, &rec.PlantUnit,
			&rec.Counters.Shift3Cont, &rec.Counters.Shift1, &rec.Counters.Shift2, &rec.Counters.Shift3,
			&rec.Total, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan footer: %w", err)
		}
		if updatedAt.Valid {
			rec.UpdatedAt, _ = models.ParseTimestamp(updatedAt.String)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
