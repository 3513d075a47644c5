package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

func hourColumns() string {
	cols := make([]string, models.HoursPerDay)
	for h := 1; h <= models.HoursPerDay; h++ {
		cols[h-1] = models.HourField(h)
	}
	return strings.Join(cols, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// UpsertReading stores one day of hourly values for a parameter, replacing any
// previous values for the same (date, parameter).
func (db *DB) UpsertReading(ctx context.Context, r *models.HourlyReading) error {
	if r.Date == "" || r.ParameterID == "" {
		return fmt.Errorf("reading requires date and parameter_id")
	}
	if _, err := r.ParsedDate(); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	var updates strings.Builder
	for h := 1; h <= models.HoursPerDay; h++ {
		fmt.Fprintf(&updates, "%s = excluded.%s, ", models.HourField(h), models.HourField(h))
	}

	query := `
		INSERT INTO ccr_parameter_data (id, date, parameter_id, plant_unit, ` + hourColumns() + `, updated_at)
		VALUES (` + placeholders(models.HoursPerDay+5) + `)
		ON CONFLICT(date, parameter_id) DO UPDATE SET
			plant_unit = excluded.plant_unit, ` + updates.String() + `
			updated_at = excluded.updated_at
	`

	args := make([]any, 0, models.HoursPerDay+5)
	args = append(args, r.ID, r.Date, r.ParameterID, r.PlantUnit)
	for h := 1; h <= models.HoursPerDay; h++ {
		args = append(args, r.Hour(h))
	}
	args = append(args, models.FormatTimestamp(time.Now()))

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert reading: %w", err)
	}
	return nil
}

// GetReadingsByDate returns all readings of a date, optionally limited to one
// plant unit.
func (db *DB) GetReadingsByDate(ctx context.Context, date, plantUnit string) ([]models.HourlyReading, error) {
	query := "SELECT id, date, parameter_id, plant_unit, " + hourColumns() +
		" FROM ccr_parameter_data WHERE date = ?"
	args := []any{date}
	if plantUnit != "" {
		query += " AND plant_unit = ?"
		args = append(args, plantUnit)
	}
	query += " ORDER BY parameter_id"

	return db.queryReadings(ctx, query, args...)
}

// GetReadingsInRange returns readings of the given parameters with from <= date <= to.
func (db *DB) GetReadingsInRange(ctx context.Context, parameterIDs []string, from, to string) ([]models.HourlyReading, error) {
	if len(parameterIDs) == 0 {
		return nil, nil
	}

	query := "SELECT id, date, parameter_id, plant_unit, " + hourColumns() +
		" FROM ccr_parameter_data WHERE date >= ? AND date <= ? AND parameter_id IN (" +
		placeholders(len(parameterIDs)) + ") ORDER BY date, parameter_id"

	args := make([]any, 0, len(parameterIDs)+2)
	args = append(args, from, to)
	for _, id := range parameterIDs {
		args = append(args, id)
	}

	return db.queryReadings(ctx, query, args...)
}

func (db *DB) queryReadings(ctx context.Context, query string, args ...any) ([]models.HourlyReading, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var readings []models.HourlyReading
	for rows.Next() {
		var r models.HourlyReading
		dest := []any{&r.ID, &r.Date, &r.ParameterID, &r.PlantUnit}
		for h := range r.Hours {
			dest = append(dest, &r.Hours[h])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, r)
	}

	return readings, rows.Err()
}
