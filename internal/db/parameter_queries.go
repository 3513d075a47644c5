package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

// UpsertParameterSetting inserts or replaces a parameter definition.
func (db *DB) UpsertParameterSetting(ctx context.Context, p *models.ParameterSetting) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query := `
		INSERT INTO parameter_settings (` + sqlParameterColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parameter = excluded.parameter,
			unit = excluded.unit,
			category = excluded.category,
			plant_unit = excluded.plant_unit,
			opc_min = excluded.opc_min,
			opc_max = excluded.opc_max,
			pcc_min = excluded.pcc_min,
			pcc_max = excluded.pcc_max,
			is_counter = excluded.is_counter
	`

	_, err := db.ExecContext(ctx, query,
		p.ID, p.Parameter, p.Unit, p.Category, p.PlantUnit,
		nullFloat(p.OpcMin), nullFloat(p.OpcMax), nullFloat(p.PccMin), nullFloat(p.PccMax),
		p.IsCounter,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert parameter setting: %w", err)
	}
	return nil
}

// GetParameterSettings returns the parameters of a category within a plant unit.
// Matching is case-insensitive.
func (db *DB) GetParameterSettings(ctx context.Context, category, plantUnit string) ([]models.ParameterSetting, error) {
	query := "SELECT " + sqlParameterColumns + ` FROM parameter_settings
		WHERE category = ? COLLATE NOCASE AND plant_unit = ? COLLATE NOCASE
		ORDER BY parameter`
	return db.queryParameters(ctx, query, category, plantUnit)
}

// GetCounterParameters returns the counter parameters, optionally for one plant unit.
func (db *DB) GetCounterParameters(ctx context.Context, plantUnit string) ([]models.ParameterSetting, error) {
	query := "SELECT " + sqlParameterColumns + " FROM parameter_settings WHERE is_counter = 1"
	var args []any
	if plantUnit != "" {
		query += " AND plant_unit = ? COLLATE NOCASE"
		args = append(args, plantUnit)
	}
	query += " ORDER BY plant_unit, parameter"
	return db.queryParameters(ctx, query, args...)
}

func (db *DB) queryParameters(ctx context.Context, query string, args ...any) ([]models.ParameterSetting, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameter settings: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var params []models.ParameterSetting
	for rows.Next() {
		var (
			p                              models.ParameterSetting
			opcMin, opcMax, pccMin, pccMax sql.NullFloat64
		)
		err := rows.Scan(
			&p.ID, &p.Parameter, &p.Unit, &p.Category, &p.PlantUnit,
			&opcMin, &opcMax, &pccMin, &pccMax, &p.IsCounter,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parameter setting: %w", err)
		}
		p.OpcMin = floatPtr(opcMin)
		p.OpcMax = floatPtr(opcMax)
		p.PccMin = floatPtr(pccMin)
		p.PccMax = floatPtr(pccMax)
		params = append(params, p)
	}

	return params, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
