// Package importer loads CCR hourly readings exported as JSON documents,
// either on demand or from a watched drop directory.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

// Store persists hourly readings.
type Store interface {
	UpsertReading(ctx context.Context, r *models.HourlyReading) error
}

// Document is one exported data-entry sheet. Each reading carries
// "parameter_id" and "hour1".."hour24" fields and may override "plant_unit".
type Document struct {
	Date      string           `json:"date"`
	PlantUnit string           `json:"plant_unit"`
	Readings  []map[string]any `json:"readings"`
}

// Imported summarizes one imported document.
type Imported struct {
	Path      string `json:"path"`
	Date      string `json:"date"`
	PlantUnit string `json:"plant_unit"`
	Count     int    `json:"count"`
}

// Parse decodes and validates a document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse readings document: %w", err)
	}

	doc.Date = strings.TrimSpace(doc.Date)
	if _, err := time.Parse(models.DateLayout, doc.Date); err != nil {
		return nil, fmt.Errorf("invalid document date %q: %w", doc.Date, err)
	}
	for i, r := range doc.Readings {
		if id, _ := r["parameter_id"].(string); strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("reading %d has no parameter_id", i)
		}
	}
	return &doc, nil
}

// HourlyReadings converts the document into readings. Hour values are kept
// exactly as decoded.
func (d *Document) HourlyReadings() []models.HourlyReading {
	out := make([]models.HourlyReading, 0, len(d.Readings))
	for _, fields := range d.Readings {
		r := models.FromFields(fields)
		r.ID = ""
		r.Date = d.Date
		if r.PlantUnit == "" {
			r.PlantUnit = d.PlantUnit
		}
		out = append(out, *r)
	}
	return out
}

// ImportFile reads the document at path and upserts its readings.
func ImportFile(ctx context.Context, store Store, path string) (*Imported, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	readings := doc.HourlyReadings()
	for i := range readings {
		if err := store.UpsertReading(ctx, &readings[i]); err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", readings[i].ParameterID, err)
		}
	}

	return &Imported{
		Path:      path,
		Date:      doc.Date,
		PlantUnit: doc.PlantUnit,
		Count:     len(readings),
	}, nil
}

// IsDocument reports whether path names a readings document.
func IsDocument(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// ImportDir imports every document in dir in name order. It stops at the
// first failure.
func ImportDir(ctx context.Context, store Store, dir string) ([]*Imported, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsDocument(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	results := make([]*Imported, 0, len(names))
	for _, name := range names {
		imp, err := ImportFile(ctx, store, filepath.Join(dir, name))
		if err != nil {
			return results, err
		}
		results = append(results, imp)
	}
	return results, nil
}
