// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HoursPerDay is the number of hourly slots on a CCR data-entry sheet.
const HoursPerDay = 24

// DateLayout is the layout of the date column of CCR records.
const DateLayout = "2006-01-02"

// TimestampLayout is the fixed-width UTC layout used for persisted timestamps.
// Values in this layout sort lexicographically in time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// HourlyReading is one day of hourly operator readings for a single parameter.
// Hour values are kept as entered: a number, numeric text, an empty string or nil.
type HourlyReading struct {
	ID          string
	Date        string
	ParameterID string
	PlantUnit   string
	Hours       [HoursPerDay]any
}

// Hour returns the raw value for hour h (1-based). Out-of-range hours are absent.
func (r *HourlyReading) Hour(h int) any {
	if r == nil || h < 1 || h > HoursPerDay {
		return nil
	}
	return r.Hours[h-1]
}

// SetHour stores the raw value for hour h (1-based). Out-of-range hours are ignored.
func (r *HourlyReading) SetHour(h int, v any) {
	if h < 1 || h > HoursPerDay {
		return
	}
	r.Hours[h-1] = v
}

// HourField returns the record field name for hour h, e.g. "hour7".
func HourField(h int) string {
	return "hour" + strconv.Itoa(h)
}

// FromFields builds a reading from a record exposing hour1..hour24 fields.
// Identification fields are picked up when present.
func FromFields(fields map[string]any) *HourlyReading {
	r := &HourlyReading{}
	for h := 1; h <= HoursPerDay; h++ {
		r.SetHour(h, fields[HourField(h)])
	}
	r.ID = stringField(fields, "id")
	r.Date = stringField(fields, "date")
	r.ParameterID = stringField(fields, "parameter_id")
	r.PlantUnit = stringField(fields, "plant_unit")
	return r
}

// Fields is the inverse of FromFields.
func (r *HourlyReading) Fields() map[string]any {
	fields := make(map[string]any, HoursPerDay+4)
	for h := 1; h <= HoursPerDay; h++ {
		fields[HourField(h)] = r.Hour(h)
	}
	fields["id"] = r.ID
	fields["date"] = r.Date
	fields["parameter_id"] = r.ParameterID
	fields["plant_unit"] = r.PlantUnit
	return fields
}

// ParsedDate parses the reading date.
func (r *HourlyReading) ParsedDate() (time.Time, error) {
	t, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reading date %q: %w", r.Date, err)
	}
	return t, nil
}

func stringField(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
