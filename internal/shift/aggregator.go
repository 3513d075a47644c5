// Package shift derives per-shift material counters from hourly CCR readings.
//
// Counter sensors report a cumulative value that only grows within a shift. The
// amount consumed during a shift is the highest value seen in its window minus the
// last value of the previous shift. Readings are operator-entered and often
// incomplete, so missing or non-numeric hours are skipped instead of failing.
package shift

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

// Name identifies one of the four shift windows of a day.
type Name string

const (
	Shift3Cont Name = "shift3_cont"
	Shift1     Name = "shift1"
	Shift2     Name = "shift2"
	Shift3     Name = "shift3"
)

// Window is a fixed range of hours and the hour holding the previous shift's
// closing value. Boundary is 0 when the window starts the day.
type Window struct {
	Name     Name
	From     int
	To       int
	Boundary int
}

// Windows lists the shift windows in day order.
var Windows = [...]Window{
	{Name: Shift3Cont, From: 1, To: 7},
	{Name: Shift1, From: 8, To: 15, Boundary: 7},
	{Name: Shift2, From: 16, To: 22, Boundary: 15},
	{Name: Shift3, From: 23, To: 24, Boundary: 22},
}

// Hours is anything exposing raw hourly values by 1-based hour.
type Hours interface {
	Hour(h int) any
}

// Result carries the clamped counters plus the raw differences they came from.
type Result struct {
	Counters models.ShiftCounters
	Raw      map[Name]float64
}

// Clamped returns the shifts whose raw difference was negative, which usually
// means the sensor was reset or a value was mistyped.
func (r Result) Clamped() []Name {
	var names []Name
	for _, w := range Windows {
		if r.Raw[w.Name] < 0 {
			names = append(names, w.Name)
		}
	}
	return names
}

// ParseValue converts a raw hour value to a number. Nil, empty text, non-numeric
// text, booleans and non-finite numbers are reported as absent.
func ParseValue(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		return parseText(string(x))
	case string:
		return parseText(x)
	case []byte:
		return parseText(string(x))
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseText(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ValueAt returns the numeric value of hour h, or 0 when it is absent.
func ValueAt(r Hours, h int) float64 {
	if h < 1 {
		return 0
	}
	v, ok := ParseValue(r.Hour(h))
	if !ok {
		return 0
	}
	return v
}

// WindowMax returns the largest present value in hours from..to inclusive,
// or 0 when none of them holds a value.
func WindowMax(r Hours, from, to int) float64 {
	best, found := 0.0, false
	for h := from; h <= to; h++ {
		v, ok := ParseValue(r.Hour(h))
		if !ok {
			continue
		}
		if !found || v > best {
			best, found = v, true
		}
	}
	return best
}

// Compute derives the shift counters and keeps the unclamped differences.
func Compute(r Hours) Result {
	res := Result{Raw: make(map[Name]float64, len(Windows))}
	for _, w := range Windows {
		raw := WindowMax(r, w.From, w.To) - ValueAt(r, w.Boundary)
		res.Raw[w.Name] = raw
		clamped := math.Max(0, raw)
		switch w.Name {
		case Shift3Cont:
			res.Counters.Shift3Cont = clamped
		case Shift1:
			res.Counters.Shift1 = clamped
		case Shift2:
			res.Counters.Shift2 = clamped
		case Shift3:
			res.Counters.Shift3 = clamped
		}
	}
	return res
}

// Aggregate derives the four clamped shift counters for one day of readings.
func Aggregate(r Hours) models.ShiftCounters {
	return Compute(r).Counters
}

// AggregateFields is Aggregate over a record exposing hour1..hour24 fields.
func AggregateFields(fields map[string]any) models.ShiftCounters {
	return Aggregate(models.FromFields(fields))
}
