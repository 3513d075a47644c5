package models

import "time"

// ShiftCounters holds the material counters derived for one parameter and date.
// Every counter is non-negative.
type ShiftCounters struct {
	Shift3Cont float64 `json:"shift3_cont"`
	Shift1     float64 `json:"shift1"`
	Shift2     float64 `json:"shift2"`
	Shift3     float64 `json:"shift3"`
}

// Total returns the sum of all four shift counters.
func (c ShiftCounters) Total() float64 {
	return c.Shift3Cont + c.Shift1 + c.Shift2 + c.Shift3
}

// FooterRecord is the persisted material-usage footer row of a CCR sheet.
type FooterRecord struct {
	UpdatedAt   time.Time     `json:"updated_at"`
	ID          string        `json:"id"`
	Date        string        `json:"date"`
	ParameterID string        `json:"parameter_id"`
	PlantUnit   string        `json:"plant_unit"`
	Counters    ShiftCounters `json:"counters"`
	Total       float64       `json:"total"`
}
