package models

import (
	"fmt"
	"strings"
	"time"
)

// Cement types with their own reference bounds.
const (
	CementOPC = "OPC"
	CementPCC = "PCC"
)

// ParameterSetting describes a CCR parameter and its reference bounds.
type ParameterSetting struct {
	OpcMin    *float64
	OpcMax    *float64
	PccMin    *float64
	PccMax    *float64
	ID        string
	Parameter string
	Unit      string
	Category  string
	PlantUnit string
	IsCounter bool
}

// Bounds returns the min/max bounds that apply for a cement type.
// A nil bound is open.
func (p *ParameterSetting) Bounds(cementType string) (lo, hi *float64, err error) {
	switch strings.ToUpper(strings.TrimSpace(cementType)) {
	case CementOPC:
		return p.OpcMin, p.OpcMax, nil
	case CementPCC:
		return p.PccMin, p.PccMax, nil
	default:
		return nil, nil, fmt.Errorf("unknown cement type %q", cementType)
	}
}

// ParameterAnalysis is the monthly result for a single parameter.
type ParameterAnalysis struct {
	ParameterID    string     `json:"parameter_id"`
	Parameter      string     `json:"parameter"`
	Unit           string     `json:"unit"`
	Min            *float64   `json:"min,omitempty"`
	Max            *float64   `json:"max,omitempty"`
	DailyAverages  []*float64 `json:"daily_averages"`
	DaysWithData   int        `json:"days_with_data"`
	DaysInRange    int        `json:"days_in_range"`
	PercentInRange float64    `json:"percent_in_range"`
}

// CopAnalysis is the monthly COP (compliance of operating parameters) analysis payload.
type CopAnalysis struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Dimensions  CacheDimensions     `json:"dimensions"`
	Parameters  []ParameterAnalysis `json:"parameters"`
	OverallCOP  float64             `json:"overall_cop"`
}
