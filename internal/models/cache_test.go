package models

import (
	"testing"
	"time"
)

func TestCacheEntry_Expired(t *testing.T) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"future", now.Add(time.Second), false},
		{"exactly now", now, false},
		{"zero expiry", time.Time{}, true},
		{"past", now.Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := CacheEntry{ExpiresAt: tt.expiresAt}
			if got := e.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShiftCounters_Total(t *testing.T) {
	c := ShiftCounters{Shift3Cont: 1.5, Shift1: 2, Shift2: 3, Shift3: 0.5}
	if got := c.Total(); got != 7 {
		t.Errorf("Total() = %v, want 7", got)
	}
}

func TestParameterSetting_Bounds(t *testing.T) {
	opcLo, opcHi, pccLo := 1.0, 2.0, 3.0
	p := ParameterSetting{OpcMin: &opcLo, OpcMax: &opcHi, PccMin: &pccLo}

	lo, hi, err := p.Bounds(" opc ")
	if err != nil || *lo != 1 || *hi != 2 {
		t.Errorf("Bounds(opc) = %v, %v, %v", lo, hi, err)
	}

	lo, hi, err = p.Bounds("PCC")
	if err != nil || *lo != 3 || hi != nil {
		t.Errorf("Bounds(PCC) = %v, %v, %v", lo, hi, err)
	}

	if _, _, err := p.Bounds("slag"); err == nil {
		t.Error("expected error for unknown cement type")
	}
}
