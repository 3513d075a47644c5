// Package analysis computes the monthly COP (compliance of operating
// parameters) analysis of a plant unit and caches it.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/analysiscache"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/shift"
)

// ErrInvalidDimensions wraps every rejection of the requested dimensions.
var ErrInvalidDimensions = errors.New("invalid analysis dimensions")

// Store provides parameter settings and hourly readings.
type Store interface {
	GetParameterSettings(ctx context.Context, category, plantUnit string) ([]models.ParameterSetting, error)
	GetReadingsInRange(ctx context.Context, parameterIDs []string, from, to string) ([]models.HourlyReading, error)
}

// Service runs COP analyses.
type Service struct {
	store Store
	cache *analysiscache.Cache
	clock clockwork.Clock
}

// New creates an analysis service. cache may be nil, in which case every
// request is computed.
func New(store Store, cache *analysiscache.Cache, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, cache: cache, clock: clock}
}

// Monthly returns the analysis for dims, from the cache when possible.
// The boolean reports a cache hit.
func (s *Service) Monthly(ctx context.Context, dims models.CacheDimensions) (*models.CopAnalysis, bool, error) {
	if err := validate(dims); err != nil {
		return nil, false, err
	}
	if s.cache == nil {
		a, err := s.Compute(ctx, dims)
		return a, false, err
	}

	a, cached, err := analysiscache.GetOrCompute(ctx, s.cache, dims, func(ctx context.Context) (*models.CopAnalysis, error) {
		return s.Compute(ctx, dims)
	})
	if err != nil {
		return nil, false, err
	}
	if cached {
		logger.Debug("cop analysis served from cache", "key", analysiscache.Key(dims))
	}
	return a, cached, nil
}

func validate(dims models.CacheDimensions) error {
	if dims.Month < 1 || dims.Month > 12 {
		return fmt.Errorf("%w: month %d out of range 1..12", ErrInvalidDimensions, dims.Month)
	}
	if dims.Year < 1 {
		return fmt.Errorf("%w: year %d", ErrInvalidDimensions, dims.Year)
	}
	if _, _, err := (&models.ParameterSetting{}).Bounds(dims.CementType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDimensions, err)
	}
	return nil
}

// Compute runs the analysis for dims without consulting the cache.
func (s *Service) Compute(ctx context.Context, dims models.CacheDimensions) (*models.CopAnalysis, error) {
	if err := validate(dims); err != nil {
		return nil, err
	}

	params, err := s.store.GetParameterSettings(ctx, dims.Category, dims.Unit)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameter settings: %w", err)
	}

	var operating []models.ParameterSetting
	ids := make([]string, 0, len(params))
	for _, p := range params {
		if p.IsCounter {
			continue
		}
		operating = append(operating, p)
		ids = append(ids, p.ID)
	}

	first := time.Date(dims.Year, time.Month(dims.Month), 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	from := first.Format(models.DateLayout)
	to := first.AddDate(0, 0, days-1).Format(models.DateLayout)

	readings, err := s.store.GetReadingsInRange(ctx, ids, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	byParam := make(map[string][]*float64, len(operating))
	for i := range readings {
		r := &readings[i]
		date, err := r.ParsedDate()
		if err != nil {
			logger.Warn("skipping reading with invalid date", "parameter_id", r.ParameterID, "error", err)
			continue
		}
		avgs, ok := byParam[r.ParameterID]
		if !ok {
			avgs = make([]*float64, days)
			byParam[r.ParameterID] = avgs
		}
		avgs[date.Day()-1] = dailyAverage(r)
	}

	result := &models.CopAnalysis{
		GeneratedAt: s.clock.Now().UTC(),
		Dimensions:  dims,
		Parameters:  make([]models.ParameterAnalysis, 0, len(operating)),
	}

	var sum float64
	var scored int
	for i := range operating {
		p := &operating[i]
		lo, hi, _ := p.Bounds(dims.CementType)

		avgs := byParam[p.ID]
		if avgs == nil {
			avgs = make([]*float64, days)
		}
		pa := models.ParameterAnalysis{
			ParameterID:   p.ID,
			Parameter:     p.Parameter,
			Unit:          p.Unit,
			Min:           lo,
			Max:           hi,
			DailyAverages: avgs,
		}

		for _, avg := range avgs {
			if avg == nil {
				continue
			}
			pa.DaysWithData++
			if inRange(*avg, lo, hi) {
				pa.DaysInRange++
			}
		}

		if pa.DaysWithData > 0 && (lo != nil || hi != nil) {
			pa.PercentInRange = round2(100 * float64(pa.DaysInRange) / float64(pa.DaysWithData))
			sum += pa.PercentInRange
			scored++
		}
		result.Parameters = append(result.Parameters, pa)
	}

	if scored > 0 {
		result.OverallCOP = round2(sum / float64(scored))
	}
	return result, nil
}

// dailyAverage is the mean of the present hourly values, or nil when there are none.
func dailyAverage(r *models.HourlyReading) *float64 {
	var sum float64
	var n int
	for h := 1; h <= models.HoursPerDay; h++ {
		if v, ok := shift.ParseValue(r.Hour(h)); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func inRange(v float64, lo, hi *float64) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
