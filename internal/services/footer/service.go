// Package footer generates the material-usage footer of CCR sheets: per-shift
// counter consumption for every counter parameter of a plant unit and date.
package footer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/shift"
)

// monthWorkers bounds the days generated concurrently by GenerateMonth.
const monthWorkers = 4

// Store provides counter parameters and readings, and persists footers.
type Store interface {
	GetCounterParameters(ctx context.Context, plantUnit string) ([]models.ParameterSetting, error)
	GetReadingsByDate(ctx context.Context, date, plantUnit string) ([]models.HourlyReading, error)
	UpsertFooter(ctx context.Context, rec *models.FooterRecord) error
	GetFooter(ctx context.Context, date, plantUnit string) ([]models.FooterRecord, error)
	GetFooterSeries(ctx context.Context, parameterID, from, to string) ([]models.FooterRecord, error)
}

// Anomaly is a shift whose raw difference was negative and got clamped to zero.
type Anomaly struct {
	ParameterID string     `json:"parameter_id"`
	PlantUnit   string     `json:"plant_unit"`
	Date        string     `json:"date"`
	Shift       shift.Name `json:"shift"`
	Raw         float64    `json:"raw"`
}

// Report is the outcome of generating the footer of one date.
type Report struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Date        string                `json:"date"`
	PlantUnit   string                `json:"plant_unit"`
	Records     []models.FooterRecord `json:"records"`
	Anomalies   []Anomaly             `json:"anomalies"`
	// Missing lists counter parameters without readings for the date.
	Missing []string `json:"missing"`
}

// Service generates and remembers footers.
type Service struct {
	mu    sync.RWMutex
	store Store

	lastReports map[string]*Report
}

// New creates a footer service.
func New(store Store) *Service {
	return &Service{
		store:       store,
		lastReports: make(map[string]*Report),
	}
}

func reportKey(date, plantUnit string) string {
	return date + "|" + plantUnit
}

// Generate computes and stores the footer of date for plantUnit. An empty
// plantUnit covers every unit.
func (s *Service) Generate(ctx context.Context, date, plantUnit string) (*Report, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	params, err := s.store.GetCounterParameters(ctx, plantUnit)
	if err != nil {
		return nil, fmt.Errorf("failed to load counter parameters: %w", err)
	}
	readings, err := s.store.GetReadingsByDate(ctx, date, plantUnit)
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	byParam := make(map[string]*models.HourlyReading, len(readings))
	for i := range readings {
		byParam[readings[i].ParameterID] = &readings[i]
	}

	report := &Report{
		GeneratedAt: time.Now(),
		Date:        date,
		PlantUnit:   plantUnit,
	}

	for _, p := range params {
		reading, ok := byParam[p.ID]
		if !ok {
			report.Missing = append(report.Missing, p.ID)
			continue
		}

		unit := reading.PlantUnit
		if unit == "" {
			unit = p.PlantUnit
		}

		result := shift.Compute(reading)
		rec := models.FooterRecord{
			Date:        date,
			ParameterID: p.ID,
			PlantUnit:   unit,
			Counters:    result.Counters,
		}
		if err := s.store.UpsertFooter(ctx, &rec); err != nil {
			return nil, fmt.Errorf("failed to store footer for %s: %w", p.ID, err)
		}
		report.Records = append(report.Records, rec)

		for _, name := range result.Clamped() {
			report.Anomalies = append(report.Anomalies, Anomaly{
				ParameterID: p.ID,
				PlantUnit:   unit,
				Date:        date,
				Shift:       name,
				Raw:         result.Raw[name],
			})
		}
	}

	if len(report.Anomalies) > 0 {
		logger.Warn("counter decreased within shift", "date", date, "plant_unit", plantUnit, "count", len(report.Anomalies))
	}

	s.mu.Lock()
	s.lastReports[reportKey(date, plantUnit)] = report
	s.mu.Unlock()

	return report, nil
}

// GenerateMonth generates every day of a month. Reports are ordered by date.
func (s *Service) GenerateMonth(ctx context.Context, year, month int, plantUnit string) ([]*Report, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month %d out of range 1..12", month)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	reports := make([]*Report, days)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(monthWorkers)
	for d := range days {
		date := first.AddDate(0, 0, d).Format(models.DateLayout)
		g.Go(func() error {
			r, err := s.Generate(gctx, date, plantUnit)
			if err != nil {
				return err
			}
			reports[d] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Footer returns the stored footer rows of a date, ordered by parameter.
func (s *Service) Footer(ctx context.Context, date, plantUnit string) ([]models.FooterRecord, error) {
	records, err := s.store.GetFooter(ctx, date, plantUnit)
	if err != nil {
		return nil, fmt.Errorf("failed to load footer: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ParameterID < records[j].ParameterID
	})
	return records, nil
}

// Series returns the stored footer rows of one parameter between from and to
// inclusive, ordered by date.
func (s *Service) Series(ctx context.Context, parameterID, from, to string) ([]models.FooterRecord, error) {
	for _, d := range []string{from, to} {
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", d, err)
		}
	}
	records, err := s.store.GetFooterSeries(ctx, parameterID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load footer series: %w", err)
	}
	return records, nil
}

// LastReport returns the most recent report generated for date and plantUnit.
func (s *Service) LastReport(date, plantUnit string) *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReports[reportKey(date, plantUnit)]
}
