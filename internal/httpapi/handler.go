// Package httpapi exposes cache maintenance, footer and analysis endpoints
// plus Prometheus metrics over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/analysis"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/footer"
)

// Cache is the cache maintenance surface.
type Cache interface {
	Stats(ctx context.Context) models.CacheStats
	SweepExpired(ctx context.Context) int
}

// Footers reads stored CCR footers.
type Footers interface {
	Footer(ctx context.Context, date, plantUnit string) ([]models.FooterRecord, error)
}

// FooterGenerator regenerates CCR footers.
type FooterGenerator interface {
	GenerateFooter(ctx context.Context, date, plantUnit string) (*footer.Report, error)
}

// Analyses runs monthly COP analyses.
type Analyses interface {
	Monthly(ctx context.Context, dims models.CacheDimensions) (*models.CopAnalysis, bool, error)
}

// Backends are the services behind the API. A nil Gatherer disables /metrics.
type Backends struct {
	Cache     Cache
	Footers   Footers
	Generator FooterGenerator
	Analyses  Analyses
	Gatherer  prometheus.Gatherer
}

// Handler serves the HTTP API.
type Handler struct {
	cache     Cache
	footers   Footers
	generator FooterGenerator
	analyses  Analyses
	gatherer  prometheus.Gatherer
}

// NewHandler creates a handler.
func NewHandler(b Backends) *Handler {
	return &Handler{
		cache:     b.Cache,
		footers:   b.Footers,
		generator: b.Generator,
		analyses:  b.Analyses,
		gatherer:  b.Gatherer,
	}
}

// Router builds the chi router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/cache/stats", h.CacheStats)
		r.Post("/cache/sweep", h.CacheSweep)
		r.Get("/footer", h.GetFooter)
		r.Post("/footer/generate", h.GenerateFooter)
		r.Get("/analysis", h.GetAnalysis)
	})
	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CacheStats returns the cache statistics.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

// CacheSweep deletes expired cache entries.
func (h *Handler) CacheSweep(w http.ResponseWriter, r *http.Request) {
	n := h.cache.SweepExpired(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// GetFooter returns the stored footer of ?date= for ?unit=.
func (h *Handler) GetFooter(w http.ResponseWriter, r *http.Request) {
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	records, err := h.footers.Footer(r.Context(), date, r.URL.Query().Get("unit"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []models.FooterRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GenerateFooter regenerates the footer of ?date= for ?unit=.
func (h *Handler) GenerateFooter(w http.ResponseWriter, r *http.Request) {
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	report, err := h.generator.GenerateFooter(r.Context(), date, r.URL.Query().Get("unit"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type analysisResponse struct {
	Analysis *models.CopAnalysis `json:"analysis"`
	Cached   bool                `json:"cached"`
}

// GetAnalysis returns the monthly COP analysis for
// ?category=&unit=&year=&month=&cement_type=.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, yerr := strconv.Atoi(q.Get("year"))
	month, merr := strconv.Atoi(q.Get("month"))
	if yerr != nil || merr != nil {
		writeError(w, http.StatusBadRequest, errors.New("year and month must be integers"))
		return
	}

	dims := models.CacheDimensions{
		Category:   q.Get("category"),
		Unit:       q.Get("unit"),
		CementType: q.Get("cement_type"),
		Year:       year,
		Month:      month,
	}
	if dims.Category == "" || dims.Unit == "" {
		writeError(w, http.StatusBadRequest, errors.New("category and unit are required"))
		return
	}

	a, cached, err := h.analyses.Monthly(r.Context(), dims)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidDimensions) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		logger.Error("cop analysis failed", "category", dims.Category, "unit", dims.Unit, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("analysis failed"))
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{Analysis: a, Cached: cached})
}

func requireDate(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
		return "", false
	}
	return date, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
