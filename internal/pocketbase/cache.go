package pocketbase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

// CacheCollection is the collection holding cached analysis results.
const CacheCollection = "cop_analysis_cache"

// pageSize is the page size used when listing without a limit.
const pageSize = 200

type cacheRecord struct {
	ID           string `json:"id,omitempty"`
	CacheKey     string `json:"cache_key"`
	Category     string `json:"category"`
	Unit         string `json:"unit"`
	CementType   string `json:"cement_type"`
	AnalysisData string `json:"analysis_data"`
	CreatedAt    string `json:"created_at"`
	ExpiresAt    string `json:"expires_at"`
	LastAccessed string `json:"last_accessed"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	DataSize     int    `json:"data_size"`
}

type listResponse struct {
	Items      []cacheRecord `json:"items"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

func recordFromEntry(e *models.CacheEntry) cacheRecord {
	return cacheRecord{
		ID:           e.ID,
		CacheKey:     e.Key,
		Category:     e.Category,
		Unit:         e.Unit,
		CementType:   e.CementType,
		AnalysisData: e.AnalysisData,
		CreatedAt:    e.CreatedAt.UTC().Format(DateTimeLayout),
		ExpiresAt:    e.ExpiresAt.UTC().Format(DateTimeLayout),
		LastAccessed: e.LastAccessed.UTC().Format(DateTimeLayout),
		Year:         e.Year,
		Month:        e.Month,
		DataSize:     e.DataSize,
	}
}

// entry converts r to a cache entry. A timestamp that does not parse is
// logged and left zero, so the entry reads as expired and gets swept.
func (r *cacheRecord) entry() models.CacheEntry {
	e := models.CacheEntry{
		ID:           r.ID,
		Key:          r.CacheKey,
		Category:     r.Category,
		Unit:         r.Unit,
		CementType:   r.CementType,
		AnalysisData: r.AnalysisData,
		Year:         r.Year,
		Month:        r.Month,
		DataSize:     r.DataSize,
	}

	e.CreatedAt = parseField(r.ID, "created_at", r.CreatedAt)
	e.ExpiresAt = parseField(r.ID, "expires_at", r.ExpiresAt)
	if r.LastAccessed != "" {
		e.LastAccessed = parseField(r.ID, "last_accessed", r.LastAccessed)
	}
	return e
}

func parseField(id, field, raw string) time.Time {
	t, err := models.ParseTimestamp(raw)
	if err != nil {
		logger.Warn("unparsable cache record timestamp", "id", id, "field", field, "value", raw, "error", err)
		return time.Time{}
	}
	return t
}

func recordsPath(id string) string {
	p := "/api/collections/" + CacheCollection + "/records"
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

// cacheFilter renders a CacheFilter as a PocketBase filter expression.
func cacheFilter(f models.CacheFilter) string {
	var key, expires string
	if f.Key != "" {
		key = models.FieldCacheKey + " = " + Quote(f.Key)
	}
	if !f.ExpiresBefore.IsZero() {
		expires = models.FieldExpiresAt + " < " + QuoteTime(f.ExpiresBefore)
	}
	return And(key, expires)
}

// FindCacheEntries lists cache records matching filter, newest first.
// A missing collection yields ErrNotFound.
func (c *Client) FindCacheEntries(ctx context.Context, filter models.CacheFilter) ([]models.CacheEntry, error) {
	perPage := pageSize
	if filter.Limit > 0 {
		perPage = filter.Limit
	}

	query := url.Values{}
	query.Set("sort", "-"+models.FieldCreatedAt)
	query.Set("perPage", strconv.Itoa(perPage))
	if expr := cacheFilter(filter); expr != "" {
		query.Set("filter", expr)
	}

	var entries []models.CacheEntry
	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))

		var resp listResponse
		if err := c.do(ctx, http.MethodGet, recordsPath(""), query, nil, &resp); err != nil {
			return nil, fmt.Errorf("list %s: %w", CacheCollection, err)
		}

		for i := range resp.Items {
			entries = append(entries, resp.Items[i].entry())
		}

		if filter.Limit > 0 || page >= resp.TotalPages || len(resp.Items) == 0 {
			return entries, nil
		}
	}
}

// CreateCacheEntry creates a cache record and stores the assigned id on entry.
func (c *Client) CreateCacheEntry(ctx context.Context, entry *models.CacheEntry) error {
	var created cacheRecord
	if err := c.do(ctx, http.MethodPost, recordsPath(""), nil, recordFromEntry(entry), &created); err != nil {
		return fmt.Errorf("create %s record: %w", CacheCollection, err)
	}
	if created.ID != "" {
		entry.ID = created.ID
	}
	return nil
}

// UpdateCacheEntry patches the given fields of one record.
func (c *Client) UpdateCacheEntry(ctx context.Context, id string, fields map[string]any) error {
	body := make(map[string]any, len(fields))
	for name, value := range fields {
		if t, ok := value.(time.Time); ok {
			value = t.UTC().Format(DateTimeLayout)
		}
		body[name] = value
	}

	if err := c.do(ctx, http.MethodPatch, recordsPath(id), nil, body, nil); err != nil {
		return fmt.Errorf("update %s record %s: %w", CacheCollection, id, err)
	}
	return nil
}

// DeleteCacheEntry deletes one record.
func (c *Client) DeleteCacheEntry(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, recordsPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete %s record %s: %w", CacheCollection, id, err)
	}
	return nil
}

// IsNotFound reports whether err is a PocketBase 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
