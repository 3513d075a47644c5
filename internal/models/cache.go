package models

import "time"

// CacheDimensions identifies one monthly analysis by its business dimensions.
type CacheDimensions struct {
	Category   string `json:"category"`
	Unit       string `json:"unit"`
	CementType string `json:"cement_type"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
}

// CacheEntry is a persisted analysis result in the cop_analysis_cache collection.
type CacheEntry struct {
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastAccessed time.Time
	ID           string
	Key          string
	Category     string
	Unit         string
	CementType   string
	AnalysisData string
	Year         int
	Month        int
	DataSize     int
}

// Expired reports whether the entry's expiry lies strictly before now. An
// entry with a zero expiry is always expired.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// CacheStats summarizes the cache collection.
type CacheStats struct {
	TotalEntries     int   `json:"total_entries"`
	ActiveEntries    int   `json:"active_entries"`
	ExpiredEntries   int   `json:"expired_entries"`
	TotalApproxBytes int64 `json:"total_approx_bytes"`
}

// Persisted field names of the cop_analysis_cache collection.
const (
	FieldCacheKey     = "cache_key"
	FieldCategory     = "category"
	FieldUnit         = "unit"
	FieldYear         = "year"
	FieldMonth        = "month"
	FieldCementType   = "cement_type"
	FieldAnalysisData = "analysis_data"
	FieldCreatedAt    = "created_at"
	FieldExpiresAt    = "expires_at"
	FieldLastAccessed = "last_accessed"
	FieldDataSize     = "data_size"
)

// CacheFilter selects cache entries. Zero fields do not filter.
// Results are ordered newest first.
type CacheFilter struct {
	ExpiresBefore time.Time
	Key           string
	Limit         int
}
