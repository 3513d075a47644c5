// Package analysiscache persists expensive monthly analysis results keyed by
// their business dimensions, with a fixed TTL and last-access tracking.
//
// The cache is an optimization only. Every failure of the backing store
// degrades to a miss (or a skipped write) and is logged, never returned.
package analysiscache

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/auth"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/db"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/pocketbase"
)

// DefaultTTL is how long an entry stays live after it is written.
const DefaultTTL = 24 * time.Hour

// maxParallelDeletes bounds the concurrent deletes issued by a sweep.
const maxParallelDeletes = 8

// Store is the record store backing the cache.
type Store interface {
	FindCacheEntries(ctx context.Context, filter models.CacheFilter) ([]models.CacheEntry, error)
	CreateCacheEntry(ctx context.Context, entry *models.CacheEntry) error
	UpdateCacheEntry(ctx context.Context, id string, fields map[string]any) error
	DeleteCacheEntry(ctx context.Context, id string) error
}

// Replacer is implemented by stores that can swap all entries of a key for a
// new one atomically.
type Replacer interface {
	ReplaceCacheEntry(ctx context.Context, entry *models.CacheEntry) error
}

// outcome is the internal result of a lookup. Everything but outcomeHit is
// reported to callers as absent.
type outcome int

const (
	outcomeHit outcome = iota
	outcomeMiss
	outcomeExpired
	outcomeMalformed
	outcomeStoreError
	outcomeUnauthenticated
)

func (o outcome) String() string {
	switch o {
	case outcomeHit:
		return "hit"
	case outcomeMiss:
		return "miss"
	case outcomeExpired:
		return "expired"
	case outcomeMalformed:
		return "malformed"
	case outcomeStoreError:
		return "store_error"
	case outcomeUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Cache is a TTL cache of analysis payloads over a Store.
type Cache struct {
	store   Store
	session auth.Checker
	clock   clockwork.Clock
	metrics *Metrics
	ttl     time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock sets the clock used for timestamps and expiry.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithMetrics records cache activity on m.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates a cache over store. Operations are attempted only while session
// is valid; a nil session is never valid.
func New(store Store, session auth.Checker, opts ...Option) *Cache {
	if session == nil {
		session = auth.Anonymous{}
	}
	c := &Cache{
		store:   store,
		session: session,
		clock:   clockwork.NewRealClock(),
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the lifetime given to new entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func (c *Cache) authenticated() bool {
	return c.store != nil && c.session.IsValid()
}

// isNotFound reports whether err means the record or collection does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, pocketbase.ErrNotFound) || errors.Is(err, db.ErrNotFound)
}

// Get decodes the live payload cached for dims into out and reports whether
// it did. out may be partially written when false is returned.
func (c *Cache) Get(ctx context.Context, dims models.CacheDimensions, out any) bool {
	o := c.lookup(ctx, dims, out)
	c.metrics.observeLookup(o)
	return o == outcomeHit
}

func (c *Cache) lookup(ctx context.Context, dims models.CacheDimensions, out any) outcome {
	if !c.authenticated() {
		return outcomeUnauthenticated
	}

	key := Key(dims)
	entries, err := c.store.FindCacheEntries(ctx, models.CacheFilter{Key: key, Limit: 1})
	if err != nil {
		if isNotFound(err) {
			logger.Debug("cache collection not found", "key", key, "error", err)
			return outcomeMiss
		}
		logger.Warn("cache lookup failed", "key", key, "op", "get", "error", err)
		return outcomeStoreError
	}
	if len(entries) == 0 {
		return outcomeMiss
	}

	entry := entries[0]
	now := c.clock.Now()
	if entry.Expired(now) {
		if err := c.store.DeleteCacheEntry(ctx, entry.ID); err != nil && !isNotFound(err) {
			logger.Warn("failed to delete expired cache entry", "key", key, "op", "get", "error", err)
		}
		return outcomeExpired
	}

	if err := json.Unmarshal([]byte(entry.AnalysisData), out); err != nil {
		logger.Warn("malformed cached payload", "key", key, "op", "get", "error", err)
		return outcomeMalformed
	}

	fields := map[string]any{models.FieldLastAccessed: now}
	if err := c.store.UpdateCacheEntry(ctx, entry.ID, fields); err != nil {
		logger.Warn("failed to refresh cache access time", "key", key, "op", "touch", "error", err)
	}
	return outcomeHit
}

var emptyPayloads = [][]byte{
	[]byte("null"),
	[]byte("{}"),
	[]byte("[]"),
	[]byte(`""`),
}

func isEmptyPayload(data []byte) bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return true
	}
	for _, empty := range emptyPayloads {
		if bytes.Equal(data, empty) {
			return true
		}
	}
	return false
}

// Put stores payload for dims, replacing any previous entries for the same key.
// Empty payloads (nil, null, {}, [], "") are ignored.
func (c *Cache) Put(ctx context.Context, dims models.CacheDimensions, payload any) {
	if payload == nil {
		c.metrics.observeWrite(writeSkipped)
		return
	}
	if !c.authenticated() {
		c.metrics.observeWrite(writeUnauthenticated)
		return
	}

	key := Key(dims)
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("failed to encode cache payload", "key", key, "op", "put", "error", err)
		c.metrics.observeWrite(writeError)
		return
	}
	if isEmptyPayload(data) {
		c.metrics.observeWrite(writeSkipped)
		return
	}

	now := c.clock.Now()
	entry := &models.CacheEntry{
		Key:          key,
		Category:     dims.Category,
		Unit:         dims.Unit,
		CementType:   dims.CementType,
		Year:         dims.Year,
		Month:        dims.Month,
		AnalysisData: string(data),
		CreatedAt:    now,
		ExpiresAt:    now.Add(c.ttl),
		LastAccessed: now,
		DataSize:     len(data),
	}

	if r, ok := c.store.(Replacer); ok {
		err = r.ReplaceCacheEntry(ctx, entry)
	} else {
		c.deleteKey(ctx, key, "put")
		err = c.store.CreateCacheEntry(ctx, entry)
	}
	if err != nil {
		logger.Warn("cache write failed", "key", key, "op", "put", "error", err)
		c.metrics.observeWrite(writeError)
		return
	}
	c.metrics.observeWrite(writeOK)
}

// deleteKey removes every entry stored under key and returns how many were deleted.
func (c *Cache) deleteKey(ctx context.Context, key, op string) int {
	entries, err := c.store.FindCacheEntries(ctx, models.CacheFilter{Key: key})
	if err != nil {
		if !isNotFound(err) {
			logger.Warn("failed to list cache entries", "key", key, "op", op, "error", err)
		}
		return 0
	}

	deleted := 0
	for _, e := range entries {
		if err := c.store.DeleteCacheEntry(ctx, e.ID); err != nil {
			if !isNotFound(err) {
				logger.Warn("failed to delete cache entry", "key", key, "op", op, "error", err)
			}
			continue
		}
		deleted++
	}
	return deleted
}

// Invalidate deletes every entry cached for dims and returns how many were removed.
func (c *Cache) Invalidate(ctx context.Context, dims models.CacheDimensions) int {
	if !c.authenticated() {
		return 0
	}
	return c.deleteKey(ctx, Key(dims), "invalidate")
}

// SweepExpired deletes every entry whose expiry has passed and returns how many
// were deleted. Deletes run in parallel and independently of each other.
func (c *Cache) SweepExpired(ctx context.Context) int {
	if !c.authenticated() {
		return 0
	}

	entries, err := c.store.FindCacheEntries(ctx, models.CacheFilter{ExpiresBefore: c.clock.Now()})
	if err != nil {
		if !isNotFound(err) {
			logger.Warn("failed to list expired cache entries", "op", "sweep", "error", err)
		}
		return 0
	}

	var (
		g       errgroup.Group
		deleted atomic.Int64
	)
	g.SetLimit(maxParallelDeletes)
	for _, e := range entries {
		g.Go(func() error {
			if err := c.store.DeleteCacheEntry(ctx, e.ID); err != nil {
				if !isNotFound(err) {
					logger.Warn("failed to delete expired cache entry", "key", e.Key, "op", "sweep", "error", err)
				}
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	n := int(deleted.Load())
	c.metrics.observeSwept(n)
	if n > 0 {
		logger.Info("swept expired cache entries", "deleted", n, "found", len(entries))
	}
	return n
}

// Stats summarizes all entries relative to now. Failures yield zero stats.
func (c *Cache) Stats(ctx context.Context) models.CacheStats {
	var stats models.CacheStats
	if !c.authenticated() {
		return stats
	}

	entries, err := c.store.FindCacheEntries(ctx, models.CacheFilter{})
	if err != nil {
		if !isNotFound(err) {
			logger.Warn("failed to list cache entries", "op", "stats", "error", err)
		}
		return models.CacheStats{}
	}

	now := c.clock.Now()
	for i := range entries {
		stats.TotalEntries++
		stats.TotalApproxBytes += int64(entries[i].DataSize)
		if entries[i].Expired(now) {
			stats.ExpiredEntries++
		} else {
			stats.ActiveEntries++
		}
	}
	return stats
}

// GetOrCompute returns the cached value for dims, or runs compute and caches
// its result. The boolean reports whether the value came from the cache.
// Errors come only from compute.
func GetOrCompute[T any](ctx context.Context, c *Cache, dims models.CacheDimensions, compute func(context.Context) (T, error)) (T, bool, error) {
	var cached T
	if c.Get(ctx, dims, &cached) {
		return cached, true, nil
	}

	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	c.Put(ctx, dims, value)
	return value, false, nil
}

// RunSweeper sweeps once immediately and then every interval until ctx is
// done. A non-positive interval sweeps once and returns. onSweep, when not nil,
// receives the number of entries deleted by each sweep.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(int)) {
	sweep := func() {
		n := c.SweepExpired(ctx)
		if onSweep != nil {
			onSweep(n)
		}
	}

	sweep()
	if interval <= 0 {
		return
	}

	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			sweep()
		}
	}
}
