package analysiscache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/auth"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/pocketbase"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type payload struct {
	Parameters map[string][]float64 `json:"parameters"`
	Overall    float64              `json:"overall"`
	Notes      []string             `json:"notes"`
}

var (
	start = time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	dims  = models.CacheDimensions{Category: "Tonasa 2/3", Unit: "Cement Mill 220", Year: 2025, Month: 10, CementType: "OPC"}
)

func newTestCache(store Store, opts ...Option) (*Cache, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(start)
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(store, auth.LocalSession{}, opts...), clock
}

func samplePayload() payload {
	return payload{
		Parameters: map[string][]float64{"blaine": {3400, 3450}, "so3": {2.1}},
		Overall:    87.5,
		Notes:      []string{"ok"},
	}
}

func TestKey_Normalization(t *testing.T) {
	a := Key(models.CacheDimensions{Category: "Tonasa 2/3", Unit: " Cement Mill 220 ", Year: 2025, Month: 10, CementType: "opc"})
	b := Key(models.CacheDimensions{Category: "TONASA  2/3", Unit: "cement\tmill 220", Year: 2025, Month: 10, CementType: " OPC"})
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, KeyPrefix+"/") {
		t.Errorf("key %q missing prefix", a)
	}
}

func TestKey_Injective(t *testing.T) {
	keys := map[string]models.CacheDimensions{}
	cases := []models.CacheDimensions{
		{Category: "a/b", Unit: "c", Year: 2025, Month: 1, CementType: "opc"},
		{Category: "a", Unit: "b/c", Year: 2025, Month: 1, CementType: "opc"},
		{Category: "a", Unit: "b", Year: 2025, Month: 1, CementType: "opc"},
		{Category: "a", Unit: "b", Year: 2025, Month: 11, CementType: "opc"},
		{Category: "a", Unit: "b", Year: 20251, Month: 1, CementType: "opc"},
		{Category: "a", Unit: "b", Year: 2025, Month: 1, CementType: "pcc"},
		{Category: "a b", Unit: "c", Year: 2025, Month: 1, CementType: "opc"},
		{Category: "a", Unit: "b c", Year: 2025, Month: 1, CementType: "opc"},
	}
	for _, d := range cases {
		k := Key(d)
		if prev, ok := keys[k]; ok {
			t.Errorf("collision between %+v and %+v on %q", prev, d, k)
		}
		keys[k] = d
	}
}

func TestCache_RoundTrip(t *testing.T) {
	store := newMemStore()
	cache, _ := newTestCache(store)
	ctx := context.Background()

	want := samplePayload()
	cache.Put(ctx, dims, want)

	var got payload
	if !cache.Get(ctx, dims, &got) {
		t.Fatal("expected a hit after Put")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}

	entries := store.byKey(Key(dims))
	if len(entries) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(entries))
	}
	e := entries[0]
	if !e.ExpiresAt.Equal(start.Add(DefaultTTL)) || e.DataSize != len(e.AnalysisData) {
		t.Errorf("unexpected stored entry: %+v", e)
	}
	if e.Category != dims.Category || e.Year != 2025 || e.Month != 10 {
		t.Errorf("dimensions not stored: %+v", e)
	}
}

func TestCache_NormalizedKeysCollide(t *testing.T) {
	store := newMemStore()
	cache, _ := newTestCache(store)
	ctx := context.Background()

	cache.Put(ctx, models.CacheDimensions{Category: "tonasa 2/3", Unit: "CEMENT MILL 220", Year: 2025, Month: 10, CementType: "OPC"}, samplePayload())

	var got payload
	lookup := models.CacheDimensions{Category: "Tonasa 2/3", Unit: " Cement Mill 220 ", Year: 2025, Month: 10, CementType: "opc"}
	if !cache.Get(ctx, lookup, &got) {
		t.Error("differently cased and spaced dimensions should hit the same entry")
	}
}

func TestCache_HitRefreshesLastAccessed(t *testing.T) {
	store := newMemStore()
	cache, clock := newTestCache(store)
	ctx := context.Background()

	cache.Put(ctx, dims, samplePayload())
	clock.Advance(time.Hour)

	var got payload
	if !cache.Get(ctx, dims, &got) {
		t.Fatal("expected hit")
	}
	e := store.byKey(Key(dims))[0]
	if !e.LastAccessed.Equal(start.Add(time.Hour)) {
		t.Errorf("LastAccessed = %v, want %v", e.LastAccessed, start.Add(time.Hour))
	}
}

func TestCache_ExpiredEntryDeletedOnLookup(t *testing.T) {
	store := newMemStore()
	cache, clock := newTestCache(store)
	ctx := context.Background()

	cache.Put(ctx, dims, samplePayload())
	clock.Advance(DefaultTTL + time.Second)

	var got payload
	if cache.Get(ctx, dims, &got) {
		t.Error("expired entry must not be returned")
	}
	if n := len(store.byKey(Key(dims))); n != 0 {
		t.Errorf("expired entry should be deleted on lookup, %d left", n)
	}
}

func TestCache_AtMostOneLiveEntry(t *testing.T) {
	for _, tc := range []struct {
		name  string
		store Store
	}{
		{"delete then insert", newMemStore()},
		{"replace", &replacingStore{memStore: newMemStore()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cache, clock := newTestCache(tc.store)
			ctx := context.Background()

			for i := range 4 {
				p := samplePayload()
				p.Overall = float64(i)
				cache.Put(ctx, dims, p)
				clock.Advance(time.Minute)
			}

			var mem *memStore
			switch s := tc.store.(type) {
			case *memStore:
				mem = s
			case *replacingStore:
				mem = s.memStore
				if s.replaces != 4 {
					t.Errorf("expected ReplaceCacheEntry to be used, got %d calls", s.replaces)
				}
			}

			live := 0
			for _, e := range mem.byKey(Key(dims)) {
				if !e.Expired(clock.Now()) {
					live++
				}
			}
			if live != 1 {
				t.Errorf("expected exactly one live entry, got %d", live)
			}

			var got payload
			if !cache.Get(ctx, dims, &got) || got.Overall != 3 {
				t.Errorf("expected the last payload, got %+v", got)
			}
		})
	}
}

func TestCache_EmptyPayloadIsNoop(t *testing.T) {
	store := newMemStore()
	cache, _ := newTestCache(store)
	ctx := context.Background()

	var nilPayload *payload
	for _, p := range []any{nil, nilPayload, map[string]any{}, []int{}, ""} {
		cache.Put(ctx, dims, p)
	}
	if calls := store.Calls(); len(calls) != 0 {
		t.Errorf("empty payloads should not touch the store, got %v", calls)
	}
}

func TestCache_UnauthenticatedNeverTouchesStore(t *testing.T) {
	for _, session := range []auth.Checker{nil, auth.Anonymous{}, auth.NewTokenSession("", nil)} {
		store := newMemStore()
		cache := New(store, session)
		ctx := context.Background()

		cache.Put(ctx, dims, samplePayload())
		var got payload
		if cache.Get(ctx, dims, &got) {
			t.Error("unauthenticated Get should miss")
		}
		if n := cache.SweepExpired(ctx); n != 0 {
			t.Errorf("unauthenticated sweep deleted %d", n)
		}
		if s := cache.Stats(ctx); s != (models.CacheStats{}) {
			t.Errorf("unauthenticated stats = %+v", s)
		}
		if n := cache.Invalidate(ctx, dims); n != 0 {
			t.Errorf("unauthenticated invalidate deleted %d", n)
		}
		if calls := store.Calls(); len(calls) != 0 {
			t.Errorf("store was called: %v", calls)
		}
	}
}

func TestCache_StoreErrorsDegradeToAbsent(t *testing.T) {
	store := newMemStore()
	store.failFind = errBackendDown
	cache, _ := newTestCache(store)
	ctx := context.Background()

	var got payload
	if cache.Get(ctx, dims, &got) {
		t.Error("store failure should read as a miss")
	}
	if s := cache.Stats(ctx); s != (models.CacheStats{}) {
		t.Errorf("stats should be zero on failure, got %+v", s)
	}
	if n := cache.SweepExpired(ctx); n != 0 {
		t.Errorf("sweep should delete nothing on failure, got %d", n)
	}

	store.failFind = pocketbase.ErrNotFound
	if cache.Get(ctx, dims, &got) {
		t.Error("missing collection should read as a miss")
	}
}

func TestCache_MalformedPayloadLeftForSweep(t *testing.T) {
	store := newMemStore()
	cache, clock := newTestCache(store)
	ctx := context.Background()

	store.insert(models.CacheEntry{
		Key:          Key(dims),
		AnalysisData: "{not json",
		CreatedAt:    start,
		ExpiresAt:    start.Add(time.Hour),
		LastAccessed: start,
	})

	var got payload
	if cache.Get(ctx, dims, &got) {
		t.Error("malformed payload should read as a miss")
	}
	if n := len(store.byKey(Key(dims))); n != 1 {
		t.Errorf("malformed entry should be left in place, %d entries", n)
	}

	clock.Advance(2 * time.Hour)
	if n := cache.SweepExpired(ctx); n != 1 {
		t.Errorf("sweep deleted %d, want 1", n)
	}
}

func TestCache_SweepExpired(t *testing.T) {
	store := newMemStore()
	cache, _ := newTestCache(store)
	ctx := context.Background()

	var ids []string
	for i := range 10 {
		ids = append(ids, store.insert(models.CacheEntry{
			Key:       "k" + string(rune('a'+i)),
			CreatedAt: start.Add(-48 * time.Hour),
			ExpiresAt: start.Add(-time.Duration(i+1) * time.Minute),
		}))
	}
	live := store.insert(models.CacheEntry{Key: "live", CreatedAt: start, ExpiresAt: start.Add(time.Hour)})
	store.failDelete[ids[3]] = errBackendDown

	if n := cache.SweepExpired(ctx); n != 9 {
		t.Errorf("SweepExpired = %d, want 9", n)
	}

	remaining, _ := store.FindCacheEntries(ctx, models.CacheFilter{})
	got := map[string]bool{}
	for _, e := range remaining {
		got[e.ID] = true
	}
	if !got[live] || !got[ids[3]] || len(got) != 2 {
		t.Errorf("unexpected remaining entries: %v", got)
	}
}

func TestCache_Stats(t *testing.T) {
	store := newMemStore()
	cache, _ := newTestCache(store)
	ctx := context.Background()

	store.insert(models.CacheEntry{Key: "a", ExpiresAt: start.Add(time.Hour), DataSize: 100})
	store.insert(models.CacheEntry{Key: "b", ExpiresAt: start.Add(2 * time.Hour), DataSize: 50})
	store.insert(models.CacheEntry{Key: "c", ExpiresAt: start.Add(-time.Second), DataSize: 7})

	want := models.CacheStats{TotalEntries: 3, ActiveEntries: 2, ExpiredEntries: 1, TotalApproxBytes: 157}
	if diff := cmp.Diff(want, cache.Stats(ctx)); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestCache_Invalidate(t *testing.T) {
	store := newMemStore()
	cache, _ := newTestCache(store)
	ctx := context.Background()

	store.insert(models.CacheEntry{Key: Key(dims), ExpiresAt: start.Add(time.Hour)})
	store.insert(models.CacheEntry{Key: Key(dims), ExpiresAt: start.Add(time.Hour)})
	store.insert(models.CacheEntry{Key: "other", ExpiresAt: start.Add(time.Hour)})

	if n := cache.Invalidate(ctx, dims); n != 2 {
		t.Errorf("Invalidate = %d, want 2", n)
	}
	if s := cache.Stats(ctx); s.TotalEntries != 1 {
		t.Errorf("expected 1 entry left, got %d", s.TotalEntries)
	}
}

func TestCache_WithTTL(t *testing.T) {
	store := newMemStore()
	cache, clock := newTestCache(store, WithTTL(time.Hour))
	ctx := context.Background()

	if cache.TTL() != time.Hour {
		t.Errorf("TTL = %v", cache.TTL())
	}

	cache.Put(ctx, dims, samplePayload())
	clock.Advance(59 * time.Minute)
	var got payload
	if !cache.Get(ctx, dims, &got) {
		t.Error("entry should be live before the TTL")
	}
	clock.Advance(time.Minute)
	if !cache.Get(ctx, dims, &got) {
		t.Error("entry should still be live at the expiry instant")
	}
	clock.Advance(time.Second)
	if cache.Get(ctx, dims, &got) {
		t.Error("entry should expire after the TTL")
	}

	if New(store, auth.LocalSession{}, WithTTL(-time.Second)).TTL() != DefaultTTL {
		t.Error("non-positive TTL should be ignored")
	}
}

func TestGetOrCompute(t *testing.T) {
	store := newMemStore()
	cache, _ := newTestCache(store)
	ctx := context.Background()

	computed := 0
	compute := func(context.Context) (payload, error) {
		computed++
		return samplePayload(), nil
	}

	first, cached, err := GetOrCompute(ctx, cache, dims, compute)
	if err != nil || cached {
		t.Fatalf("first call: cached=%v err=%v", cached, err)
	}
	second, cached, err := GetOrCompute(ctx, cache, dims, compute)
	if err != nil || !cached {
		t.Fatalf("second call: cached=%v err=%v", cached, err)
	}
	if computed != 1 {
		t.Errorf("compute ran %d times, want 1", computed)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached value differs (-first +second):\n%s", diff)
	}

	_, _, err = GetOrCompute(ctx, cache, models.CacheDimensions{Category: "x"}, func(context.Context) (payload, error) {
		return payload{}, errBackendDown
	})
	if err != errBackendDown {
		t.Errorf("expected compute error, got %v", err)
	}
}

func TestCache_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	store := newMemStore()
	cache, _ := newTestCache(store, WithMetrics(metrics))
	ctx := context.Background()

	var got payload
	cache.Get(ctx, dims, &got)
	cache.Put(ctx, dims, samplePayload())
	cache.Put(ctx, dims, nil)
	cache.Get(ctx, dims, &got)

	if v := testutil.ToFloat64(metrics.Lookups.WithLabelValues("miss")); v != 1 {
		t.Errorf("miss count = %v", v)
	}
	if v := testutil.ToFloat64(metrics.Lookups.WithLabelValues("hit")); v != 1 {
		t.Errorf("hit count = %v", v)
	}
	if v := testutil.ToFloat64(metrics.Writes.WithLabelValues("ok")); v != 1 {
		t.Errorf("write ok count = %v", v)
	}
	if v := testutil.ToFloat64(metrics.Writes.WithLabelValues("skipped")); v != 1 {
		t.Errorf("write skipped count = %v", v)
	}
}

func TestRunSweeper(t *testing.T) {
	store := newMemStore()
	cache, clock := newTestCache(store)
	ctx, cancel := context.WithCancel(context.Background())

	sweeps := make(chan int, 10)
	done := make(chan struct{})
	go func() {
		cache.RunSweeper(ctx, time.Hour, func(n int) { sweeps <- n })
		close(done)
	}()

	if n := <-sweeps; n != 0 {
		t.Errorf("initial sweep deleted %d", n)
	}

	store.insert(models.CacheEntry{Key: "old", ExpiresAt: start.Add(30 * time.Minute)})
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("BlockUntilContext: %v", err)
	}
	clock.Advance(time.Hour)

	if n := <-sweeps; n != 1 {
		t.Errorf("ticker sweep deleted %d, want 1", n)
	}

	cancel()
	<-done
}

func TestRunSweeper_NoInterval(t *testing.T) {
	cache, _ := newTestCache(newMemStore())

	runs := 0
	cache.RunSweeper(context.Background(), 0, func(int) { runs++ })
	if runs != 1 {
		t.Errorf("expected a single sweep, got %d", runs)
	}
}
