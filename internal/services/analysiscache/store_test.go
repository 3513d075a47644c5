package analysiscache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/db"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

// memStore is an in-memory Store recording every call.
type memStore struct {
	failFind   error
	failDelete map[string]error
	entries    []models.CacheEntry
	calls      []string
	nextID     int
	mu         sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{failDelete: map[string]error{}}
}

func (s *memStore) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *memStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *memStore) FindCacheEntries(_ context.Context, f models.CacheFilter) ([]models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("find")
	if s.failFind != nil {
		return nil, s.failFind
	}

	var out []models.CacheEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if f.Key != "" && e.Key != f.Key {
			continue
		}
		if !f.ExpiresBefore.IsZero() && !e.ExpiresAt.Before(f.ExpiresBefore) {
			continue
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b models.CacheEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) CreateCacheEntry(_ context.Context, e *models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("create")
	s.nextID++
	e.ID = fmt.Sprintf("e%d", s.nextID)
	s.entries = append(s.entries, *e)
	return nil
}

func (s *memStore) UpdateCacheEntry(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("update")
	for i := range s.entries {
		if s.entries[i].ID != id {
			continue
		}
		for name, v := range fields {
			switch name {
			case models.FieldLastAccessed:
				s.entries[i].LastAccessed = v.(time.Time)
			default:
				return fmt.Errorf("unsupported field %s", name)
			}
		}
		return nil
	}
	return db.ErrNotFound
}

func (s *memStore) DeleteCacheEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("delete")
	if err := s.failDelete[id]; err != nil {
		return err
	}
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = slices.Delete(s.entries, i, i+1)
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *memStore) byKey(key string) []models.CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CacheEntry
	for _, e := range s.entries {
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) insert(e models.CacheEntry) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = fmt.Sprintf("e%d", s.nextID)
	s.entries = append(s.entries, e)
	return e.ID
}

// replacingStore adds an atomic replace to memStore.
type replacingStore struct {
	*memStore
	replaces int
}

func (s *replacingStore) ReplaceCacheEntry(_ context.Context, e *models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaces++
	s.entries = slices.DeleteFunc(s.entries, func(x models.CacheEntry) bool { return x.Key == e.Key })
	s.nextID++
	e.ID = fmt.Sprintf("e%d", s.nextID)
	s.entries = append(s.entries, *e)
	return nil
}

var errBackendDown = errors.New("backend unavailable")
