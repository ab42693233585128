package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

type memoryEntry struct {
	payload   []byte
	fetchedAt time.Time
	expiresAt time.Time
}

// MemoryCacheRepository is the in-process cache backend. Entries are stored as JSON so a
// reader can never mutate a cached value in place.
type MemoryCacheRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCacheRepository constructs an empty cache. A nil clock uses time.Now.
func NewMemoryCacheRepository(now func() time.Time) *MemoryCacheRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryCacheRepository{entries: make(map[string]memoryEntry), now: now}
}

// Get decodes the live entry for key into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok || !r.now().Before(entry.expiresAt) {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set replaces the entry for key.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	now := r.now()
	r.mu.Lock()
	r.entries[key] = memoryEntry{payload: payload, fetchedAt: now, expiresAt: now.Add(ttl)}
	r.mu.Unlock()
	return nil
}

// Delete removes one key.
func (r *MemoryCacheRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

// DeleteByPattern removes every key matching the glob pattern.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid cache pattern %s: %w", pattern, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(r.entries, key)
		}
	}
	return nil
}

// FetchedAt reports when key was stored, for live entries only.
func (r *MemoryCacheRepository) FetchedAt(key string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[key]
	if !ok || !r.now().Before(entry.expiresAt) {
		return time.Time{}, false
	}
	return entry.fetchedAt, true
}
