package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService orchestrates cache operations and related metrics. It is built once per
// process and shared by every read path.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	prefix     string
	logger     *zap.Logger
	enabled    bool

	group singleflight.Group

	// mu orders invalidations against stores so a fetch that started before an
	// invalidation can never write its stale result afterwards.
	mu          sync.RWMutex
	epoch       uint64
	generations map[string]uint64
}

type cacheToken struct {
	epoch      uint64
	generation uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, prefix string, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:        repo,
		metrics:     metrics,
		defaultTTL:  defaultTTL,
		prefix:      prefix,
		logger:      logger,
		enabled:     enabled,
		generations: make(map[string]uint64),
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

func (s *CacheService) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *CacheService) token(key string) cacheToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cacheToken{epoch: s.epoch, generation: s.generations[key]}
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, s.key(key), dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store(ctx, key, value, ttl)
}

func (s *CacheService) store(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, s.key(key), value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// setIfCurrent stores value only when no invalidation touched key since tok was taken.
func (s *CacheService) setIfCurrent(ctx context.Context, key string, tok cacheToken, value interface{}, ttl time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.epoch != tok.epoch || s.generations[key] != tok.generation {
		return
	}
	_ = s.store(ctx, key, value, ttl)
}

// Invalidate removes one cached collection.
func (s *CacheService) Invalidate(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[key]++
	if err := s.repo.Delete(ctx, s.key(key)); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateAll removes every entry under the service prefix.
func (s *CacheService) InvalidateAll(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	pattern := s.key("*")
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// GetOrFetch returns the live entry for key or calls fetch and stores its result. The bool
// reports a cache hit. A failed fetch is returned to the caller and never stored, and
// concurrent misses on one key share a single fetch. A broken cache degrades to fetching.
func GetOrFetch[T any](ctx context.Context, s *CacheService, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, bool, error) {
	if !s.Enabled() {
		value, err := fetch(ctx)
		return value, false, err
	}

	var cached T
	if hit, _ := s.Get(ctx, key, &cached); hit {
		return cached, true, nil
	}

	tok := s.token(key)
	flight := fmt.Sprintf("%s#%d.%d", key, tok.epoch, tok.generation)
	// The flight outlives any one caller; each waiter gives up on its own context only.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flight, func() (interface{}, error) {
		value, err := fetch(flightCtx)
		if err != nil {
			return nil, err
		}
		s.setIfCurrent(flightCtx, key, tok, value, ttl)
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	}
}
