package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// reportGenerationKey holds the report generation. It sits outside
// reportCachePattern so invalidation never resets it.
const reportGenerationKey = "report-generation"

// CacheService orchestrates cache operations and related metrics. Cache
// failures never fail the caller's request; they are logged and reported as
// misses.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	now        func() time.Time

	// suspendedUntil is a unix-nano deadline before which reports bypass the
	// cache, set when an invalidation could not be recorded.
	suspendedUntil atomic.Int64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled, now: time.Now}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Generation returns the current report generation. ok is false when reports
// must not use the cache: caching is off, suspended, or the counter is
// unreadable.
func (s *CacheService) Generation(ctx context.Context) (gen int64, ok bool) {
	if !s.Enabled() {
		return 0, false
	}
	if s.now().UnixNano() < s.suspendedUntil.Load() {
		return 0, false
	}
	gen, err := s.repo.Counter(ctx, reportGenerationKey)
	if err != nil {
		s.logger.Warn("cache generation unreadable", zap.Error(err))
		return 0, false
	}
	return gen, true
}

// Invalidate advances the report generation, which makes every key built for
// an earlier generation unreachable, then evicts the entries matching
// pattern. When the generation cannot be advanced, reports bypass the cache
// until entries written before the failure have expired.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	var errs []error
	if _, err := s.repo.Incr(ctx, reportGenerationKey); err != nil {
		s.suspendedUntil.Store(s.now().Add(s.defaultTTL).UnixNano())
		s.metrics.RecordCacheInvalidationFailure()
		s.logger.Error("cache generation not advanced, bypassing report cache",
			zap.Duration("for", s.defaultTTL), zap.Error(err))
		errs = append(errs, err)
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ReportCacheKey derives the key of a report result for one generation.
// Filter values are query-escaped so distinct filter sets never share a key;
// empty values are dropped.
func ReportCacheKey(name models.ReportName, generation int64, params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}

	key := "reports:" + string(name) + ":g" + strconv.FormatInt(generation, 10)
	if encoded := values.Encode(); encoded != "" {
		key += ":" + encoded
	}
	return key
}
