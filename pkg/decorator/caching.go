package decorator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/architeacher/criteria/pkg/metrics"
)

type (
	// CacheStatus represents the status of a cache operation.
	CacheStatus string

	// cacheStatusKey is the context key for cache status.
	cacheStatusKey struct{}

	// cacheStatusTrackerKey is the context key for a caller-owned status slot.
	cacheStatusTrackerKey struct{}

	cacheStatusTracker struct {
		mu     sync.Mutex
		status CacheStatus
	}

	// CacheConfig holds configuration for the caching decorator.
	CacheConfig struct {
		Enabled bool
		TTL     time.Duration
		// Metrics, when set, counts hits, misses and errors per query.
		Metrics metrics.Client
	}

	// CacheGetter retrieves items from cache.
	CacheGetter[Q Query, R Result] interface {
		Get(ctx context.Context, query Q) (R, bool, error)
	}

	// CacheSetter stores items in cache.
	CacheSetter[Q Query, R Result] interface {
		Set(ctx context.Context, query Q, result R, ttl time.Duration) error
	}

	// Cache combines getter and setter operations.
	Cache[Q Query, R Result] interface {
		CacheGetter[Q, R]
		CacheSetter[Q, R]
	}

	queryCachingDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		cache  Cache[Q, R]
		config CacheConfig
	}
)

const (
	CacheStatusHit    CacheStatus = "HIT"
	CacheStatusMiss   CacheStatus = "MISS"
	CacheStatusBypass CacheStatus = "BYPASS"
	CacheStatusError  CacheStatus = "ERROR"
)

// ErrUncacheable is returned by a Cache whose key cannot represent the query.
// The decorator then runs the query uncached and reports BYPASS.
var ErrUncacheable = errors.New("query cannot be cached")

// TrackCacheStatus returns a context through which the caching decorator
// reports its outcome back to the caller via GetCacheStatus.
func TrackCacheStatus(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheStatusTrackerKey{}, &cacheStatusTracker{})
}

// WithCacheStatus adds cache status to context.
func WithCacheStatus(ctx context.Context, status CacheStatus) context.Context {
	if tracker, ok := ctx.Value(cacheStatusTrackerKey{}).(*cacheStatusTracker); ok {
		tracker.mu.Lock()
		tracker.status = status
		tracker.mu.Unlock()
	}

	return context.WithValue(ctx, cacheStatusKey{}, status)
}

// GetCacheStatus retrieves cache status from context.
func GetCacheStatus(ctx context.Context) CacheStatus {
	if status, ok := ctx.Value(cacheStatusKey{}).(CacheStatus); ok {
		return status
	}

	if tracker, ok := ctx.Value(cacheStatusTrackerKey{}).(*cacheStatusTracker); ok {
		tracker.mu.Lock()
		defer tracker.mu.Unlock()

		if tracker.status != "" {
			return tracker.status
		}
	}

	return CacheStatusBypass
}

// NewQueryCachingDecorator creates a new caching decorator for queries.
func NewQueryCachingDecorator[Q Query, R Result](
	base QueryHandler[Q, R],
	cache Cache[Q, R],
	config CacheConfig,
) QueryHandler[Q, R] {
	return queryCachingDecorator[Q, R]{
		base:   base,
		cache:  cache,
		config: config,
	}
}

func (d queryCachingDecorator[Q, R]) Execute(ctx context.Context, query Q) (R, error) {
	var zero R

	if !d.config.Enabled || d.cache == nil {
		ctx = WithCacheStatus(ctx, CacheStatusBypass)

		return d.base.Execute(ctx, query)
	}

	cached, hit, err := d.cache.Get(ctx, query)

	switch {
	case errors.Is(err, ErrUncacheable):
		ctx = WithCacheStatus(ctx, CacheStatusBypass)
		d.count(ctx, query, "bypass")

		return d.base.Execute(ctx, query)
	case err != nil:
		ctx = WithCacheStatus(ctx, CacheStatusError)
		d.count(ctx, query, "error")
	case hit:
		ctx = WithCacheStatus(ctx, CacheStatusHit)
		d.count(ctx, query, "hit")

		return cached, nil
	default:
		ctx = WithCacheStatus(ctx, CacheStatusMiss)
		d.count(ctx, query, "miss")
	}

	result, err := d.base.Execute(ctx, query)
	if err != nil {
		return zero, err
	}

	// Synchronous so the next identical query observes the entry.
	if setErr := d.cache.Set(ctx, query, result, d.config.TTL); setErr != nil {
		ctx = WithCacheStatus(ctx, CacheStatusError)
		d.count(ctx, query, "error")
	}

	return result, nil
}

func (d queryCachingDecorator[Q, R]) count(ctx context.Context, query Q, outcome string) {
	if d.config.Metrics == nil {
		return
	}

	d.config.Metrics.Inc(ctx, fmt.Sprintf("cache.%s.%s", generateActionName(query), outcome), 1)
}
