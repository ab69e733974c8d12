package query

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/metrics"
	"github.com/wonny/africa-covid/backend/pkg/logger"
	"github.com/wonny/africa-covid/backend/pkg/redis"
)

// Cache stores aggregate series. Keys embed the snapshot ID, which is unique
// across restarts and across replicas sharing one backend.
type Cache interface {
	Get(ctx context.Context, key string) ([]contracts.TrendDatum, bool)
	Set(ctx context.Context, key string, series []contracts.TrendDatum)
	Purge(ctx context.Context)
}

// MemoryCache is the in-process aggregate cache
type MemoryCache struct {
	cache   *ttlcache.Cache[string, []contracts.TrendDatum]
	cacheMu sync.RWMutex
	ttl     time.Duration
}

// NewMemoryCache creates an in-process cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: ttlcache.New(
			ttlcache.WithTTL[string, []contracts.TrendDatum](ttl),
		),
		ttl: ttl,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]contracts.TrendDatum, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	cached := c.cache.Get(key)
	if cached == nil {
		metrics.AggregateCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.AggregateCache.WithLabelValues("hit").Inc()
	return cached.Value(), true
}

func (c *MemoryCache) Set(_ context.Context, key string, series []contracts.TrendDatum) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache.Set(key, series, c.ttl)
}

// Purge drops every entry; called synchronously on snapshot publish
func (c *MemoryCache) Purge(_ context.Context) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache.DeleteAll()
}

// Len returns the number of cached entries
func (c *MemoryCache) Len() int {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return c.cache.Len()
}

// RedisCache shares aggregates between API replicas.
// Entries of older snapshots are never read again; Purge reclaims them early.
type RedisCache struct {
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisCache creates a Redis backed cache
func NewRedisCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	return &RedisCache{
		cache:  redis.NewCache(client, "covid"),
		ttl:    ttl,
		logger: log.Module("query-cache"),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]contracts.TrendDatum, bool) {
	var series []contracts.TrendDatum
	found, err := c.cache.Get(ctx, key, &series)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		return nil, false
	}
	if !found {
		metrics.AggregateCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.AggregateCache.WithLabelValues("hit").Inc()
	return series, true
}

func (c *RedisCache) Set(ctx context.Context, key string, series []contracts.TrendDatum) {
	if err := c.cache.Set(ctx, key, series, c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

// Purge drops every shared aggregate. Other replicas refill on their next miss.
func (c *RedisCache) Purge(ctx context.Context) {
	n, err := c.cache.DeleteMatching(ctx, redis.AggregatePattern)
	if err != nil {
		c.logger.WithError(err).Warn("Cache purge failed")
		return
	}
	c.logger.WithField("deleted", n).Debug("Cache purged")
}
