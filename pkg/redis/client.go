package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/africa-covid/backend/pkg/config"
)

const (
	connectTimeout = 5 * time.Second
	ioTimeout      = 2 * time.Second
)

// Client is the connection behind the shared aggregate cache.
// API replicas pointing at the same instance share continent and region rollups.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb     *redis.Client
	addr    string
	enabled bool
}

// New connects the aggregate cache backend.
// REDIS_ENABLED=false yields a client whose cache operations are no-ops.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{enabled: false}, nil
	}

	addr := fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  connectTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	// A cache that cannot be reached at startup is a config error, not a miss.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect aggregate cache at %s: %w", addr, err)
	}

	return &Client{
		rdb:     rdb,
		addr:    addr,
		enabled: true,
	}, nil
}

// Close releases the connection pool
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("close aggregate cache %s: %w", c.addr, err)
	}
	return nil
}

// Enabled reports whether aggregates are shared through Redis
func (c *Client) Enabled() bool {
	return c.enabled
}

// Addr is host:port of the cache, empty when disabled
func (c *Client) Addr() string {
	return c.addr
}

// Redis exposes the go-redis client to the cache helpers
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
