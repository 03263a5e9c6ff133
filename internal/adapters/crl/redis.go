package crl

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultRedisKey = "lcp:crl:current"

// RedisCache shares one CRL across every process pointed at the same
// Redis instance, so a fleet of readers doesn't hammer the
// distribution point independently (grounded on the session package's
// Redis hot-cache provider).
type RedisCache struct {
	client goredis.UniversalClient
	source Source
	key    string
	ttl    time.Duration
}

// RedisConfig configures NewRedisCache.
type RedisConfig struct {
	Addrs    []string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// NewRedisCache connects to Redis and verifies reachability with a PING.
func NewRedisCache(ctx context.Context, cfg RedisConfig, source Source) (*RedisCache, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("crl: at least one redis address is required")
	}
	key := cfg.Key
	if key == "" {
		key = defaultRedisKey
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Hour
	}

	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("crl: connect to redis: %w", err)
	}

	return &RedisCache{client: client, source: source, key: key, ttl: ttl}, nil
}

// Retrieve implements lcpdoc.CrlService, consulting Redis before
// falling back to source on a cache miss.
func (c *RedisCache) Retrieve(ctx context.Context) ([]byte, error) {
	if encoded, err := c.client.Get(ctx, c.key).Result(); err == nil {
		data, derr := base64.StdEncoding.DecodeString(encoded)
		if derr == nil {
			return data, nil
		}
	}

	data, err := c.source(ctx)
	if err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	_ = c.client.Set(ctx, c.key, encoded, c.ttl).Err()
	return data, nil
}

// Close releases the underlying Redis client.
func (c *RedisCache) Close() error { return c.client.Close() }
