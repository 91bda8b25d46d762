// Package cache implements the cache adapter collaborator: opaque
// key/value get/set with TTL over Redis. The cache is never the source of
// truth; callers treat any failure as a pure miss.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codec404/Konfig/internal/model"
)

// Cache is the key/value contract consumed by the distribution engine's
// read-through fetch. Keys follow the stable scheme built by
// ConfigLatestKey/ConfigVersionKey; values are opaque bytes.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	Get(ctx context.Context, key string) ([]byte, bool)
	Delete(ctx context.Context, key string) bool
	Exists(ctx context.Context, key string) bool
}

// ConfigLatestKey builds the cache key for a service's latest version.
func ConfigLatestKey(serviceName string) string {
	return "config:latest:" + serviceName
}

// ConfigVersionKey builds the cache key for one specific version.
func ConfigVersionKey(serviceName string, version int64) string {
	if version <= 0 {
		return ConfigLatestKey(serviceName)
	}
	return "config:" + serviceName + ":v" + itoa(version)
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// RedisCache is the production Cache, backed by go-redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedis opens a connection (lazily; go-redis dials on first command) to
// the given address and pings it to fail fast on misconfiguration, matching
// the original's Initialize()'s PING test.
func NewRedis(ctx context.Context, host string, port int, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: hostPort(host, port),
		DB:   db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

func hostPort(host string, port int) string {
	return host + ":" + itoa(int64(port))
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	return c.client.Set(ctx, key, value, ttl).Err() == nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *RedisCache) Delete(ctx context.Context, key string) bool {
	n, err := c.client.Del(ctx, key).Result()
	return err == nil && n > 0
}

func (c *RedisCache) Exists(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, key).Result()
	return err == nil && n > 0
}

func (c *RedisCache) Close() error { return c.client.Close() }

// CacheConfig serializes and stores a ConfigDocument at its latest+versioned
// keys, mirroring CacheManager::CacheConfig. Failures are non-fatal.
func CacheConfig(ctx context.Context, c Cache, doc model.ConfigDocument, ttl time.Duration, marshal func(model.ConfigDocument) ([]byte, error)) bool {
	b, err := marshal(doc)
	if err != nil {
		return false
	}
	okLatest := c.Set(ctx, ConfigLatestKey(doc.ServiceName), b, ttl)
	okVersion := c.Set(ctx, ConfigVersionKey(doc.ServiceName, doc.Version), b, ttl)
	return okLatest && okVersion
}

// NoopCache treats every call as a pure miss; used when Redis is not
// configured. The distribution engine always falls through to the store.
type NoopCache struct{}

func (NoopCache) Set(context.Context, string, []byte, time.Duration) bool { return false }
func (NoopCache) Get(context.Context, string) ([]byte, bool)              { return nil, false }
func (NoopCache) Delete(context.Context, string) bool                    { return false }
func (NoopCache) Exists(context.Context, string) bool                    { return false }
