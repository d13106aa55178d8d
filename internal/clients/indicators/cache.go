package indicators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/tradesignal/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache stores encoded snapshots. Misses and backend failures both report false.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// MemoryCache is an in-process Cache with per-entry expiry.
type MemoryCache struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

type entry struct {
	b   []byte
	exp time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]entry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && c.now().After(e.exp) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = c.now().Add(ttl)
	}
	c.m[key] = e
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisCache connects to addr. The connection is established lazily by go-redis.
func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		timeout: 500 * time.Millisecond,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	v, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (r *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	_ = r.client.Set(ctx, key, val, ttl).Err()
}

// Ping checks the Redis connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// NewCache returns a Redis cache when addr is set and an in-process cache otherwise.
func NewCache(addr string) Cache {
	if addr != "" {
		return NewRedisCache(addr)
	}
	return NewMemoryCache()
}

type cachedSnapshot struct {
	Symbol    string             `msgpack:"symbol"`
	Timestamp time.Time          `msgpack:"timestamp"`
	Values    map[string]float64 `msgpack:"values"`
}

func encodeSnapshot(s domain.IndicatorSnapshot) ([]byte, error) {
	b, err := msgpack.Marshal(cachedSnapshot{
		Symbol:    s.Symbol(),
		Timestamp: s.Timestamp(),
		Values:    s.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot for %s: %w", s.Symbol(), err)
	}
	return b, nil
}

func decodeSnapshot(b []byte) (domain.IndicatorSnapshot, error) {
	var c cachedSnapshot
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return domain.IndicatorSnapshot{}, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	return domain.NewIndicatorSnapshot(c.Symbol, c.Timestamp, c.Values), nil
}
