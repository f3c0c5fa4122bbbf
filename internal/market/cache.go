package market

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lexmanthefirst/marketmind/internal/metrics"
)

const keyPrefix = "marketmind:cache:"

// Standard TTLs for the data classes this service caches.
const (
	PriceTTL    = 60 * time.Second
	NewsTTL     = 5 * time.Minute
	ChartTTL    = 5 * time.Minute
	CoinListTTL = time.Hour
)

// Cache is a read-through cache backed by Redis with a bounded
// in-memory fallback. A Redis outage degrades to the memory tier and
// then to direct fetch; it never fails a request.
type Cache struct {
	redis *redis.Client
	mem   *memCache
}

// NewCache creates a cache. client may be nil, leaving only the
// memory tier.
func NewCache(client *redis.Client) *Cache {
	return &Cache{
		redis: client,
		mem:   newMemCache(512),
	}
}

// Get unmarshals the cached value for key into dest and reports
// whether a live entry was found.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	full := keyPrefix + key

	if c.redis != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		cached, err := c.redis.Get(cacheCtx, full).Result()
		cancel()
		switch {
		case err == nil:
			if err := json.Unmarshal([]byte(cached), dest); err == nil {
				metrics.CacheHits.Inc()
				return true
			}
			log.Warn().Str("key", full).Msg("Failed to unmarshal cached value")
		case err != redis.Nil:
			log.Debug().Err(err).Str("key", full).Msg("Redis get error - trying memory tier")
		}
	}

	if data, ok := c.mem.get(full); ok {
		if err := json.Unmarshal(data, dest); err == nil {
			metrics.CacheHits.Inc()
			return true
		}
	}
	metrics.CacheMisses.Inc()
	return false
}

// Set stores value under key with the given TTL. The memory tier is
// written synchronously; the Redis write happens off the critical path.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to marshal value for cache")
		return
	}
	full := keyPrefix + key
	c.mem.set(full, data, ttl)

	if c.redis == nil {
		return
	}
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.redis.Set(cacheCtx, full, data, ttl).Err(); err != nil {
			log.Debug().Err(err).Str("key", full).Msg("Failed to write cache entry to redis")
		}
	}()
}

// Health pings the Redis tier.
func (c *Cache) Health(ctx context.Context) error {
	if c == nil || c.redis == nil {
		return nil
	}
	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.redis.Ping(cacheCtx).Err()
}

// memCache is a small TTL map with a hard entry bound. When full, the
// next write evicts every expired entry; if nothing expired, the write
// is dropped rather than growing without bound.
type memCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
	max     int
}

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

func newMemCache(max int) *memCache {
	return &memCache{
		entries: make(map[string]memEntry),
		max:     max,
	}
}

func (m *memCache) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.data, true
}

func (m *memCache) set(key string, data []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.max {
		now := time.Now()
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
		if len(m.entries) >= m.max {
			return
		}
	}
	m.entries[key] = memEntry{data: data, expiresAt: time.Now().Add(ttl)}
}
