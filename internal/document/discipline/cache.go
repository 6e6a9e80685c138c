package discipline

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odfmonitor/odf-monitor/pkg/logger"
)

// DefaultTTL is how long a computed discipline list is served from cache.
const DefaultTTL = time.Hour

// Clock abstracts time for cache expiry.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Cache holds the last computed discipline list.
type Cache interface {
	Get(ctx context.Context) ([]string, bool)
	Set(ctx context.Context, codes []string)
}

type entry struct {
	codes     []string
	expiresAt time.Time
}

// MemoryCache is a process-local cache. The list and its expiry are swapped
// together so readers never see one without the other.
type MemoryCache struct {
	ttl   time.Duration
	clock Clock
	cur   atomic.Pointer[entry]
}

func NewMemoryCache(ttl time.Duration, clock Clock) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryCache{ttl: ttl, clock: clock}
}

func (c *MemoryCache) Get(_ context.Context) ([]string, bool) {
	e := c.cur.Load()
	if e == nil || !c.clock.Now().Before(e.expiresAt) {
		return nil, false
	}
	return append([]string(nil), e.codes...), true
}

func (c *MemoryCache) Set(_ context.Context, codes []string) {
	c.cur.Store(&entry{
		codes:     append([]string(nil), codes...),
		expiresAt: c.clock.Now().Add(c.ttl),
	})
}

// Invalidate drops the cached list.
func (c *MemoryCache) Invalidate() {
	c.cur.Store(nil)
}

// RedisCache shares the list between replicas. It is stored as JSON under a
// single key with a Redis TTL.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache. Key may be empty.
func NewRedisCache(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = "odf:disciplines"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, key: key, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) ([]string, bool) {
	b, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("discipline cache: redis get failed: %v", err)
		}
		return nil, false
	}
	var codes []string
	if err := json.Unmarshal(b, &codes); err != nil {
		logger.Warnf("discipline cache: corrupt entry under %s: %v", c.key, err)
		return nil, false
	}
	return codes, true
}

func (c *RedisCache) Set(ctx context.Context, codes []string) {
	if codes == nil {
		codes = []string{}
	}
	b, err := json.Marshal(codes)
	if err != nil {
		logger.Warnf("discipline cache: encode failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, c.key, b, c.ttl).Err(); err != nil {
		logger.Warnf("discipline cache: redis set failed: %v", err)
	}
}
