// Package cache holds short-lived copies of backend reads. Entries live in
// namespaces; invalidating a namespace bumps its generation so every key
// written before the bump is ignored from then on.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/pkg/redis"
)

// KV is the storage a Cache writes through.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

type Cache struct {
	kv     KV
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

type Option func(*Cache)

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

func WithPrefix(p string) Option { return func(c *Cache) { c.prefix = p } }

func New(kv KV, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{kv: kv, prefix: "newsroom:cache:", ttl: ttl, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) generation(ctx context.Context, ns string) (string, error) {
	v, ok, err := c.kv.Get(ctx, c.prefix+ns+":gen")
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return "0", nil
	}
	return v, nil
}

func (c *Cache) entryKey(ns, gen, key string) string {
	return c.prefix + ns + ":" + gen + ":" + key
}

// Invalidate drops every entry of namespace ns.
func (c *Cache) Invalidate(ctx context.Context, ns string) error {
	if _, err := c.kv.Incr(ctx, c.prefix+ns+":gen"); err != nil {
		return fmt.Errorf("invalidate %s: %w", ns, err)
	}
	return nil
}

// GetOrFetch returns the cached value for key in ns, calling fetch and
// storing its result on a miss. Cache failures are logged and fall through
// to fetch; fetch errors are returned and never cached.
func GetOrFetch[T any](ctx context.Context, c *Cache, ns, key string, fetch func(context.Context) (T, error)) (T, error) {
	gen, err := c.generation(ctx, ns)
	if err != nil {
		c.log.Warn("cache generation read failed", zap.String("namespace", ns), zap.Error(err))
		return fetch(ctx)
	}
	k := c.entryKey(ns, gen, key)

	if raw, ok, err := c.kv.Get(ctx, k); err != nil {
		c.log.Warn("cache read failed", zap.String("key", k), zap.Error(err))
	} else if ok {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v, nil
		}
		c.log.Warn("cache entry undecodable", zap.String("key", k))
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("cache encode failed", zap.String("key", k), zap.Error(err))
		return v, nil
	}
	if err := c.kv.Set(ctx, k, string(raw), c.ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("key", k), zap.Error(err))
	}
	return v, nil
}

// MemoryKV is an in-process KV with per-key expiry.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   string
	expires time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryKV) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if e, ok := m.entries[key]; ok {
		v, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value of %s is not an integer", key)
		}
		n = v
	}
	n++
	m.entries[key] = memoryEntry{value: strconv.FormatInt(n, 10)}
	return n, nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryKV) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// RedisKV adapts the redis client to KV.
type RedisKV struct {
	rc *redis.Client
}

func NewRedisKV(rc *redis.Client) *RedisKV { return &RedisKV{rc: rc} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	return r.rc.Lookup(ctx, key)
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rc.Set(ctx, key, value, ttl)
}

func (r *RedisKV) Incr(ctx context.Context, key string) (int64, error) {
	return r.rc.Incr(ctx, key)
}
