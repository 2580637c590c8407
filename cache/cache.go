package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"github.com/urizennnn/swebench-contributions/metrics"
)

// Cache serves remote responses from an in-process LRU backed by a
// persistent Store. Entries past their TTL are misses but stay in place
// until overwritten.
type Cache struct {
	lru     *lru.Cache[string, *Entry]
	store   Store
	ttlDays int
	memSize int
	now     func() time.Time
	metrics *metrics.Manager

	hits   atomic.Int64
	misses atomic.Int64
}

type Stats struct {
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Entries int `json:"entries"`
}

func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

func New(store Store, opts ...Option) (*Cache, error) {
	c := &Cache{
		store:   store,
		ttlDays: DefaultTTLDays,
		memSize: DefaultMemorySize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	l, err := lru.New[string, *Entry](c.memSize)
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	now := c.now()
	if e, ok := c.lru.Get(key); ok && e.ValidAt(now, c.ttlDays) {
		c.hit()
		return e.Payload, true
	}

	e, ok, err := c.store.Load(ctx, key)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "cache",
			"key":       key,
		}).WithError(err).Warn("cache read failed, treating as miss")
		c.miss()
		return nil, false
	}
	if !ok || !e.ValidAt(now, c.ttlDays) {
		c.miss()
		return nil, false
	}
	c.lru.Add(key, &e)
	c.hit()
	return e.Payload, true
}

func (c *Cache) Put(ctx context.Context, key string, payload []byte) error {
	e := &Entry{
		Key:       key,
		Payload:   payload,
		FetchedAt: c.now(),
		TTLDays:   c.ttlDays,
	}
	c.lru.Add(key, e)
	if err := c.store.Save(ctx, *e); err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	c.metrics.CacheWrite()
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	c.lru.Purge()
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

func (c *Cache) Stats(ctx context.Context) Stats {
	s := Stats{
		Hits:   int(c.hits.Load()),
		Misses: int(c.misses.Load()),
	}
	n, err := c.store.Count(ctx)
	if err != nil {
		logrus.WithField("component", "cache").WithError(err).Warn("counting cache entries failed")
		n = c.lru.Len()
	}
	s.Entries = n
	return s
}

func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) hit() {
	c.hits.Add(1)
	c.metrics.CacheHit()
}

func (c *Cache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMiss()
}
