package cache

import (
	"time"

	"github.com/urizennnn/swebench-contributions/metrics"
)

const (
	DefaultTTLDays    = 7
	DefaultMemorySize = 1000
)

type Option func(*Cache)

func WithTTLDays(days int) Option {
	return func(c *Cache) {
		if days > 0 {
			c.ttlDays = days
		}
	}
}

func WithMemorySize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.memSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(c *Cache) { c.metrics = m }
}
