package cache

import (
	"context"
	"time"
)

const day = 24 * time.Hour

type Entry struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	FetchedAt time.Time `json:"fetched_at"`
	TTLDays   int       `json:"ttl_days"`
}

// ValidAt reports whether the entry may be served at now. The effective TTL
// is the shorter of the entry's own TTL and maxDays, so lowering the
// configured expiry also retires older entries.
func (e Entry) ValidAt(now time.Time, maxDays int) bool {
	ttl := e.TTLDays
	if ttl <= 0 || (maxDays > 0 && maxDays < ttl) {
		ttl = maxDays
	}
	if ttl <= 0 {
		return false
	}
	return now.Sub(e.FetchedAt) < time.Duration(ttl)*day
}

// Store is the persistent half of the cache.
type Store interface {
	Load(ctx context.Context, key string) (Entry, bool, error)
	Save(ctx context.Context, e Entry) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Close() error
}
