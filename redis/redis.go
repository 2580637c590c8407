package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urizennnn/swebench-contributions/cache"
)

const (
	DefaultPrefix = "swebench:cache:"
	scanBatch     = 200
)

func ConnectToRedisURL(url string, timeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return connect(opts, timeout)
}

func connect(opts *redis.Options, timeout time.Duration) (*redis.Client, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Store keeps cache entries as JSON values under a key prefix. Keys carry no
// Redis expiry; an expired entry stays until it is overwritten or cleared.
type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ cache.Store = (*Store)(nil)

func NewStore(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) Load(ctx context.Context, key string) (cache.Entry, bool, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return cache.Entry{}, false, nil
	case err != nil:
		return cache.Entry{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var e cache.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return cache.Entry{}, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return e, true, nil
}

func (s *Store) Save(ctx context.Context, e cache.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", e.Key, err)
	}
	if err := s.rdb.Set(ctx, s.prefix+e.Key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", e.Key, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.scan(ctx, func(keys []string) error {
		return s.rdb.Del(ctx, keys...).Err()
	})
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.scan(ctx, func(keys []string) error {
		n += len(keys)
		return nil
	})
	return n, err
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s*: %w", s.prefix, err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
