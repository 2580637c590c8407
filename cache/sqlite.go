package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DBFile is the store's file name inside the cache directory.
const DBFile = "responses.db"

type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens the store in dir. A file that exists but cannot be used
// is moved aside and replaced by an empty store; only a failure to create
// that replacement is returned.
func OpenSQLite(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating cache dir: %v", ErrStoreUnavailable, err)
	}
	path := filepath.Join(dir, DBFile)

	s, err := openSQLite(path)
	if err == nil {
		return s, nil
	}
	if !fileExists(path) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	if rerr := os.Rename(path, aside); rerr != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errors.Join(err, rerr))
	}
	logrus.WithFields(logrus.Fields{
		"component": "cache",
		"path":      path,
		"moved_to":  aside,
	}).WithError(err).Warn("cache store unreadable, starting with an empty cache")

	s, err = openSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s, nil
}

func openSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	var check string
	if err := s.db.QueryRow(`PRAGMA quick_check`).Scan(&check); err != nil {
		return fmt.Errorf("checking %s: %w", s.path, err)
	}
	if check != "ok" {
		return fmt.Errorf("checking %s: %s", s.path, check)
	}
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			key        TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			fetched_at INTEGER NOT NULL,
			ttl_days   INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	e := Entry{Key: key}
	var fetched int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at, ttl_days FROM entries WHERE key = ?`, key,
	).Scan(&e.Payload, &fetched, &e.TTLDays)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("loading %s: %w", key, err)
	}
	e.FetchedAt = time.Unix(0, fetched)
	return e, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (key, payload, fetched_at, ttl_days)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			ttl_days = excluded.ttl_days
	`, e.Key, e.Payload, e.FetchedAt.UnixNano(), e.TTLDays)
	if err != nil {
		return fmt.Errorf("saving %s: %w", e.Key, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Size returns the on-disk size of the database file.
func (s *SQLiteStore) Size() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
