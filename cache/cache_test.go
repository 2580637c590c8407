package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, dir string, opts ...Option) *Cache {
	t.Helper()
	store, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	c, err := New(store, opts...)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty cache", t, func() {
		clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
		c := newTestCache(t, t.TempDir(), WithClock(clock.Now), WithTTLDays(7))

		Convey("Get on a missing key is a miss", func() {
			_, ok := c.Get(ctx, "nope")
			So(ok, ShouldBeFalse)
			So(c.Stats(ctx).Misses, ShouldEqual, 1)
		})

		Convey("Put followed by Get returns the payload", func() {
			So(c.Put(ctx, "k", []byte(`{"a":1}`)), ShouldBeNil)
			got, ok := c.Get(ctx, "k")
			So(ok, ShouldBeTrue)
			So(string(got), ShouldEqual, `{"a":1}`)

			s := c.Stats(ctx)
			So(s.Hits, ShouldEqual, 1)
			So(s.Entries, ShouldEqual, 1)
		})

		Convey("Put overwrites an existing entry", func() {
			So(c.Put(ctx, "k", []byte("old")), ShouldBeNil)
			So(c.Put(ctx, "k", []byte("new")), ShouldBeNil)
			got, ok := c.Get(ctx, "k")
			So(ok, ShouldBeTrue)
			So(string(got), ShouldEqual, "new")
			So(c.Stats(ctx).Entries, ShouldEqual, 1)
		})

		Convey("An entry older than its TTL is a miss but is kept", func() {
			So(c.Put(ctx, "k", []byte("v")), ShouldBeNil)
			clock.Advance(7*day + time.Second)
			_, ok := c.Get(ctx, "k")
			So(ok, ShouldBeFalse)
			So(c.Stats(ctx).Entries, ShouldEqual, 1)
		})

		Convey("Clear removes every entry and is safe to repeat", func() {
			for _, k := range []string{"a", "b", "c"} {
				So(c.Put(ctx, k, []byte(k)), ShouldBeNil)
			}
			So(c.Clear(ctx), ShouldBeNil)
			So(c.Clear(ctx), ShouldBeNil)
			for _, k := range []string{"a", "b", "c"} {
				_, ok := c.Get(ctx, k)
				So(ok, ShouldBeFalse)
			}
			So(c.Stats(ctx).Entries, ShouldEqual, 0)
		})
	})

	Convey("Given a cache directory reused across processes", t, func() {
		dir := t.TempDir()
		first := newTestCache(t, dir)
		So(first.Put(ctx, Key("issue", "octo/repo", "7"), []byte("payload")), ShouldBeNil)
		So(first.Close(), ShouldBeNil)

		second := newTestCache(t, dir)
		got, ok := second.Get(ctx, Key("issue", "octo/repo", "7"))

		Convey("The entry survives and counters start from zero", func() {
			So(ok, ShouldBeTrue)
			So(string(got), ShouldEqual, "payload")
			So(second.Stats(ctx).Hits, ShouldEqual, 1)
			So(second.Stats(ctx).Misses, ShouldEqual, 0)
		})
	})

	Convey("Given a corrupt store file", t, func() {
		dir := t.TempDir()
		garbage := make([]byte, 4096)
		for i := range garbage {
			garbage[i] = 'x'
		}
		So(os.WriteFile(filepath.Join(dir, DBFile), garbage, 0o644), ShouldBeNil)

		store, err := OpenSQLite(dir)

		Convey("It degrades to an empty cache and keeps the bad file aside", func() {
			So(err, ShouldBeNil)
			defer store.Close()
			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)

			matches, _ := filepath.Glob(filepath.Join(dir, DBFile+".corrupt-*"))
			So(len(matches), ShouldEqual, 1)
		})
	})
}

func TestKeyIsDeterministic(t *testing.T) {
	if Key("issue", "a/b", "1") != Key("issue", "a/b", "1") {
		t.Fatal("same parts produced different keys")
	}
	if Key("issue", "a/b", "1") == Key("comments", "a/b", "1") {
		t.Fatal("kind not part of the key")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Fatal("part boundaries not part of the key")
	}
}

func TestExpiryBoundaryProperty(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, t.TempDir())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("entry is served just before ttl and not just after", prop.ForAll(
		func(ttl int, epsMinutes int) bool {
			eps := time.Duration(epsMinutes) * time.Minute
			now := base
			cc, err := New(c.store, WithTTLDays(ttl), WithClock(func() time.Time { return now }))
			if err != nil {
				return false
			}
			key := Key("prop", "r", time.Duration(ttl).String(), eps.String())
			if err := cc.Put(ctx, key, []byte("v")); err != nil {
				return false
			}
			cc.lru.Purge()

			now = base.Add(time.Duration(ttl)*day - eps)
			_, before := cc.Get(ctx, key)
			now = base.Add(time.Duration(ttl)*day + eps)
			_, after := cc.Get(ctx, key)
			return before && !after
		},
		gen.IntRange(1, 60),
		gen.IntRange(1, 23*60),
	))

	properties.TestingRun(t)
}

func TestEntryValidAtUsesShorterTTL(t *testing.T) {
	fetched := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Entry{FetchedAt: fetched, TTLDays: 7}

	if !e.ValidAt(fetched.Add(2*day), 7) {
		t.Error("expected entry valid after 2 days with 7-day ttl")
	}
	if e.ValidAt(fetched.Add(2*day), 1) {
		t.Error("expected configured 1-day ttl to expire a 7-day entry")
	}
	if e.ValidAt(fetched.Add(7*day), 30) {
		t.Error("expected entry's own ttl to bound a longer configured ttl")
	}
}
