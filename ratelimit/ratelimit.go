package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Quota mirrors the remaining-call budget reported by the API.
type Quota struct {
	mu        sync.Mutex
	known     bool
	remaining int
	resetAt   time.Time
}

func (q *Quota) Update(remaining int, resetAt time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if remaining < 0 {
		remaining = 0
	}
	q.known = true
	q.remaining = remaining
	q.resetAt = resetAt
}

func (q *Quota) Snapshot() (remaining int, resetAt time.Time, known bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining, q.resetAt, q.known
}

// WaitFor returns how long a caller must wait before the next remote call.
func (q *Quota) WaitFor(now time.Time) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.known || q.remaining > 0 || !now.Before(q.resetAt) {
		return 0
	}
	return q.resetAt.Sub(now)
}

type Limiter struct {
	github *rate.Limiter
	quota  *Quota
	now    func() time.Time
	sleep  SleepFunc
	onWait func(time.Duration)
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithSleep(sleep SleepFunc) Option {
	return func(l *Limiter) { l.sleep = sleep }
}

// WithWaitHook is called with the duration of every quota wait.
func WithWaitHook(fn func(time.Duration)) Option {
	return func(l *Limiter) { l.onWait = fn }
}

// New paces GitHub calls to githubReqPerMin; zero or less disables pacing.
func New(githubReqPerMin int, opts ...Option) *Limiter {
	lim := rate.NewLimiter(rate.Inf, 1)
	if githubReqPerMin > 0 {
		lim = rate.NewLimiter(rate.Limit(float64(githubReqPerMin)/60.0), 1)
	}
	l := &Limiter{
		github: lim,
		quota:  &Quota{},
		now:    time.Now,
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Quota() *Quota { return l.quota }

// Observe records rate metadata from a remote response.
func (l *Limiter) Observe(remaining int, resetAt time.Time) {
	l.quota.Update(remaining, resetAt)
}

// WaitGithub blocks until the quota has reset (if exhausted) and the pacing
// limiter admits one more call.
func (l *Limiter) WaitGithub(ctx context.Context) error {
	if d := l.quota.WaitFor(l.now()); d > 0 {
		_, resetAt, _ := l.quota.Snapshot()
		logrus.WithFields(logrus.Fields{
			"component": "ratelimit",
			"wait":      d.Round(time.Second).String(),
			"reset_at":  resetAt.Format(time.RFC3339),
		}).Info("GitHub quota exhausted, waiting for reset")
		if err := l.sleep(ctx, d); err != nil {
			return err
		}
		if l.onWait != nil {
			l.onWait(d)
		}
	}
	return l.github.Wait(ctx)
}
