package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/go-github/v74/github"
	"github.com/urizennnn/swebench-contributions/cache"
	"github.com/urizennnn/swebench-contributions/metrics"
	"github.com/urizennnn/swebench-contributions/ratelimit"
	"golang.org/x/sync/singleflight"
)

type Kind string

const (
	KindIssue          Kind = "issue"
	KindComments       Kind = "comments"
	KindReviewComments Kind = "review_comments"
)

// Request identifies one remote read.
type Request struct {
	Kind   Kind
	Repo   string
	Number int
}

func (r Request) Key() string {
	return cache.Key(string(r.Kind), strings.ToLower(r.Repo), strconv.Itoa(r.Number))
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s#%d", r.Kind, r.Repo, r.Number)
}

type Response struct {
	Payload   []byte
	FromCache bool
}

// ResponseCache is the subset of *cache.Cache the fetcher needs.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, payload []byte) error
}

type Client struct {
	gh      *github.Client
	limiter *ratelimit.Limiter
	cache   ResponseCache
	backoff ratelimit.Backoff
	sleep   ratelimit.SleepFunc
	metrics *metrics.Manager
	flight  singleflight.Group

	remoteCalls atomic.Int64
}

type Option func(*Client)

// WithCache enables cache-first fetching. Without it every Fetch is remote.
func WithCache(c ResponseCache) Option {
	return func(cl *Client) { cl.cache = c }
}

func WithBackoff(b ratelimit.Backoff) Option {
	return func(cl *Client) { cl.backoff = b }
}

func WithSleep(fn ratelimit.SleepFunc) Option {
	return func(cl *Client) { cl.sleep = fn }
}

func WithMetrics(m *metrics.Manager) Option {
	return func(cl *Client) { cl.metrics = m }
}

func NewClient(gh *github.Client, limiter *ratelimit.Limiter, opts ...Option) *Client {
	c := &Client{
		gh:      gh,
		limiter: limiter,
		backoff: ratelimit.DefaultBackoff(),
		sleep:   ratelimit.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RemoteCalls counts issue and comment requests sent to GitHub by this
// client. Prime is not included.
func (c *Client) RemoteCalls() int64 { return c.remoteCalls.Load() }

// Thread is the remote evidence for one issue or pull request.
type Thread struct {
	Repo           string
	Number         int
	Title          string
	HTMLURL        string
	CreatedAt      string
	Author         string
	Assignees      []string
	CommentAuthors []string
	CommentCount   int
	IsPullRequest  bool
	FromCache      bool
}
