package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"
)

const perPage = 100

type failure int

const (
	transient failure = iota
	rateLimited
	notFound
	unauthorized
	permanent
	canceled
)

// Fetch serves req from the cache when possible, otherwise from GitHub with
// quota waits and bounded retries. Successful remote responses are cached.
func (c *Client) Fetch(ctx context.Context, req Request) (Response, error) {
	return c.fetch(ctx, req, true)
}

func (c *Client) fetch(ctx context.Context, req Request, readCache bool) (Response, error) {
	key := req.Key()
	if readCache && c.cache != nil {
		if payload, ok := c.cache.Get(ctx, key); ok {
			return Response{Payload: payload, FromCache: true}, nil
		}
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		return c.fetchRemote(ctx, req)
	})
	if err != nil {
		return Response{}, err
	}
	payload := v.([]byte)

	if c.cache != nil {
		if err := c.cache.Put(ctx, key, payload); err != nil {
			logrus.WithFields(logrus.Fields{
				"component": "github",
				"request":   req.String(),
			}).WithError(err).Warn("caching response failed")
		}
	}
	return Response{Payload: payload}, nil
}

func (c *Client) fetchRemote(ctx context.Context, req Request) ([]byte, error) {
	owner, repo, ok := strings.Cut(req.Repo, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("%w: %s: repo must be owner/name", ErrFetchFailed, req)
	}
	// Quota waits belong to the limiter, not go-github's pre-emptive check.
	ctx = context.WithValue(ctx, github.BypassRateLimitCheck, true)

	log := logrus.WithFields(logrus.Fields{
		"component": "github",
		"request":   req.String(),
	})
	attempts := c.backoff.MaxAttempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		payload, err := c.call(ctx, req, owner, repo)
		if err == nil {
			c.metrics.RemoteRequest(string(req.Kind), "ok")
			return payload, nil
		}
		lastErr = err

		kind := classifyError(ctx, err)
		switch kind {
		case canceled:
			return nil, err
		case unauthorized:
			c.metrics.RemoteRequest(string(req.Kind), "unauthorized")
			return nil, fmt.Errorf("%w: %v", ErrBadCredentials, err)
		case notFound:
			c.metrics.RemoteRequest(string(req.Kind), "not_found")
			return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, req, err)
		case permanent:
			c.metrics.RemoteRequest(string(req.Kind), "error")
			c.metrics.FetchFailed(string(req.Kind))
			return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, req, err)
		}
		c.metrics.RemoteRequest(string(req.Kind), "retryable")
		if attempt == attempts {
			break
		}

		// A primary rate limit is waited out by the limiter on the next
		// attempt; everything else backs off.
		delay := c.backoff.Delay(attempt)
		if kind == rateLimited {
			delay = 0
		}
		var abuse *github.AbuseRateLimitError
		if errors.As(err, &abuse) && abuse.RetryAfter != nil && *abuse.RetryAfter > delay {
			delay = *abuse.RetryAfter
		}
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
		}).WithError(err).Warn("transient GitHub failure, retrying")
		c.metrics.Retry()
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.metrics.FetchFailed(string(req.Kind))
	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrFetchFailed, req, attempts, lastErr)
}

func (c *Client) call(ctx context.Context, req Request, owner, repo string) ([]byte, error) {
	switch req.Kind {
	case KindIssue:
		if err := c.limiter.WaitGithub(ctx); err != nil {
			return nil, err
		}
		c.remoteCalls.Add(1)
		issue, resp, err := c.gh.Issues.Get(ctx, owner, repo, req.Number)
		c.observe(resp, err)
		if err != nil {
			return nil, err
		}
		return json.Marshal(issue)

	case KindComments:
		all, err := paginate(ctx, c, func(opts github.ListOptions) ([]*github.IssueComment, *github.Response, error) {
			return c.gh.Issues.ListComments(ctx, owner, repo, req.Number, &github.IssueListCommentsOptions{ListOptions: opts})
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(all)

	case KindReviewComments:
		all, err := paginate(ctx, c, func(opts github.ListOptions) ([]*github.PullRequestComment, *github.Response, error) {
			return c.gh.PullRequests.ListComments(ctx, owner, repo, req.Number, &github.PullRequestListCommentsOptions{ListOptions: opts})
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(all)
	}
	return nil, fmt.Errorf("unknown request kind %q", req.Kind)
}

func paginate[T any](ctx context.Context, c *Client, list func(github.ListOptions) ([]T, *github.Response, error)) ([]T, error) {
	all := make([]T, 0)
	opts := github.ListOptions{PerPage: perPage}
	for {
		if err := c.limiter.WaitGithub(ctx); err != nil {
			return nil, err
		}
		c.remoteCalls.Add(1)
		page, resp, err := list(opts)
		c.observe(resp, err)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// observe feeds rate metadata from a response, or from a rate-limit error,
// into the quota.
func (c *Client) observe(resp *github.Response, err error) {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		c.limiter.Observe(rle.Rate.Remaining, rle.Rate.Reset.Time)
		c.metrics.QuotaRemaining(rle.Rate.Remaining)
		return
	}
	if resp == nil || resp.Response == nil || resp.Header.Get("X-RateLimit-Remaining") == "" {
		return
	}
	c.limiter.Observe(resp.Rate.Remaining, resp.Rate.Reset.Time)
	c.metrics.QuotaRemaining(resp.Rate.Remaining)
}

func classifyError(ctx context.Context, err error) failure {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return canceled
	}
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return rateLimited
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return transient
	}
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		switch code := er.Response.StatusCode; {
		case code == http.StatusUnauthorized:
			return unauthorized
		case code == http.StatusForbidden && strings.Contains(strings.ToLower(er.Message), "bad credentials"):
			return unauthorized
		case code == http.StatusNotFound || code == http.StatusGone:
			return notFound
		case code == http.StatusTooManyRequests || code >= 500:
			return transient
		default:
			return permanent
		}
	}
	return transient
}

// Prime seeds the quota from /rate_limit and checks the credentials. The
// /rate_limit endpoint does not consume quota and is not counted in
// RemoteCalls.
func (c *Client) Prime(ctx context.Context) error {
	limits, resp, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		if classifyError(ctx, err) == unauthorized {
			return fmt.Errorf("%w: %v", ErrBadCredentials, err)
		}
		logrus.WithField("component", "github").WithError(err).Warn("reading rate limit failed")
		return nil
	}
	if limits != nil && limits.Core != nil {
		c.limiter.Observe(limits.Core.Remaining, limits.Core.Reset.Time)
		c.metrics.QuotaRemaining(limits.Core.Remaining)
	} else {
		c.observe(resp, nil)
	}
	return nil
}
