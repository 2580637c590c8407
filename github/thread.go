package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v74/github"
	"github.com/sirupsen/logrus"
)

func (c *Client) Issue(ctx context.Context, repo string, number int) (*github.Issue, bool, error) {
	return fetchJSON[*github.Issue](ctx, c, Request{Kind: KindIssue, Repo: repo, Number: number})
}

func (c *Client) Comments(ctx context.Context, repo string, number int) ([]*github.IssueComment, bool, error) {
	return fetchJSON[[]*github.IssueComment](ctx, c, Request{Kind: KindComments, Repo: repo, Number: number})
}

func (c *Client) ReviewComments(ctx context.Context, repo string, number int) ([]*github.PullRequestComment, bool, error) {
	return fetchJSON[[]*github.PullRequestComment](ctx, c, Request{Kind: KindReviewComments, Repo: repo, Number: number})
}

// fetchJSON decodes a fetched payload. A cached payload that no longer
// decodes is discarded and fetched again.
func fetchJSON[T any](ctx context.Context, c *Client, req Request) (T, bool, error) {
	var out T
	resp, err := c.Fetch(ctx, req)
	if err != nil {
		return out, false, err
	}
	err = json.Unmarshal(resp.Payload, &out)
	if err == nil {
		return out, resp.FromCache, nil
	}
	if !resp.FromCache {
		return out, false, fmt.Errorf("%w: decoding %s: %v", ErrFetchFailed, req, err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "github",
		"request":   req.String(),
	}).WithError(err).Warn("discarding undecodable cache entry")
	resp, err = c.fetch(ctx, req, false)
	if err != nil {
		return out, false, err
	}
	if err := json.Unmarshal(resp.Payload, &out); err != nil {
		return out, false, fmt.Errorf("%w: decoding %s: %v", ErrFetchFailed, req, err)
	}
	return out, false, nil
}

// Thread gathers the issue, its comments and, for pull requests, its review
// comments. Only a failure to get the issue itself is returned; comment
// failures leave a partial thread.
func (c *Client) Thread(ctx context.Context, repo string, number int) (*Thread, error) {
	issue, fromCache, err := c.Issue(ctx, repo, number)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, fmt.Errorf("%w: issue %s#%d", ErrNotFound, repo, number)
	}

	t := &Thread{
		Repo:          repo,
		Number:        number,
		Title:         issue.GetTitle(),
		HTMLURL:       issue.GetHTMLURL(),
		Author:        issue.GetUser().GetLogin(),
		Assignees:     assignees(issue),
		IsPullRequest: issue.IsPullRequest(),
		FromCache:     fromCache,
	}
	if created := issue.GetCreatedAt(); !created.IsZero() {
		t.CreatedAt = created.UTC().Format(time.RFC3339)
	}

	log := logrus.WithFields(logrus.Fields{
		"component": "github",
		"repo":      repo,
		"number":    number,
	})

	if issue.GetComments() > 0 {
		comments, cached, err := c.Comments(ctx, repo, number)
		switch {
		case fatal(err):
			return nil, err
		case err != nil:
			log.WithError(err).Warn("issue comments unavailable")
			t.FromCache = false
		default:
			for _, cm := range comments {
				if cm == nil {
					continue
				}
				t.CommentCount++
				if login := cm.GetUser().GetLogin(); login != "" {
					t.CommentAuthors = append(t.CommentAuthors, login)
				}
			}
			t.FromCache = t.FromCache && cached
		}
	}

	if t.IsPullRequest {
		comments, cached, err := c.ReviewComments(ctx, repo, number)
		switch {
		case fatal(err):
			return nil, err
		case err != nil:
			log.WithError(err).Warn("review comments unavailable")
			t.FromCache = false
		default:
			for _, cm := range comments {
				if cm == nil {
					continue
				}
				t.CommentCount++
				if login := cm.GetUser().GetLogin(); login != "" {
					t.CommentAuthors = append(t.CommentAuthors, login)
				}
			}
			t.FromCache = t.FromCache && cached
		}
	}
	return t, nil
}

func assignees(issue *github.Issue) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(u *github.User) {
		login := u.GetLogin()
		if login == "" {
			return
		}
		if _, ok := seen[login]; ok {
			return
		}
		seen[login] = struct{}{}
		out = append(out, login)
	}
	add(issue.GetAssignee())
	for _, u := range issue.Assignees {
		add(u)
	}
	return out
}

// fatal reports errors that must stop the whole run.
func fatal(err error) bool {
	return errors.Is(err, ErrBadCredentials) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsFatal is fatal for callers outside the package.
func IsFatal(err error) bool { return fatal(err) }
