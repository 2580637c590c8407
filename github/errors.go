package github

import "errors"

var (
	// ErrBadCredentials is fatal: a remote run cannot continue without a
	// usable token.
	ErrBadCredentials = errors.New("github: bad credentials")
	ErrFetchFailed    = errors.New("github: fetch failed")
	ErrNotFound       = errors.New("github: not found")
)
