package config

import "errors"

var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("missing GitHub credentials")
)
