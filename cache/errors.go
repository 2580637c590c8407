package cache

import "errors"

// ErrStoreUnavailable means the persistent store could neither be read nor
// recreated. It is the only fatal cache error.
var ErrStoreUnavailable = errors.New("cache store unavailable")
