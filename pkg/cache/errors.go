package cache

import "errors"

// ErrCacheMiss indicates the requested key was not found in cache.
// This is not necessarily an error condition - it's expected behavior
// when a key hasn't been cached yet or has expired.
var ErrCacheMiss = errors.New("cache miss")
