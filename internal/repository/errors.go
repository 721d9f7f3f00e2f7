package repository

import "errors"

// Repository errors
var (
	// ErrStateChanged indicates a conditional update matched no row because
	// the stored state no longer satisfied the condition.
	ErrStateChanged = errors.New("state changed")
)

// Cache errors
var (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable indicates the cache is unavailable.
	ErrCacheUnavailable = errors.New("cache unavailable")
)
