package doccache

import "errors"

// Common errors returned by the cache.
var (
	// ErrNoEntry indicates a fetch settled successfully but produced no
	// cache entry. This is an internal invariant violation (a programming
	// defect), not a condition callers should recover from.
	ErrNoEntry = errors.New("doccache: fetch settled without an entry")
)
