// Package handle provides consumer-facing references to cached document
// bytes. A handle stands in for the raw payload (a locally addressable,
// revocable reference) and must be released exactly once to free the
// underlying resource.
package handle

import "errors"

// ErrReleased is returned when a handle is used or released after release.
var ErrReleased = errors.New("handle: already released")

// Handle is a revocable reference to a cached document.
type Handle interface {
	// URI returns a process-local address for the document, usable by
	// display layers (mem:// for in-memory handles, file:// for
	// file-backed ones). Returns "" after release.
	URI() string

	// Bytes returns the document payload, or nil after release.
	Bytes() []byte

	// Release revokes the handle and frees its underlying resource.
	// Calling Release more than once returns ErrReleased.
	Release() error
}

// Factory converts raw document bytes into a consumable handle.
type Factory interface {
	Wrap(data []byte) (Handle, error)
}
