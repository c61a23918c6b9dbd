package doccache

import (
	"time"

	"github.com/reportflow/report-client/pkg/handle"
)

// Entry is one cached document: the raw payload, the handle derived from it,
// and the insertion timestamp. The entry exclusively owns its handle; the
// store releases it exactly once, when the entry leaves the map.
type Entry struct {
	// Data is the raw document payload.
	Data []byte

	// Handle is the consumer-facing reference derived from Data.
	Handle handle.Handle

	// CreatedAt is set once at insertion and never updated on reads.
	CreatedAt time.Time

	// seq is the store's monotonic insertion counter. Capacity eviction
	// orders by seq, not CreatedAt: two entries can share a clock reading,
	// and a tie must never evict the newer insertion.
	seq uint64
}

// Age returns how long the entry has been cached as of now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Expired reports whether the entry has exceeded maxAge as of now.
func (e *Entry) Expired(now time.Time, maxAge time.Duration) bool {
	return e.Age(now) > maxAge
}
