package doccache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reportflow/report-client/pkg/handle"
)

// Stats is an observational snapshot of the store.
type Stats struct {
	Count   int      `json:"count"`
	MaxSize int      `json:"max_size"`
	Keys    []string `json:"keys"`
}

// store holds committed cache entries and owns their lifecycle: lazy expiry
// on read, a best-effort sweep plus FIFO capacity eviction on insert, and
// synchronous handle release whenever an entry leaves the map.
//
// The mutex is shared with the request coordinator so that the sequence
// "check store, check in-flight, register in-flight" is atomic as a whole.
// Exported methods lock; *Locked methods expect the caller to hold mu.
type store struct {
	mu      *sync.Mutex
	entries map[Key]*Entry
	maxAge  time.Duration
	maxSize int
	handles handle.Factory
	logger  zerolog.Logger

	// now is swappable for freshness tests.
	now func() time.Time

	// seq numbers insertions; see Entry.seq.
	seq uint64
}

func newStore(mu *sync.Mutex, maxAge time.Duration, maxSize int, handles handle.Factory, logger zerolog.Logger) *store {
	return &store{
		mu:      mu,
		entries: make(map[Key]*Entry),
		maxAge:  maxAge,
		maxSize: maxSize,
		handles: handles,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the live entry for key. An absent entry is a miss; an expired
// entry is a miss and is purged (handle released) as a side effect.
func (s *store) Get(key Key) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.getLocked(key)
	if ok {
		cacheHits.Inc()
	} else {
		cacheMisses.Inc()
	}
	return e, ok
}

// getLocked looks up a live entry, purging it if expired. Hit/miss counting
// is left to callers: the coordinator counts one miss per fetch, not one
// per deduplicated waiter.
func (s *store) getLocked(key Key) (*Entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	if e.Expired(s.now(), s.maxAge) {
		s.dropLocked(key, e, "age")
		return nil, false
	}

	return e, true
}

// Put wraps data into a fresh handle and commits it under key, then enforces
// the age and capacity bounds.
func (s *store) Put(key Key, data []byte) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putLocked(key, data)
}

func (s *store) putLocked(key Key, data []byte) (*Entry, error) {
	h, err := s.handles.Wrap(data)
	if err != nil {
		return nil, fmt.Errorf("wrap handle: %w", err)
	}

	// Exclusive handle ownership: a replaced entry releases its handle
	// before the new one becomes visible.
	if old, ok := s.entries[key]; ok {
		s.dropLocked(key, old, "replace")
	}

	s.seq++
	e := &Entry{Data: data, Handle: h, CreatedAt: s.now(), seq: s.seq}
	s.entries[key] = e
	cacheBytes.Add(float64(len(data)))

	s.sweepLocked()
	s.evictLocked()

	s.logger.Debug().
		Str("key", string(key)).
		Int("bytes", len(data)).
		Int("count", len(s.entries)).
		Msg("document cached")

	return e, nil
}

// sweepLocked removes every entry older than maxAge.
func (s *store) sweepLocked() {
	now := s.now()
	for key, e := range s.entries {
		if e.Expired(now, s.maxAge) {
			s.dropLocked(key, e, "age")
		}
	}
}

// evictLocked removes entries oldest-insertion-first until the capacity
// bound holds. This is insertion-order (FIFO) eviction, not access-order
// LRU: reads never reorder entries, so a frequently read early insert is
// evicted before a rarely read late one. Ordering is by insertion sequence
// rather than CreatedAt, so entries inserted within one clock reading still
// evict in insertion order and a just-inserted entry can never be the
// victim of its own put.
func (s *store) evictLocked() {
	for len(s.entries) > s.maxSize {
		var (
			oldestKey   Key
			oldestEntry *Entry
		)
		for key, e := range s.entries {
			if oldestEntry == nil || e.seq < oldestEntry.seq {
				oldestKey, oldestEntry = key, e
			}
		}
		s.dropLocked(oldestKey, oldestEntry, "capacity")
	}
}

// dropLocked removes the entry and releases its handle synchronously, inside
// the critical section. A release failure is diagnosable but never blocks
// the removal itself.
func (s *store) dropLocked(key Key, e *Entry, reason string) {
	delete(s.entries, key)
	cacheBytes.Sub(float64(len(e.Data)))
	cacheEvictions.WithLabelValues(reason).Inc()

	if err := e.Handle.Release(); err != nil {
		releaseErrors.Inc()
		s.logger.Warn().
			Err(err).
			Str("key", string(key)).
			Str("reason", reason).
			Msg("handle release failed")
	}
}

// Remove deletes the entry for key, releasing its handle.
func (s *store) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.dropLocked(key, e, "remove")
	}
}

// Clear removes every entry. Each handle is released even if earlier
// releases failed.
func (s *store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		s.dropLocked(key, e, "clear")
	}
}

// Stats returns a snapshot after an expiry sweep, so stale entries are never
// counted.
func (s *store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)

	return Stats{
		Count:   len(s.entries),
		MaxSize: s.maxSize,
		Keys:    keys,
	}
}
