package doccache

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// FetchFunc performs the physical transfer for one key.
type FetchFunc func(ctx context.Context) ([]byte, error)

// call is one shared in-flight fetch. All callers who join before it
// settles observe the same entry or the same error.
type call struct {
	done  chan struct{}
	entry *Entry
	err   error
}

// coordinator deduplicates concurrent fetches per key. It shares the store's
// mutex: the check-store / check-in-flight / register sequence happens under
// one lock, which is what makes at-most-one-fetch-per-key hold.
type coordinator struct {
	mu       *sync.Mutex
	store    *store
	inflight map[Key]*call
	logger   zerolog.Logger
}

func newCoordinator(mu *sync.Mutex, st *store, logger zerolog.Logger) *coordinator {
	return &coordinator{
		mu:       mu,
		store:    st,
		inflight: make(map[Key]*call),
		logger:   logger,
	}
}

// Join resolves key to a cache entry: from the store if a live entry exists,
// from the pending fetch if one is underway, otherwise by starting the fetch.
//
// The fetch runs on a context detached from the first caller, because later
// joiners depend on it: one caller giving up never aborts the shared fetch.
// A waiter whose own context ends stops waiting with ctx.Err(); the fetch
// and the remaining waiters are unaffected.
func (c *coordinator) Join(ctx context.Context, key Key, fetch FetchFunc) (*Entry, error) {
	c.mu.Lock()

	if e, ok := c.store.getLocked(key); ok {
		cacheHits.Inc()
		c.mu.Unlock()
		return e, nil
	}

	// A joiner of a pending fetch is not a second miss: the miss is
	// counted once, when the fetch is registered.
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		dedupJoins.Inc()
		return c.wait(ctx, cl)
	}

	cacheMisses.Inc()
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	inflightFetches.Inc()
	c.mu.Unlock()

	c.logger.Debug().Str("key", string(key)).Msg("starting fetch")
	go c.run(context.WithoutCancel(ctx), key, cl, fetch)

	return c.wait(ctx, cl)
}

// run performs the fetch and settles the call. Commit, in-flight removal and
// waiter wakeup happen in one critical section, so a retry triggered from a
// failure handler can never observe the settled call as still pending.
func (c *coordinator) run(ctx context.Context, key Key, cl *call, fetch FetchFunc) {
	data, err := fetch(ctx)

	c.mu.Lock()
	if err != nil {
		cl.err = err
		c.logger.Debug().Err(err).Str("key", string(key)).Msg("fetch failed")
	} else {
		cl.entry, cl.err = c.store.putLocked(key, data)
	}

	delete(c.inflight, key)
	inflightFetches.Dec()
	close(cl.done)
	c.mu.Unlock()
}

func (c *coordinator) wait(ctx context.Context, cl *call) (*Entry, error) {
	select {
	case <-cl.done:
		if cl.err != nil {
			return nil, cl.err
		}
		if cl.entry == nil {
			return nil, ErrNoEntry
		}
		return cl.entry, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loading reports whether a fetch for key is currently underway.
func (c *coordinator) Loading(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.inflight[key]
	return ok
}
