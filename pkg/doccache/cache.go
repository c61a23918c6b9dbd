package doccache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reportflow/report-client/pkg/fetcher"
	"github.com/reportflow/report-client/pkg/handle"
	"github.com/reportflow/report-client/pkg/logging"
)

// Config holds the cache configuration. MaxAge and MaxSize are fixed at
// construction.
type Config struct {
	// Version is the cache-format version tag embedded in every key.
	// Bumping it invalidates all entries created under prior tags.
	Version string

	// BaseURL is the API origin path-only locators resolve against.
	BaseURL string

	// MaxAge is how long an entry stays servable after insertion.
	MaxAge time.Duration

	// MaxSize is the maximum number of entries held at once.
	MaxSize int

	// Fetcher performs the authenticated transfers.
	Fetcher fetcher.Fetcher

	// Handles converts fetched bytes into releasable handles.
	Handles handle.Factory

	// Logger overrides the default component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a configuration with the reference bounds: tens of
// minutes of freshness, a low double-digit entry count.
func DefaultConfig(f fetcher.Fetcher, handles handle.Factory) Config {
	return Config{
		Version: "v1",
		MaxAge:  30 * time.Minute,
		MaxSize: 24,
		Fetcher: f,
		Handles: handles,
	}
}

// Cache is the document resource cache: fetch once per logical resource,
// share the fetch among concurrent callers, keep the result under age and
// capacity bounds, release every handle on the way out.
//
// Construct one per process and inject it into consumers.
type Cache struct {
	normalizer *Normalizer
	store      *store
	coord      *coordinator
	fetcher    fetcher.Fetcher
	logger     zerolog.Logger
}

// New creates a cache from cfg. Version defaults to "v1", MaxAge to 30m and
// MaxSize to 24; Fetcher and Handles are required.
func New(cfg Config) (*Cache, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Handles == nil {
		return nil, fmt.Errorf("handle factory is required")
	}
	if cfg.Version == "" {
		cfg.Version = "v1"
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30 * time.Minute
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 24
	}

	normalizer, err := NewNormalizer(cfg.Version, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	logger := logging.NewLogger("doccache")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	// One coarse lock covers the store and the in-flight table; the
	// at-most-one-fetch invariant needs their combined check-then-register
	// to be atomic.
	mu := &sync.Mutex{}
	st := newStore(mu, cfg.MaxAge, cfg.MaxSize, cfg.Handles, logger)

	return &Cache{
		normalizer: normalizer,
		store:      st,
		coord:      newCoordinator(mu, st, logger),
		fetcher:    cfg.Fetcher,
		logger:     logger,
	}, nil
}

// GetOrFetch resolves locator to a document handle, fetching at most once no
// matter how many callers ask concurrently. Fetch failures propagate to
// every waiting caller and are not cached; the next call starts fresh.
func (c *Cache) GetOrFetch(ctx context.Context, locator string) (handle.Handle, error) {
	key := c.normalizer.Normalize(locator)
	url := c.normalizer.URL(locator)

	entry, err := c.coord.Join(ctx, key, func(ctx context.Context) ([]byte, error) {
		return c.fetcher.Fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}

	return entry.Handle, nil
}

// IsCached reports whether a live, unexpired entry exists for locator. An
// expired entry found on the way is purged, same as on any read.
func (c *Cache) IsCached(locator string) bool {
	_, ok := c.store.Get(c.normalizer.Normalize(locator))
	return ok
}

// IsLoading reports whether a fetch for locator is currently in flight.
func (c *Cache) IsLoading(locator string) bool {
	return c.coord.Loading(c.normalizer.Normalize(locator))
}

// Clear removes every committed entry, releasing each handle. In-flight
// fetches are unaffected: once started they run to completion and commit or
// fail on their own.
func (c *Cache) Clear() {
	c.store.Clear()
	c.logger.Info().Msg("cache cleared")
}

// Stats returns an observational snapshot of the committed entries.
func (c *Cache) Stats() Stats {
	return c.store.Stats()
}
