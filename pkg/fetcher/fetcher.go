// Package fetcher performs authenticated document transfers for the
// resource cache. Retry and backoff for transient failures live here, not in
// the cache: the cache propagates whatever outcome the fetcher settles on.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/reportflow/report-client/pkg/logging"
)

// Prometheus metrics for document transfers.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_fetch_requests_total",
		Help: "Total document fetch attempts by HTTP status",
	}, []string{"status"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_fetch_duration_seconds",
		Help:    "Document fetch duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_fetch_errors_total",
		Help: "Total document fetch errors by class",
	}, []string{"class"})

	fetchRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_fetch_retries_total",
		Help: "Total fetch retry attempts by error class",
	}, []string{"error_class"})
)

// Fetcher performs an authenticated transfer of a single document.
type Fetcher interface {
	// Fetch downloads the document at url and returns its payload.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TokenSource supplies a bearer token per request, for callers whose
// credentials rotate. It takes precedence over Config.Token.
type TokenSource func(ctx context.Context) (string, error)

// Config holds the fetcher configuration.
type Config struct {
	// UserAgent is sent on every request (required).
	UserAgent string

	// Token is a static bearer token. Empty means unauthenticated.
	Token string

	// Tokens supplies a token per request; takes precedence over Token.
	Tokens TokenSource

	// Timeout bounds a single attempt, not the whole retry sequence.
	Timeout time.Duration

	// MaxConcurrency caps parallel transfers across all keys.
	MaxConcurrency int64

	// Retry
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:      userAgent,
		Timeout:        30 * time.Second,
		MaxConcurrency: 4,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// HTTP fetches documents over HTTP with bearer-token auth.
type HTTP struct {
	client *http.Client
	config Config
	sem    *semaphore.Weighted
	logger zerolog.Logger
}

// NewHTTP creates a new HTTP fetcher.
func NewHTTP(cfg Config) (*HTTP, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTP{
		client: client,
		config: cfg,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrency),
		logger: logging.NewLogger("fetcher"),
	}, nil
}

// Fetch downloads the document at url, retrying transient failures with
// exponential backoff. Client (4xx) errors fail immediately.
func (f *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	backoff := f.config.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= f.config.MaxAttempts; attempt++ {
		data, err := f.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		class := ErrorClassNetwork
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			class = fetchErr.ErrorClass
		}
		fetchErrorsTotal.WithLabelValues(string(class)).Inc()

		// Deterministic failures propagate as-is so callers can inspect
		// the status code.
		if !shouldRetry(class) {
			return nil, err
		}
		if attempt == f.config.MaxAttempts {
			break
		}

		fetchRetriesTotal.WithLabelValues(string(class)).Inc()
		f.logger.Warn().
			Err(err).
			Str("url", url).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("fetch failed, retrying")

		// Jittered exponential backoff: sleep backoff ± 25%.
		sleep := backoff
		if half := int64(backoff) / 2; half > 0 {
			sleep = backoff - backoff/4 + time.Duration(rand.Int63n(half))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}

		backoff *= 2
		if backoff > f.config.MaxBackoff {
			backoff = f.config.MaxBackoff
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
}

func (f *HTTP) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{ErrorClass: ErrorClassClient, URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	token := f.config.Token
	if f.config.Tokens != nil {
		token, err = f.config.Tokens(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve token: %w", err)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{ErrorClass: ErrorClassNetwork, URL: url, Err: err}
	}
	defer resp.Body.Close()

	fetchRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			URL:        url,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{ErrorClass: ErrorClassNetwork, URL: url, Err: err}
	}

	fetchDuration.Observe(time.Since(start).Seconds())
	f.logger.Debug().
		Str("url", url).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("document fetched")

	return data, nil
}
