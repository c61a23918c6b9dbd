// report-proxy serves cached report documents over HTTP. It fronts the
// authenticated document source with the in-memory resource cache, so
// repeated requests for the same report hit the source once.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reportflow/report-client/pkg/doccache"
	"github.com/reportflow/report-client/pkg/fetcher"
	"github.com/reportflow/report-client/pkg/handle"
	"github.com/reportflow/report-client/pkg/logging"
)

func main() {
	// Configuration from environment
	port := getEnv("PORT", "8080")
	sourceURL := getEnv("SOURCE_URL", "")
	apiToken := getEnv("API_TOKEN", "")
	userAgent := getEnv("USER_AGENT", "report-proxy/0.1.0")
	maxAge := getDurationEnv("CACHE_MAX_AGE", 30*time.Minute)
	maxSize := getIntEnv("CACHE_MAX_SIZE", 24)
	logLevel := getEnv("LOG_LEVEL", "info")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Pretty: getEnv("LOG_PRETTY", "") != "",
		Output: os.Stderr,
	})

	if sourceURL == "" {
		logger.Fatal().Msg("SOURCE_URL is required")
	}

	cfg := fetcher.DefaultConfig(userAgent)
	cfg.Token = apiToken
	f, err := fetcher.NewHTTP(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create fetcher")
	}

	cache, err := doccache.New(doccache.Config{
		BaseURL: sourceURL,
		MaxAge:  maxAge,
		MaxSize: maxSize,
		Fetcher: f,
		Handles: handle.NewMemoryFactory(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cache")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/cache/stats", statsHandler(cache))
	mux.HandleFunc("/cache/clear", clearHandler(cache))
	mux.HandleFunc("/reports/", reportHandler(cache))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("source", sourceURL).
		Dur("max_age", maxAge).
		Int("max_size", maxSize).
		Msg("starting report proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// reportHandler resolves /reports/... through the cache and serves the
// document. Concurrent requests for the same report share one upstream fetch.
func reportHandler(cache *doccache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := cache.GetOrFetch(r.Context(), r.URL.Path)
		if err != nil {
			http.Error(w, fmt.Sprintf("fetch failed: %v", err), http.StatusBadGateway)
			return
		}

		serveDocument(w, h)
	}
}

// serveDocument snapshots the payload before writing: the entry can be
// evicted after GetOrFetch returns, which releases the handle.
func serveDocument(w http.ResponseWriter, h handle.Handle) {
	body := h.Bytes()
	if body == nil {
		http.Error(w, "document handle released", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("X-Cache-Handle", h.URI())
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func statsHandler(cache *doccache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cache.Stats())
	}
}

func clearHandler(cache *doccache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cache.Clear()
		w.WriteHeader(http.StatusNoContent)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
