// Package testutil provides testing utilities for the report client.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockReports is a configurable mock document server for testing.
type MockReports struct {
	server *httptest.Server

	mu        sync.Mutex
	documents map[string][]byte
	statuses  map[string]int
	delays    map[string]time.Duration
	token     string

	// Tracking
	requests map[string]int
	total    int
	lastAuth string
}

// NewMockReports creates a new mock report server.
func NewMockReports() *MockReports {
	mock := &MockReports{
		documents: make(map[string][]byte),
		statuses:  make(map[string]int),
		delays:    make(map[string]time.Duration),
		requests:  make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))

	return mock
}

func (m *MockReports) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.total++
	m.requests[r.URL.Path]++
	m.lastAuth = r.Header.Get("Authorization")

	doc, hasDoc := m.documents[r.URL.Path]
	status, hasStatus := m.statuses[r.URL.Path]
	delay := m.delays[r.URL.Path]
	token := m.token
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if hasStatus {
		w.WriteHeader(status)
		return
	}

	if !hasDoc {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// URL returns the mock server URL.
func (m *MockReports) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockReports) Close() {
	m.server.Close()
}

// AddDocument registers a document payload for path.
func (m *MockReports) AddDocument(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[path] = data
	delete(m.statuses, path)
}

// FailWith makes requests for path return the given status code.
func (m *MockReports) FailWith(path string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[path] = status
}

// SetDelay delays responses for path, to hold a fetch open during tests.
func (m *MockReports) SetDelay(path string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[path] = delay
}

// RequireToken makes the server reject requests without the bearer token.
func (m *MockReports) RequireToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// Requests returns the number of requests seen for path.
func (m *MockReports) Requests(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[path]
}

// TotalRequests returns the number of requests seen across all paths.
func (m *MockReports) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// LastAuth returns the Authorization header of the most recent request.
func (m *MockReports) LastAuth() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAuth
}

// Reset clears all tracking counters.
func (m *MockReports) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
	m.total = 0
	m.lastAuth = ""
}
