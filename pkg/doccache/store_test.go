package doccache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/reportflow/report-client/pkg/handle"
)

// trackingFactory records every handle it hands out so tests can assert
// exactly-once release.
type trackingFactory struct {
	mu          sync.Mutex
	handles     []*trackingHandle
	failRelease bool
}

func (f *trackingFactory) Wrap(data []byte) (handle.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := &trackingHandle{data: data, failRelease: f.failRelease}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *trackingFactory) releaseCounts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make([]int, len(f.handles))
	for i, h := range f.handles {
		counts[i] = h.releases
	}
	return counts
}

type trackingHandle struct {
	mu          sync.Mutex
	data        []byte
	releases    int
	failRelease bool
}

func (h *trackingHandle) URI() string { return "fake://handle" }

func (h *trackingHandle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.data
}

func (h *trackingHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.releases++
	if h.failRelease {
		return errors.New("release refused")
	}
	return nil
}

func newTestStore(maxAge time.Duration, maxSize int) (*store, *trackingFactory) {
	factory := &trackingFactory{}
	st := newStore(&sync.Mutex{}, maxAge, maxSize, factory, zerolog.Nop())
	return st, factory
}

func TestStore_PutAndGet(t *testing.T) {
	st, _ := newTestStore(time.Hour, 10)

	entry, err := st.Put("v1|https://api/reports/a.pdf", []byte("doc-a"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if entry.Handle == nil {
		t.Fatal("Put() entry should carry a handle")
	}

	got, ok := st.Get("v1|https://api/reports/a.pdf")
	if !ok {
		t.Fatal("Get() should hit after Put()")
	}
	if got != entry {
		t.Error("Get() returned a different entry than Put() committed")
	}
}

func TestStore_GetMiss(t *testing.T) {
	st, _ := newTestStore(time.Hour, 10)

	if _, ok := st.Get("v1|https://api/reports/unknown.pdf"); ok {
		t.Error("Get() should miss for an unknown key")
	}
}

func TestStore_CapacityBoundHolds(t *testing.T) {
	st, _ := newTestStore(time.Hour, 3)

	keys := []Key{"k1", "k2", "k3", "k4", "k5", "k6"}
	for _, key := range keys {
		if _, err := st.Put(key, []byte("doc")); err != nil {
			t.Fatalf("Put(%s) error = %v", key, err)
		}
		if got := st.Stats().Count; got > 3 {
			t.Fatalf("count = %d after Put(%s), want <= 3", got, key)
		}
	}
}

func TestStore_FIFOEviction(t *testing.T) {
	st, factory := newTestStore(time.Hour, 2)

	// Deterministic insertion times.
	clock := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	st.Put("A", []byte("doc-a"))
	st.Put("B", []byte("doc-b"))

	// Reads must not protect A from eviction.
	st.Get("A")
	st.Get("A")

	st.Put("C", []byte("doc-c"))

	if _, ok := st.Get("A"); ok {
		t.Error("A should be evicted (oldest insertion)")
	}
	if _, ok := st.Get("B"); !ok {
		t.Error("B should survive")
	}
	if _, ok := st.Get("C"); !ok {
		t.Error("C should survive")
	}

	counts := factory.releaseCounts()
	if counts[0] != 1 {
		t.Errorf("A's handle released %d times, want 1", counts[0])
	}
	if counts[1] != 0 || counts[2] != 0 {
		t.Errorf("surviving handles released: B=%d C=%d, want 0", counts[1], counts[2])
	}
}

func TestStore_EvictionTieBreakOnEqualTimestamps(t *testing.T) {
	st, factory := newTestStore(time.Hour, 1)

	// Frozen clock: every insertion shares one CreatedAt, so eviction
	// order must come from the insertion sequence alone.
	frozen := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return frozen }

	st.Put("A", []byte("doc-a"))
	b, err := st.Put("B", []byte("doc-b"))
	if err != nil {
		t.Fatalf("Put(B) error = %v", err)
	}

	if _, ok := st.Get("A"); ok {
		t.Error("A should be evicted (older insertion)")
	}
	got, ok := st.Get("B")
	if !ok {
		t.Fatal("B (just inserted) must survive its own put")
	}
	if got != b {
		t.Error("Get(B) returned a different entry than Put(B)")
	}

	counts := factory.releaseCounts()
	if counts[0] != 1 {
		t.Errorf("A's handle released %d times, want 1", counts[0])
	}
	if counts[1] != 0 {
		t.Errorf("B's handle released %d times, want 0 (caller holds it live)", counts[1])
	}
}

func TestStore_FIFOEvictionUnderFrozenClock(t *testing.T) {
	st, _ := newTestStore(time.Hour, 2)

	frozen := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return frozen }

	st.Put("A", []byte("doc-a"))
	st.Put("B", []byte("doc-b"))
	st.Put("C", []byte("doc-c"))

	if _, ok := st.Get("A"); ok {
		t.Error("A should be evicted first despite identical timestamps")
	}
	if _, ok := st.Get("B"); !ok {
		t.Error("B should survive")
	}
	if _, ok := st.Get("C"); !ok {
		t.Error("C should survive")
	}
}

func TestStore_Freshness(t *testing.T) {
	st, factory := newTestStore(10*time.Minute, 10)

	inserted := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	now := inserted
	st.now = func() time.Time { return now }

	st.Put("K", []byte("doc"))

	now = inserted.Add(9 * time.Minute)
	if _, ok := st.Get("K"); !ok {
		t.Fatal("entry should still be fresh at maxAge - 1m")
	}

	now = inserted.Add(10*time.Minute + time.Millisecond)
	if _, ok := st.Get("K"); ok {
		t.Fatal("entry should be expired just past maxAge")
	}

	// The expired entry was purged and its handle released by the read.
	if counts := factory.releaseCounts(); counts[0] != 1 {
		t.Errorf("expired handle released %d times, want 1", counts[0])
	}
}

func TestStore_PutSweepsExpired(t *testing.T) {
	st, factory := newTestStore(10*time.Minute, 10)

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	st.Put("old", []byte("doc"))

	now = now.Add(11 * time.Minute)
	st.Put("new", []byte("doc"))

	stats := st.Stats()
	if stats.Count != 1 {
		t.Errorf("count = %d, want 1 (old entry swept on insert)", stats.Count)
	}
	if counts := factory.releaseCounts(); counts[0] != 1 {
		t.Errorf("swept handle released %d times, want 1", counts[0])
	}
}

func TestStore_ClearReleasesAllExactlyOnce(t *testing.T) {
	st, factory := newTestStore(time.Hour, 10)

	st.Put("A", []byte("doc-a"))
	st.Put("B", []byte("doc-b"))
	st.Put("C", []byte("doc-c"))

	st.Clear()

	if got := st.Stats().Count; got != 0 {
		t.Errorf("count after Clear() = %d, want 0", got)
	}
	for i, count := range factory.releaseCounts() {
		if count != 1 {
			t.Errorf("handle %d released %d times, want exactly 1", i, count)
		}
	}
}

func TestStore_ClearSurvivesReleaseFailure(t *testing.T) {
	st, factory := newTestStore(time.Hour, 10)
	factory.failRelease = true

	st.Put("A", []byte("doc-a"))
	st.Put("B", []byte("doc-b"))

	st.Clear()

	if got := st.Stats().Count; got != 0 {
		t.Errorf("count after Clear() = %d, want 0 even when release fails", got)
	}
	for i, count := range factory.releaseCounts() {
		if count != 1 {
			t.Errorf("handle %d release attempted %d times, want 1", i, count)
		}
	}
}

func TestStore_ReplaceReleasesOldHandle(t *testing.T) {
	st, factory := newTestStore(time.Hour, 10)

	st.Put("K", []byte("first"))
	st.Put("K", []byte("second"))

	counts := factory.releaseCounts()
	if counts[0] != 1 {
		t.Errorf("replaced handle released %d times, want 1", counts[0])
	}
	if counts[1] != 0 {
		t.Errorf("live handle released %d times, want 0", counts[1])
	}
}

func TestStore_Remove(t *testing.T) {
	st, factory := newTestStore(time.Hour, 10)

	st.Put("K", []byte("doc"))
	st.Remove("K")

	if _, ok := st.Get("K"); ok {
		t.Error("Get() should miss after Remove()")
	}
	if counts := factory.releaseCounts(); counts[0] != 1 {
		t.Errorf("removed handle released %d times, want 1", counts[0])
	}

	// Removing an absent key is a no-op.
	st.Remove("K")
}

func TestStore_StatsSweepsBeforeReporting(t *testing.T) {
	st, _ := newTestStore(10*time.Minute, 10)

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	st.Put("fresh", []byte("doc"))
	st.Put("stale", []byte("doc"))

	stats := st.Stats()
	if stats.Count != 2 {
		t.Fatalf("count = %d, want 2", stats.Count)
	}

	now = now.Add(11 * time.Minute)
	stats = st.Stats()
	if stats.Count != 0 {
		t.Errorf("count = %d, want 0 (stale entries must not be reported)", stats.Count)
	}
	if stats.MaxSize != 10 {
		t.Errorf("MaxSize = %d, want 10", stats.MaxSize)
	}
}
