package handle

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryFactory issues revocable mem:// handles backed by an in-process
// registry, the same shape as a browser object URL: the URI is only
// resolvable while the handle is live, and revocation is what release means.
type MemoryFactory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryFactory creates an empty registry.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{
		entries: make(map[string][]byte),
	}
}

// Wrap registers the payload under a fresh mem:// URI and returns its handle.
func (f *MemoryFactory) Wrap(data []byte) (Handle, error) {
	uri := "mem://" + uuid.NewString()

	f.mu.Lock()
	f.entries[uri] = data
	f.mu.Unlock()

	return &memoryHandle{factory: f, uri: uri, data: data}, nil
}

// Resolve returns the payload registered under uri, if the handle that owns
// it has not been released.
func (f *MemoryFactory) Resolve(uri string) ([]byte, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, ok := f.entries[uri]
	return data, ok
}

// Len reports the number of live handles in the registry.
func (f *MemoryFactory) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.entries)
}

func (f *MemoryFactory) revoke(uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.entries[uri]; !ok {
		return fmt.Errorf("revoke %s: %w", uri, ErrReleased)
	}
	delete(f.entries, uri)
	return nil
}

type memoryHandle struct {
	factory *MemoryFactory

	mu       sync.Mutex
	uri      string
	data     []byte
	released bool
}

func (h *memoryHandle) URI() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return ""
	}
	return h.uri
}

func (h *memoryHandle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}
	return h.data
}

func (h *memoryHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return ErrReleased
	}
	h.released = true
	h.data = nil

	return h.factory.revoke(h.uri)
}
