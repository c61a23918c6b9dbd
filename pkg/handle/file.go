package handle

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// FileFactory materializes payloads as files under Dir, for consumers that
// need an on-disk path (external PDF viewers). Release unlinks the file.
type FileFactory struct {
	// Dir is the directory files are written to. Empty means os.TempDir().
	Dir string
}

// Wrap writes the payload to a uniquely named file and returns a handle
// whose URI is the file:// path.
func (f *FileFactory) Wrap(data []byte) (Handle, error) {
	dir := f.Dir
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, "report-"+uuid.NewString()+".pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write document file: %w", err)
	}

	return &fileHandle{path: path, data: data}, nil
}

type fileHandle struct {
	mu       sync.Mutex
	path     string
	data     []byte
	released bool
}

func (h *fileHandle) URI() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return ""
	}
	return "file://" + h.path
}

func (h *fileHandle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}
	return h.data
}

func (h *fileHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return ErrReleased
	}
	h.released = true
	h.data = nil

	if err := os.Remove(h.path); err != nil {
		return fmt.Errorf("remove document file: %w", err)
	}
	return nil
}
