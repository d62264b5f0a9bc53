// Package memory provides an in-memory BlobStore.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/warp/leave-register/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	blobs map[string]entry
	seq   uint64
}

type entry struct {
	content []byte
	version generic.Version
}

func New() *Memory {
	return &Memory{blobs: make(map[string]entry)}
}

// Get returns a copy of the stored blob.
func (m *Memory) Get(_ context.Context, path string) (generic.Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.blobs[path]
	if !ok {
		return generic.Blob{}, generic.NotFoundError(path)
	}
	return generic.Blob{Path: path, Content: append([]byte(nil), e.content...), Version: e.version}, nil
}

// Put stores a copy of content if the precondition holds.
func (m *Memory) Put(_ context.Context, path string, content []byte, expected generic.Version) (generic.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.blobs[path]
	if (expected == "" && exists) || (expected != "" && (!exists || current.version != expected)) {
		return "", generic.StaleVersionError(path, expected)
	}

	m.seq++
	v := generic.Version(strconv.FormatUint(m.seq, 10))
	m.blobs[path] = entry{content: append([]byte(nil), content...), version: v}
	return v, nil
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Reset clears all data.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs = make(map[string]entry)
}
