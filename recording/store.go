package recording

import (
	"fmt"
	"sort"
	"sync"
)

// Store resolves recordings keyed by (name, actuatorID).
type Store interface {
	Read(name, actuatorID string) ([]Frame, error)
	List(actuatorID string) ([]string, error)
}

type memoryKey struct {
	name       string
	actuatorID string
}

// MemoryStore keeps recordings in memory. Used for fixtures and dry runs.
type MemoryStore struct {
	mu         sync.RWMutex
	recordings map[memoryKey][]Frame
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recordings: make(map[memoryKey][]Frame)}
}

// Put stores frames under (name, actuatorID), replacing any previous entry.
func (m *MemoryStore) Put(name, actuatorID string, frames []Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordings[memoryKey{name, actuatorID}] = frames
}

func (m *MemoryStore) Read(name, actuatorID string) ([]Frame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	frames, ok := m.recordings[memoryKey{name, actuatorID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s for %s", ErrNotFound, name, actuatorID)
	}
	return frames, nil
}

func (m *MemoryStore) List(actuatorID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0)
	for k := range m.recordings {
		if k.actuatorID == actuatorID {
			names = append(names, k.name)
		}
	}
	sort.Strings(names)
	return names, nil
}
