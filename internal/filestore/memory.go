package filestore

import (
	"context"
	"sync"
)

type memoryIndex struct {
	mu    sync.RWMutex
	order []string
	files map[string]*StoredFile
}

// NewMemoryIndex returns a volatile index that preserves insertion order.
func NewMemoryIndex() Index {
	return &memoryIndex{files: make(map[string]*StoredFile)}
}

func (m *memoryIndex) PutFile(_ context.Context, file *StoredFile) error {
	clone := *file
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[file.ID]; !exists {
		m.order = append(m.order, file.ID)
	}
	m.files[file.ID] = &clone
	return nil
}

func (m *memoryIndex) GetFile(_ context.Context, id string) (*StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	file, ok := m.files[id]
	if !ok {
		return nil, nil
	}
	clone := *file
	return &clone, nil
}

func (m *memoryIndex) ListFiles(context.Context) ([]*StoredFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*StoredFile, 0, len(m.order))
	for _, id := range m.order {
		clone := *m.files[id]
		out = append(out, &clone)
	}
	return out, nil
}
