package store

import (
	"context"
	"sync"
)

// MemoryCells is an in-process cell grid. It backs local development and
// tests; production deployments use the sheets or redis backends.
type MemoryCells struct {
	cells map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryCells creates an empty in-memory cell grid.
func NewMemoryCells() *MemoryCells {
	return &MemoryCells{
		cells: make(map[string][]byte),
	}
}

// ReadCell reads one cell.
func (m *MemoryCells) ReadCell(_ context.Context, addr string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.cells[addr]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

// WriteCell writes one cell.
func (m *MemoryCells) WriteCell(_ context.Context, addr string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.cells[addr] = stored
	return nil
}

// ClearCell removes one cell.
func (m *MemoryCells) ClearCell(_ context.Context, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cells, addr)
	return nil
}
