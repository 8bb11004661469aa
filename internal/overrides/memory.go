package overrides

import (
	"context"
	"sync"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
)

// Memory is a process-local Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]domain.TurbineChanges
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]domain.TurbineChanges)}
}

func (m *Memory) Upsert(_ context.Context, id string, changes domain.TurbineChanges) error {
	if changes.IsEmpty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = m.entries[id].Merge(changes.Clone())
	return nil
}

func (m *Memory) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (domain.TurbineChanges, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.entries[id]
	return c.Clone(), ok, nil
}

func (m *Memory) All(_ context.Context) (map[string]domain.TurbineChanges, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.TurbineChanges, len(m.entries))
	for id, c := range m.entries {
		out[id] = c.Clone()
	}
	return out, nil
}

func (m *Memory) RemoveConfirmed(_ context.Context, id string, confirmed domain.TurbineChanges) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	left := cur.Without(confirmed)
	if left == cur {
		return false, nil
	}
	if left.IsEmpty() {
		delete(m.entries, id)
	} else {
		m.entries[id] = left
	}
	return true, nil
}
