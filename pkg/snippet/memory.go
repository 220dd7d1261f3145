package snippet

import (
	"context"
	"sync"
)

// MemoryStore keeps snippets in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	snippets map[string]*Snippet
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snippets: make(map[string]*Snippet)}
}

func (m *MemoryStore) Save(ctx context.Context, s *Snippet) error {
	if s.ID == "" {
		return errNoID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snippets[s.ID] = s.clone()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Snippet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snippets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Snippet, error) {
	m.mu.RLock()
	list := make([]*Snippet, 0, len(m.snippets))
	for _, s := range m.snippets {
		list = append(list, s.clone())
	}
	m.mu.RUnlock()

	sortNewest(list)
	return list, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snippets[id]; !ok {
		return ErrNotFound
	}
	delete(m.snippets, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
