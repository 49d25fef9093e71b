package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// table is an immutable snapshot of one collection.
type table struct {
	order []Item
	byID  map[string]int
}

// MemStore is an in-process Store. Replacing a collection builds a new table
// and then publishes it, so readers never observe a partial set.
type MemStore struct {
	mu      sync.RWMutex
	tables  map[string]*table
	meta    map[string]string
	schemas map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		tables:  make(map[string]*table),
		meta:    make(map[string]string),
		schemas: make(map[string][]byte),
	}
}

func (m *MemStore) snapshot(collection string) *table {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tables[collection]
}

func (m *MemStore) Items(_ context.Context, collection string) ([]Item, error) {
	t := m.snapshot(collection)
	if t == nil {
		return nil, nil
	}
	out := make([]Item, len(t.order))
	copy(out, t.order)
	return out, nil
}

func (m *MemStore) Item(_ context.Context, collection, id string) (Item, error) {
	t := m.snapshot(collection)
	if t != nil {
		if i, ok := t.byID[id]; ok {
			return t.order[i], nil
		}
	}
	return Item{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
}

func (m *MemStore) ReplaceCollection(_ context.Context, collection string, items []Item) error {
	next := &table{byID: make(map[string]int, len(items))}
	for _, it := range items {
		it.Collection = collection
		it.Data = append([]byte(nil), it.Data...)
		if _, dup := next.byID[it.ID]; dup {
			continue
		}
		next.byID[it.ID] = len(next.order)
		next.order = append(next.order, it)
	}

	m.mu.Lock()
	m.tables[collection] = next
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Collections(_ context.Context) ([]CollectionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []CollectionSummary
	for name, t := range m.tables {
		out = append(out, CollectionSummary{
			Name:       name,
			Items:      len(t.order),
			LastSynced: parseMillis(m.meta[LastSyncedKey(name)]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) GetMeta(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta[key], nil
}

func (m *MemStore) SetMeta(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

func (m *MemStore) PutSchema(_ context.Context, collection string, schema []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[collection] = append([]byte(nil), schema...)
	return nil
}

func (m *MemStore) Schema(_ context.Context, collection string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemas[collection]
	if !ok {
		return nil, fmt.Errorf("schema %s: %w", collection, ErrNotFound)
	}
	return s, nil
}

func (m *MemStore) Close() error { return nil }
