package docstore

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in a map. State is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
	subs *subscribers
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Document),
		subs: newSubscribers(),
	}
}

func (m *MemoryStore) Get(ctx context.Context, code string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[code]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *MemoryStore) Set(ctx context.Context, code string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[code] = doc
	m.subs.publish(code, doc)
	return nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, code string, fn func(Document)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, unsubscribe := m.subs.add(code, fn)
	if doc, ok := m.docs[code]; ok {
		sub.push(doc)
	}
	return unsubscribe, nil
}

// Subscribers returns the number of listeners on code.
func (m *MemoryStore) Subscribers(code string) int {
	return m.subs.count(code)
}
