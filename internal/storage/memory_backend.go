package storage

import (
	"sync"
)

// InMemoryBackend implements Backend with a process-wide map keyed by
// directory, so separate instances opened on the same key observe each
// other's saves like the file-system backend does.
type InMemoryBackend struct {
	key string
}

var globalInMemoryStore = struct {
	sync.RWMutex
	docs map[string]*Document
}{
	docs: make(map[string]*Document),
}

// NewInMemoryBackend creates an in-memory backend for key.
func NewInMemoryBackend(key string) *InMemoryBackend {
	return &InMemoryBackend{key: key}
}

// Load returns a copy of the stored document, or (nil, nil).
func (b *InMemoryBackend) Load() (*Document, error) {
	globalInMemoryStore.RLock()
	defer globalInMemoryStore.RUnlock()
	return globalInMemoryStore.docs[b.key].Clone(), nil
}

// Save stores a copy of doc.
func (b *InMemoryBackend) Save(doc *Document) error {
	c := doc.Clone()
	if c != nil {
		c.Version = CurrentSchemaVersion
	}
	globalInMemoryStore.Lock()
	globalInMemoryStore.docs[b.key] = c
	globalInMemoryStore.Unlock()
	return nil
}

// Close is a no-op.
func (b *InMemoryBackend) Close() error { return nil }

// ClearAllInMemoryStores drops every in-memory document (for testing).
func ClearAllInMemoryStores() {
	globalInMemoryStore.Lock()
	globalInMemoryStore.docs = make(map[string]*Document)
	globalInMemoryStore.Unlock()
}

var _ Backend = (*InMemoryBackend)(nil)
