package docstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store. It is safe for concurrent use and is
// intended for tests and throwaway workspaces.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	now         func() time.Time
}

type memCollection struct {
	order []string
	docs  map[string]Document
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
		now:         time.Now,
	}
}

func (s *MemoryStore) ensure(collection string) *memCollection {
	c, ok := s.collections[collection]
	if !ok {
		c = &memCollection{docs: make(map[string]Document)}
		s.collections[collection] = c
	}
	return c
}

func (s *MemoryStore) GetDocuments(_ context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, collectionMissing(collection)
	}
	res := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		res = append(res, cloneDocument(c.docs[id]))
	}
	return res, nil
}

func (s *MemoryStore) GetDocument(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return Document{}, collectionMissing(collection)
	}
	d, ok := c.docs[id]
	if !ok {
		return Document{}, documentMissing(collection, id)
	}
	return cloneDocument(d), nil
}

func (s *MemoryStore) CreateDocument(_ context.Context, collection string, doc Document) (Document, error) {
	if err := validate(collection, doc); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ensure(collection)
	if _, exists := c.docs[doc.ID]; exists {
		return Document{}, newError(TypeKeyDocumentExists, "document %s already exists in collection %s", doc.ID, collection)
	}
	doc = cloneDocument(doc)
	doc.ETag = 1
	doc.UpdatedAt = s.now().UTC().Format(time.RFC3339Nano)
	c.docs[doc.ID] = doc
	c.order = append(c.order, doc.ID)
	return cloneDocument(doc), nil
}

func (s *MemoryStore) SetDocument(_ context.Context, collection string, doc Document) (Document, error) {
	if err := validate(collection, doc); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ensure(collection)
	doc = cloneDocument(doc)
	if prev, exists := c.docs[doc.ID]; exists {
		doc.ETag = prev.ETag + 1
	} else {
		doc.ETag = 1
		c.order = append(c.order, doc.ID)
	}
	doc.UpdatedAt = s.now().UTC().Format(time.RFC3339Nano)
	c.docs[doc.ID] = doc
	return cloneDocument(doc), nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return collectionMissing(collection)
	}
	if _, ok := c.docs[id]; !ok {
		return documentMissing(collection, id)
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func cloneDocument(d Document) Document {
	if d.Body != nil {
		d.Body = append([]byte(nil), d.Body...)
	}
	return d
}
