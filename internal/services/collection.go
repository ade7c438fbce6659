// Package services maps OKR entities onto document collections. Each service
// owns a collection name, assigns ids on create, and expresses deletes as
// predicates over the collection's documents.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"okrhub/internal/docstore"
)

// ErrInvalid marks input rejected before reaching the store.
var ErrInvalid = errors.New("invalid input")

// Entity is a document-backed value that knows its own id.
type Entity[T any] interface {
	DocumentID() string
	WithID(id string) T
}

// Collection is the generic CRUD layer over a named, optionally scoped,
// document collection.
type Collection[T Entity[T]] struct {
	Store docstore.Store
	Name  string
	NewID func() string
}

// CollectionName returns the concrete collection for scope. Scoped
// collections hold one partition per time frame.
func (c Collection[T]) CollectionName(scope string) string {
	if scope == "" {
		return c.Name
	}
	return c.Name + "_" + scope
}

func (c Collection[T]) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

// GetAll returns every document in the collection. A collection that was never
// written to surfaces as a docstore collection-missing error.
func (c Collection[T]) GetAll(ctx context.Context, scope string) ([]T, error) {
	name := c.CollectionName(scope)
	docs, err := c.Store.GetDocuments(ctx, name)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(docs))
	for _, d := range docs {
		item, err := decode[T](name, d)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Create assigns an id when the entity has none and inserts it.
func (c Collection[T]) Create(ctx context.Context, entity T, scope string) (T, error) {
	var zero T
	if entity.DocumentID() == "" {
		entity = entity.WithID(c.newID())
	}
	name := c.CollectionName(scope)
	doc, err := encode(entity)
	if err != nil {
		return zero, err
	}
	created, err := c.Store.CreateDocument(ctx, name, doc)
	if err != nil {
		return zero, err
	}
	return decode[T](name, created)
}

// Save looks the document up first and then writes the full entity: a create
// when it is missing, an overwrite otherwise.
func (c Collection[T]) Save(ctx context.Context, entity T, scope string) (T, error) {
	var zero T
	if entity.DocumentID() == "" {
		return zero, fmt.Errorf("%w: save requires an id", ErrInvalid)
	}
	name := c.CollectionName(scope)
	doc, err := encode(entity)
	if err != nil {
		return zero, err
	}
	_, err = c.Store.GetDocument(ctx, name, entity.DocumentID())
	var saved docstore.Document
	switch {
	case err == nil:
		saved, err = c.Store.SetDocument(ctx, name, doc)
	case docstore.IsDocumentMissing(err), docstore.IsCollectionMissing(err):
		saved, err = c.Store.CreateDocument(ctx, name, doc)
	}
	if err != nil {
		return zero, err
	}
	return decode[T](name, saved)
}

// Delete removes every document matching pred. Deleting from a collection that
// does not exist yet is a no-op.
func (c Collection[T]) Delete(ctx context.Context, pred func(T) bool, scope string) error {
	items, err := c.GetAll(ctx, scope)
	if err != nil {
		if docstore.IsCollectionMissing(err) {
			return nil
		}
		return err
	}
	name := c.CollectionName(scope)
	for _, item := range items {
		if !pred(item) {
			continue
		}
		if err := c.Store.DeleteDocument(ctx, name, item.DocumentID()); err != nil && !docstore.IsDocumentMissing(err) {
			return fmt.Errorf("delete %s/%s: %w", name, item.DocumentID(), err)
		}
	}
	return nil
}

func encode[T Entity[T]](entity T) (docstore.Document, error) {
	b, err := json.Marshal(entity)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("marshal %s: %w", entity.DocumentID(), err)
	}
	return docstore.Document{ID: entity.DocumentID(), Body: b}, nil
}

func decode[T any](collection string, d docstore.Document) (T, error) {
	var v T
	if err := json.Unmarshal(d.Body, &v); err != nil {
		return v, fmt.Errorf("decode %s/%s: %w", collection, d.ID, err)
	}
	return v, nil
}
