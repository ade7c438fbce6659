// Package docstore is a schema-less document collection store. Collections are
// created implicitly by the first write and documents are keyed by a
// caller-supplied id. Writes are last-write-wins; the etag is informational.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TypeKeyCollectionDoesNotExist = "DocumentCollectionDoesNotExistException"
	TypeKeyDocumentDoesNotExist   = "DocumentDoesNotExistException"
	TypeKeyDocumentExists         = "DocumentExistsException"
	TypeKeyInvalidDocument        = "InvalidDocumentException"
)

// Document is a stored record. Body is the JSON object as written by the caller.
type Document struct {
	ID        string          `json:"id"`
	ETag      int64           `json:"__etag"`
	Body      json.RawMessage `json:"body"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}

// Store is the asynchronous CRUD surface the domain services build on.
type Store interface {
	GetDocuments(ctx context.Context, collection string) ([]Document, error)
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	CreateDocument(ctx context.Context, collection string, doc Document) (Document, error)
	SetDocument(ctx context.Context, collection string, doc Document) (Document, error)
	DeleteDocument(ctx context.Context, collection, id string) error
}

type ServerError struct {
	TypeKey string `json:"typeKey"`
	Message string `json:"message"`
}

// Error mirrors the host platform's rejection shape: {serverError: {typeKey}}.
type Error struct {
	ServerError ServerError `json:"serverError"`
}

func (e *Error) Error() string {
	if e.ServerError.Message != "" {
		return e.ServerError.Message
	}
	return e.ServerError.TypeKey
}

func newError(typeKey, format string, args ...any) *Error {
	return &Error{ServerError: ServerError{TypeKey: typeKey, Message: fmt.Sprintf(format, args...)}}
}

func collectionMissing(collection string) *Error {
	return newError(TypeKeyCollectionDoesNotExist, "document collection %s does not exist", collection)
}

func documentMissing(collection, id string) *Error {
	return newError(TypeKeyDocumentDoesNotExist, "document %s does not exist in collection %s", id, collection)
}

// TypeKey extracts the server error type key from err, if any.
func TypeKey(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.ServerError.TypeKey
	}
	return ""
}

// IsCollectionMissing reports the first-run condition where nothing has been
// written to a collection yet.
func IsCollectionMissing(err error) bool {
	return TypeKey(err) == TypeKeyCollectionDoesNotExist
}

func IsDocumentMissing(err error) bool {
	return TypeKey(err) == TypeKeyDocumentDoesNotExist
}

func validate(collection string, doc Document) error {
	if collection == "" {
		return newError(TypeKeyInvalidDocument, "collection name required")
	}
	if doc.ID == "" {
		return newError(TypeKeyInvalidDocument, "document id required in collection %s", collection)
	}
	if len(doc.Body) == 0 || !json.Valid(doc.Body) {
		return newError(TypeKeyInvalidDocument, "document %s body is not valid JSON", doc.ID)
	}
	return nil
}
