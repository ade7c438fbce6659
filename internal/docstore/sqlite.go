package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore persists collections in the documents table created by the
// embedded migrations.
type SQLiteStore struct {
	DB  *sql.DB
	Now func() time.Time
}

var _ Store = SQLiteStore{}

func (s SQLiteStore) now() string {
	if s.Now != nil {
		return s.Now().UTC().Format(time.RFC3339Nano)
	}
	return time.Now().UTC().Format(time.RFC3339Nano)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func collectionExists(ctx context.Context, q querier, collection string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM collections WHERE name=?`, collection).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup collection %s: %w", collection, err)
	}
	return n > 0, nil
}

func (s SQLiteStore) GetDocuments(ctx context.Context, collection string) ([]Document, error) {
	ok, err := collectionExists(ctx, s.DB, collection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, collectionMissing(collection)
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id,etag,body_json,updated_at FROM documents WHERE collection=? ORDER BY rowid`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Document{}
	for rows.Next() {
		var d Document
		var body string
		if err := rows.Scan(&d.ID, &d.ETag, &body, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Body = []byte(body)
		res = append(res, d)
	}
	return res, rows.Err()
}

func (s SQLiteStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	ok, err := collectionExists(ctx, s.DB, collection)
	if err != nil {
		return Document{}, err
	}
	if !ok {
		return Document{}, collectionMissing(collection)
	}
	return getDocument(ctx, s.DB, collection, id)
}

func getDocument(ctx context.Context, q querier, collection, id string) (Document, error) {
	d := Document{ID: id}
	var body string
	err := q.QueryRowContext(ctx, `SELECT etag,body_json,updated_at FROM documents WHERE collection=? AND id=?`, collection, id).
		Scan(&d.ETag, &body, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, documentMissing(collection, id)
	}
	if err != nil {
		return Document{}, err
	}
	d.Body = []byte(body)
	return d, nil
}

func (s SQLiteStore) CreateDocument(ctx context.Context, collection string, doc Document) (Document, error) {
	if err := validate(collection, doc); err != nil {
		return Document{}, err
	}
	now := s.now()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO collections(name,created_at) VALUES (?,?)`, collection, now); err != nil {
		return Document{}, fmt.Errorf("ensure collection %s: %w", collection, err)
	}
	if _, err := getDocument(ctx, tx, collection, doc.ID); err == nil {
		return Document{}, newError(TypeKeyDocumentExists, "document %s already exists in collection %s", doc.ID, collection)
	} else if !IsDocumentMissing(err) {
		return Document{}, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents(collection,id,etag,body_json,created_at,updated_at) VALUES (?,?,1,?,?,?)`,
		collection, doc.ID, string(doc.Body), now, now); err != nil {
		return Document{}, fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return Document{}, err
	}
	doc.ETag = 1
	doc.UpdatedAt = now
	return doc, nil
}

// SetDocument overwrites or inserts doc; the previous etag is not checked.
func (s SQLiteStore) SetDocument(ctx context.Context, collection string, doc Document) (Document, error) {
	if err := validate(collection, doc); err != nil {
		return Document{}, err
	}
	now := s.now()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO collections(name,created_at) VALUES (?,?)`, collection, now); err != nil {
		return Document{}, fmt.Errorf("ensure collection %s: %w", collection, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents(collection,id,etag,body_json,created_at,updated_at) VALUES (?,?,1,?,?,?)
ON CONFLICT(collection,id) DO UPDATE SET etag=documents.etag+1, body_json=excluded.body_json, updated_at=excluded.updated_at`,
		collection, doc.ID, string(doc.Body), now, now); err != nil {
		return Document{}, fmt.Errorf("write document %s: %w", doc.ID, err)
	}
	saved, err := getDocument(ctx, tx, collection, doc.ID)
	if err != nil {
		return Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return Document{}, err
	}
	return saved, nil
}

func (s SQLiteStore) DeleteDocument(ctx context.Context, collection, id string) error {
	ok, err := collectionExists(ctx, s.DB, collection)
	if err != nil {
		return err
	}
	if !ok {
		return collectionMissing(collection)
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE collection=? AND id=?`, collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return documentMissing(collection, id)
	}
	return nil
}
