package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned once a transaction kept losing optimistic races after every retry.
	ErrConflict = errors.New("transaction conflict")
)

const DefaultMaxAttempts = 5

// DocumentStore is a collection/id addressed JSON document database.
type DocumentStore interface {
	GetDocument(ctx context.Context, collection string, id string, dest any) error
	ListDocuments(ctx context.Context, collection string) ([]json.RawMessage, error)
	AddDocument(ctx context.Context, collection string, data any) (string, error)
	SetDocument(ctx context.Context, collection string, id string, data any) error
	UpdateDocument(ctx context.Context, collection string, id string, patch map[string]any) error
	DeleteDocument(ctx context.Context, collection string, id string) error
	// RunTransaction runs fn atomically. fn may be invoked more than once when a concurrent
	// writer touched a document it read, so it must derive every write from reads made
	// through tx. Returning an error from fn aborts with nothing written.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the view of the store scoped to one transaction attempt.
type Tx interface {
	Get(ctx context.Context, collection string, id string, dest any) error
	Set(ctx context.Context, collection string, id string, data any) error
	Update(ctx context.Context, collection string, id string, patch map[string]any) error
	Delete(ctx context.Context, collection string, id string) error
}

// MergePatch applies patch onto the top-level fields of a JSON object document.
func MergePatch(raw []byte, patch map[string]any) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}
	for key, value := range patch {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		fields[key] = encoded
	}
	return json.Marshal(fields)
}
