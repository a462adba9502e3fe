package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Noble200/nose-sub001/internal/store"
)

type counter struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
	Label string `json:"label,omitempty"`
}

func TestDocumentCRUD(t *testing.T) {
	s := New(3)
	ctx := context.Background()

	id, err := s.AddDocument(ctx, "counters", counter{Value: 1})
	require.NoError(t, err)

	var got counter
	require.NoError(t, s.GetDocument(ctx, "counters", id, &got))
	require.Equal(t, id, got.ID)
	require.Equal(t, 1, got.Value)

	require.NoError(t, s.UpdateDocument(ctx, "counters", id, map[string]any{"label": "barn"}))
	require.NoError(t, s.GetDocument(ctx, "counters", id, &got))
	require.Equal(t, "barn", got.Label)
	require.Equal(t, 1, got.Value)

	require.NoError(t, s.DeleteDocument(ctx, "counters", id))
	require.ErrorIs(t, s.GetDocument(ctx, "counters", id, &got), store.ErrNotFound)
	require.ErrorIs(t, s.UpdateDocument(ctx, "counters", id, map[string]any{"value": 2}), store.ErrNotFound)
}

func TestListDocumentsKeepsInsertionOrder(t *testing.T) {
	s := New(3)
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.SetDocument(ctx, "counters", id, counter{ID: id}))
	}
	require.NoError(t, s.SetDocument(ctx, "counters", "c", counter{ID: "c", Value: 9}))

	docs, err := s.ListDocuments(ctx, "counters")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.JSONEq(t, `{"id":"c","value":9}`, string(docs[0]))
	require.JSONEq(t, `{"id":"a","value":0}`, string(docs[1]))
}

func TestTransactionAbortWritesNothing(t *testing.T) {
	s := New(3)
	ctx := context.Background()
	require.NoError(t, s.SetDocument(ctx, "counters", "x", counter{ID: "x", Value: 1}))

	boom := errors.New("boom")
	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Update(ctx, "counters", "x", map[string]any{"value": 99}); err != nil {
			return err
		}
		if err := tx.Set(ctx, "counters", "y", counter{ID: "y"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var got counter
	require.NoError(t, s.GetDocument(ctx, "counters", "x", &got))
	require.Equal(t, 1, got.Value)
	require.ErrorIs(t, s.GetDocument(ctx, "counters", "y", &got), store.ErrNotFound)
}

func TestTransactionReadsOwnWrites(t *testing.T) {
	s := New(3)
	ctx := context.Background()

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Set(ctx, "counters", "x", counter{ID: "x", Value: 5}); err != nil {
			return err
		}
		var got counter
		if err := tx.Get(ctx, "counters", "x", &got); err != nil {
			return err
		}
		require.Equal(t, 5, got.Value)
		if err := tx.Delete(ctx, "counters", "x"); err != nil {
			return err
		}
		require.ErrorIs(t, tx.Get(ctx, "counters", "x", &got), store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestTransactionRetriesAfterConcurrentWrite(t *testing.T) {
	s := New(3)
	ctx := context.Background()
	require.NoError(t, s.SetDocument(ctx, "counters", "x", counter{ID: "x", Value: 1}))

	attempts := 0
	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		attempts++
		var got counter
		if err := tx.Get(ctx, "counters", "x", &got); err != nil {
			return err
		}
		if attempts == 1 {
			// Another writer commits between our read and our commit.
			require.NoError(t, s.SetDocument(ctx, "counters", "x", counter{ID: "x", Value: 10}))
		}
		return tx.Update(ctx, "counters", "x", map[string]any{"value": got.Value + 1})
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)

	var got counter
	require.NoError(t, s.GetDocument(ctx, "counters", "x", &got))
	require.Equal(t, 11, got.Value)
}

func TestTransactionReportsConflictWhenRetriesRunOut(t *testing.T) {
	s := New(2)
	ctx := context.Background()
	require.NoError(t, s.SetDocument(ctx, "counters", "x", counter{ID: "x"}))

	err := s.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		var got counter
		if err := tx.Get(ctx, "counters", "x", &got); err != nil {
			return err
		}
		require.NoError(t, s.SetDocument(ctx, "counters", "x", counter{ID: "x", Value: got.Value + 1}))
		return tx.Set(ctx, "counters", "x", counter{ID: "x", Value: -1})
	})
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestNewSeededHasProducts(t *testing.T) {
	s := NewSeeded(3)
	docs, err := s.ListDocuments(context.Background(), "products")
	require.NoError(t, err)
	require.NotEmpty(t, docs)
}
