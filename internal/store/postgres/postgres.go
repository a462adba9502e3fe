package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Noble200/nose-sub001/internal/store"
	"github.com/Noble200/nose-sub001/internal/xid"
)

const schema = `
CREATE TABLE IF NOT EXISTS farm_documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	version    BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

// Store keeps every collection in one JSONB table keyed by (collection, id).
type Store struct {
	db          *sql.DB
	maxAttempts int
}

var _ store.DocumentStore = (*Store)(nil)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(ctx context.Context, databaseURL string, maxAttempts int) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if maxAttempts < 1 {
		maxAttempts = store.DefaultMaxAttempts
	}
	s := &Store{db: db, maxAttempts: maxAttempts}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetDocument(ctx context.Context, collection string, id string, dest any) error {
	raw, err := getRaw(ctx, s.db, collection, id, false)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (s *Store) ListDocuments(ctx context.Context, collection string) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data
		FROM farm_documents
		WHERE collection = $1
		ORDER BY created_at ASC, id ASC
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]json.RawMessage, 0, 64)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		docs = append(docs, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) AddDocument(ctx context.Context, collection string, data any) (string, error) {
	id := xid.New("")
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	raw, err = store.MergePatch(raw, map[string]any{"id": id})
	if err != nil {
		return "", err
	}
	if err := setRaw(ctx, s.db, collection, id, raw); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SetDocument(ctx context.Context, collection string, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return setRaw(ctx, s.db, collection, id, raw)
}

func (s *Store) UpdateDocument(ctx context.Context, collection string, id string, patch map[string]any) error {
	return patchRaw(ctx, s.db, collection, id, patch)
}

func (s *Store) DeleteDocument(ctx context.Context, collection string, id string) error {
	return deleteRaw(ctx, s.db, collection, id)
}

// RunTransaction executes fn under SERIALIZABLE isolation and replays it when postgres
// reports a serialization failure or deadlock.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		if attempt == s.maxAttempts {
			break
		}
		timer := time.NewTimer(retryDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("postgres: %w after %d attempts", store.ErrConflict, s.maxAttempts)
}

const (
	retryBaseDelay = 10 * time.Millisecond
	retryMaxDelay  = 200 * time.Millisecond
)

// retryDelay doubles per attempt up to retryMaxDelay, jittered into [d/2, d].
func retryDelay(attempt int) time.Duration {
	d := retryMaxDelay
	if attempt >= 1 && attempt <= 5 {
		d = min(retryBaseDelay<<(attempt-1), retryMaxDelay)
	}
	return d/2 + rand.N(d/2+1)
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(ctx, &pgTx{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) Get(ctx context.Context, collection string, id string, dest any) error {
	raw, err := getRaw(ctx, t.tx, collection, id, true)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (t *pgTx) Set(ctx context.Context, collection string, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return setRaw(ctx, t.tx, collection, id, raw)
}

func (t *pgTx) Update(ctx context.Context, collection string, id string, patch map[string]any) error {
	return patchRaw(ctx, t.tx, collection, id, patch)
}

func (t *pgTx) Delete(ctx context.Context, collection string, id string) error {
	return deleteRaw(ctx, t.tx, collection, id)
}

func getRaw(ctx context.Context, q queryer, collection string, id string, forUpdate bool) ([]byte, error) {
	query := `SELECT data FROM farm_documents WHERE collection = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var raw []byte
	if err := q.QueryRowContext(ctx, query, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return raw, nil
}

func setRaw(ctx context.Context, q queryer, collection string, id string, raw []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO farm_documents (collection, id, data, version, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, 1, now(), now())
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, version = farm_documents.version + 1, updated_at = now()
	`, collection, id, string(raw))
	return err
}

func patchRaw(ctx context.Context, q queryer, collection string, id string, patch map[string]any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	// jsonb || merges top-level keys, matching store.MergePatch.
	result, err := q.ExecContext(ctx, `
		UPDATE farm_documents
		SET data = data || $3::jsonb, version = version + 1, updated_at = now()
		WHERE collection = $1 AND id = $2
	`, collection, id, string(raw))
	if err != nil {
		return err
	}
	return expectRow(result)
}

func deleteRaw(ctx context.Context, q queryer, collection string, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM farm_documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return err
	}
	return expectRow(result)
}

func expectRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
