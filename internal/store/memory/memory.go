package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Noble200/nose-sub001/internal/domain"
	"github.com/Noble200/nose-sub001/internal/store"
	"github.com/Noble200/nose-sub001/internal/xid"
)

type document struct {
	data    []byte
	version int64
	seq     int64
}

type docKey struct {
	collection string
	id         string
}

// Store is an in-process document store. Transactions are optimistic: reads record the
// version they saw, writes are buffered, and commit succeeds only when no read version moved.
type Store struct {
	mu          sync.RWMutex
	docs        map[string]map[string]document
	nextSeq     int64
	maxAttempts int
}

var _ store.DocumentStore = (*Store)(nil)

func New(maxAttempts int) *Store {
	if maxAttempts < 1 {
		maxAttempts = store.DefaultMaxAttempts
	}
	return &Store{
		docs:        make(map[string]map[string]document),
		maxAttempts: maxAttempts,
	}
}

// NewSeeded returns a store preloaded with a small farm catalogue for local development.
func NewSeeded(maxAttempts int) *Store {
	s := New(maxAttempts)
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "prod-soy-seed", Name: "Soybean seed", Category: "seeds", Unit: "kg", Cost: decimal.RequireFromString("1.85"), Stock: decimal.NewFromInt(1200), MinStock: decimal.NewFromInt(200)},
		{ID: "prod-corn-seed", Name: "Corn seed", Category: "seeds", Unit: "kg", Cost: decimal.RequireFromString("3.40"), Stock: decimal.NewFromInt(800), MinStock: decimal.NewFromInt(150)},
		{ID: "prod-urea", Name: "Urea 46%", Category: "fertilizers", Unit: "kg", Cost: decimal.RequireFromString("0.62"), Stock: decimal.NewFromInt(5000), MinStock: decimal.NewFromInt(1000)},
		{ID: "prod-glyphosate", Name: "Glyphosate 66%", Category: "agrochemicals", Unit: "L", Cost: decimal.RequireFromString("4.10"), Stock: decimal.NewFromInt(600), MinStock: decimal.NewFromInt(100)},
		{ID: "prod-diesel", Name: "Diesel", Category: "fuel", Unit: "L", Cost: decimal.RequireFromString("1.05"), Stock: decimal.NewFromInt(3000), MinStock: decimal.NewFromInt(500)},
		{ID: "prod-silo-bag", Name: "Silo bag 9ft", Category: "supplies", Unit: "unit", Cost: decimal.NewFromInt(310), Stock: decimal.NewFromInt(12), MinStock: decimal.NewFromInt(4)},
	}
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := s.SetDocument(context.Background(), domain.CollectionProducts, p.ID, p); err != nil {
			panic(fmt.Sprintf("memory: seed product %s: %v", p.ID, err))
		}
	}
	return s
}

func (s *Store) GetDocument(_ context.Context, collection string, id string, dest any) error {
	s.mu.RLock()
	doc, ok := s.docs[collection][id]
	s.mu.RUnlock()
	if !ok {
		return store.ErrNotFound
	}
	return json.Unmarshal(doc.data, dest)
}

func (s *Store) ListDocuments(_ context.Context, collection string) ([]json.RawMessage, error) {
	s.mu.RLock()
	docs := make([]document, 0, len(s.docs[collection]))
	for _, doc := range s.docs[collection] {
		docs = append(docs, doc)
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].seq < docs[j].seq })
	out := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		out = append(out, json.RawMessage(cloneBytes(doc.data)))
	}
	return out, nil
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

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(docKey{collection: collection, id: id}, raw)
	return id, nil
}

func (s *Store) SetDocument(_ context.Context, collection string, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(docKey{collection: collection, id: id}, raw)
	return nil
}

func (s *Store) UpdateDocument(_ context.Context, collection string, id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return store.ErrNotFound
	}
	merged, err := store.MergePatch(doc.data, patch)
	if err != nil {
		return err
	}
	s.put(docKey{collection: collection, id: id}, merged)
	return nil
}

func (s *Store) DeleteDocument(_ context.Context, collection string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[collection][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.docs[collection], id)
	return nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memoryTx{
			store:  s,
			reads:  make(map[docKey]int64),
			writes: make(map[docKey]*pendingWrite),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if s.commit(tx) {
			return nil
		}
	}
	return fmt.Errorf("memory: %w after %d attempts", store.ErrConflict, s.maxAttempts)
}

// put must be called with mu held for writing.
func (s *Store) put(key docKey, raw []byte) {
	coll, ok := s.docs[key.collection]
	if !ok {
		coll = make(map[string]document)
		s.docs[key.collection] = coll
	}
	current, exists := coll[key.id]
	if !exists {
		s.nextSeq++
		current.seq = s.nextSeq
	}
	coll[key.id] = document{data: raw, version: current.version + 1, seq: current.seq}
}

func (s *Store) versionOf(key docKey) int64 {
	doc, ok := s.docs[key.collection][key.id]
	if !ok {
		return 0
	}
	return doc.version
}

func (s *Store) commit(tx *memoryTx) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, seen := range tx.reads {
		if s.versionOf(key) != seen {
			return false
		}
	}
	for _, key := range tx.order {
		w := tx.writes[key]
		if w.deleted {
			delete(s.docs[key.collection], key.id)
			continue
		}
		s.put(key, w.data)
	}
	return true
}

type pendingWrite struct {
	data    []byte
	deleted bool
}

type memoryTx struct {
	store  *Store
	reads  map[docKey]int64
	writes map[docKey]*pendingWrite
	order  []docKey
}

func (tx *memoryTx) raw(key docKey) ([]byte, bool) {
	if w, ok := tx.writes[key]; ok {
		if w.deleted {
			return nil, false
		}
		return w.data, true
	}

	tx.store.mu.RLock()
	doc, ok := tx.store.docs[key.collection][key.id]
	tx.store.mu.RUnlock()

	if _, seen := tx.reads[key]; !seen {
		tx.reads[key] = doc.version
	}
	if !ok {
		return nil, false
	}
	return doc.data, true
}

func (tx *memoryTx) write(key docKey, w *pendingWrite) {
	if _, ok := tx.writes[key]; !ok {
		tx.order = append(tx.order, key)
	}
	tx.writes[key] = w
}

func (tx *memoryTx) Get(_ context.Context, collection string, id string, dest any) error {
	raw, ok := tx.raw(docKey{collection: collection, id: id})
	if !ok {
		return store.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (tx *memoryTx) Set(_ context.Context, collection string, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	tx.write(docKey{collection: collection, id: id}, &pendingWrite{data: raw})
	return nil
}

func (tx *memoryTx) Update(_ context.Context, collection string, id string, patch map[string]any) error {
	key := docKey{collection: collection, id: id}
	raw, ok := tx.raw(key)
	if !ok {
		return store.ErrNotFound
	}
	merged, err := store.MergePatch(raw, patch)
	if err != nil {
		return err
	}
	tx.write(key, &pendingWrite{data: merged})
	return nil
}

func (tx *memoryTx) Delete(_ context.Context, collection string, id string) error {
	key := docKey{collection: collection, id: id}
	if _, ok := tx.raw(key); !ok {
		return store.ErrNotFound
	}
	tx.write(key, &pendingWrite{deleted: true})
	return nil
}

func cloneBytes(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)
	return out
}
