// Package memory implementa el adapter en memoria para docstore.
// Pensado para desarrollo y tests: las transacciones se serializan con un
// mutex global, así check-then-act dentro de una transacción es atómico.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dropDatabas3/eventgate/internal/store/docstore"
)

// Store implementa docstore.Store sobre un map en memoria.
type Store struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

// New crea un store en memoria vacío.
func New() *Store {
	return &Store{docs: make(map[string]map[string]any)}
}

func (s *Store) Get(ctx context.Context, path string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[path]
	if !ok {
		return docstore.ErrNotFound
	}
	return docstore.DecodeDoc(doc, out)
}

func (s *Store) Set(ctx context.Context, path string, v any) error {
	doc, err := docstore.EncodeDoc(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = doc
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *Store) Query(ctx context.Context, collection, field, value string) ([]docstore.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []docstore.Snapshot
	prefix := collection + "/"
	for path, doc := range s.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		// Solo documentos directos de la colección, no subcolecciones.
		if strings.ContainsRune(path[len(prefix):], '/') {
			continue
		}
		if sv, ok := doc[field].(string); ok && sv == value {
			out = append(out, docstore.NewSnapshot(path, doc))
		}
	}
	// Orden estable por path para que los tests sean deterministas.
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) RunTransaction(ctx context.Context, fn func(tx docstore.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		base:    s.docs,
		staged:  make(map[string]map[string]any),
		deleted: make(map[string]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	// Commit: aplicar overlay sobre el base.
	for path := range tx.deleted {
		delete(s.docs, path)
	}
	for path, doc := range tx.staged {
		s.docs[path] = doc
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

// Len retorna la cantidad de documentos. Solo para tests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// ─── Transacción ───

// memTx acumula escrituras en un overlay; las lecturas ven sus propias
// escrituras. El commit lo aplica RunTransaction bajo el lock.
type memTx struct {
	base    map[string]map[string]any
	staged  map[string]map[string]any
	deleted map[string]bool
	writes  int
}

func (t *memTx) current(path string) (map[string]any, bool) {
	if t.deleted[path] {
		return nil, false
	}
	if doc, ok := t.staged[path]; ok {
		return doc, true
	}
	doc, ok := t.base[path]
	return doc, ok
}

func (t *memTx) countWrite() error {
	t.writes++
	if t.writes > docstore.MaxTxWrites {
		return docstore.ErrTxTooLarge
	}
	return nil
}

func (t *memTx) Get(path string, out any) error {
	doc, ok := t.current(path)
	if !ok {
		return docstore.ErrNotFound
	}
	return docstore.DecodeDoc(doc, out)
}

func (t *memTx) Create(path string, v any) error {
	if err := t.countWrite(); err != nil {
		return err
	}
	if _, ok := t.current(path); ok {
		return docstore.ErrConflict
	}
	doc, err := docstore.EncodeDoc(v)
	if err != nil {
		return err
	}
	delete(t.deleted, path)
	t.staged[path] = doc
	return nil
}

func (t *memTx) Set(path string, v any) error {
	if err := t.countWrite(); err != nil {
		return err
	}
	doc, err := docstore.EncodeDoc(v)
	if err != nil {
		return err
	}
	delete(t.deleted, path)
	t.staged[path] = doc
	return nil
}

func (t *memTx) Update(path string, fields map[string]any, pre ...docstore.Precondition) error {
	if err := t.countWrite(); err != nil {
		return err
	}
	doc, ok := t.current(path)
	if !ok {
		return docstore.ErrNotFound
	}
	for _, p := range pre {
		if p.FieldAbsent != "" && docstore.FieldPresent(doc, p.FieldAbsent) {
			return docstore.ErrPreconditionFailed
		}
	}
	merged := make(map[string]any, len(doc)+len(fields))
	for k, v := range doc {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	t.staged[path] = merged
	return nil
}

func (t *memTx) Delete(path string) error {
	if err := t.countWrite(); err != nil {
		return err
	}
	delete(t.staged, path)
	t.deleted[path] = true
	return nil
}

func (t *memTx) Writes() int { return t.writes }
