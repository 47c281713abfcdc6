// Package pg implementa el adapter Postgres para docstore.
// Los documentos viven en una única tabla JSONB keyed por path; las
// transacciones usan el nivel serializable de Postgres, que provee la
// atomicidad multi-documento que el contrato exige.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/eventgate/internal/store/docstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    path       text PRIMARY KEY,
    collection text NOT NULL,
    doc        jsonb NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
`

// Store implementa docstore.Store sobre Postgres (pgx).
type Store struct {
	pool *pgxpool.Pool
}

// Connect abre el pool y asegura el schema.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Get(ctx context.Context, path string, out any) error {
	var doc map[string]any
	err := s.pool.QueryRow(ctx, `SELECT doc FROM documents WHERE path = $1`, path).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("pg: get %s: %w", path, err)
	}
	return docstore.DecodeDoc(doc, out)
}

func (s *Store) Set(ctx context.Context, path string, v any) error {
	doc, err := docstore.EncodeDoc(v)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (path, collection, doc) VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		path, docstore.CollectionOf(path), doc)
	if err != nil {
		return fmt.Errorf("pg: set %s: %w", path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path); err != nil {
		return fmt.Errorf("pg: delete %s: %w", path, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection, field, value string) ([]docstore.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT path, doc FROM documents
		WHERE collection = $1 AND doc->>$2 = $3
		ORDER BY path`, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("pg: query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []docstore.Snapshot
	for rows.Next() {
		var path string
		var doc map[string]any
		if err := rows.Scan(&path, &doc); err != nil {
			return nil, fmt.Errorf("pg: query %s: %w", collection, err)
		}
		out = append(out, docstore.NewSnapshot(path, doc))
	}
	return out, rows.Err()
}

func (s *Store) RunTransaction(ctx context.Context, fn func(tx docstore.Tx) error) error {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer pgtx.Rollback(ctx)

	tx := &txWrapper{ctx: ctx, tx: pgtx}
	if err := fn(tx); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ─── Transacción ───

type txWrapper struct {
	ctx    context.Context
	tx     pgx.Tx
	writes int
}

func (t *txWrapper) countWrite() error {
	t.writes++
	if t.writes > docstore.MaxTxWrites {
		return docstore.ErrTxTooLarge
	}
	return nil
}

func (t *txWrapper) Get(path string, out any) error {
	var doc map[string]any
	err := t.tx.QueryRow(t.ctx, `SELECT doc FROM documents WHERE path = $1 FOR UPDATE`, path).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("pg: tx get %s: %w", path, err)
	}
	return docstore.DecodeDoc(doc, out)
}

func (t *txWrapper) Create(path string, v any) error {
	if err := t.countWrite(); err != nil {
		return err
	}
	doc, err := docstore.EncodeDoc(v)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(t.ctx, `
		INSERT INTO documents (path, collection, doc) VALUES ($1, $2, $3)`,
		path, docstore.CollectionOf(path), doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return docstore.ErrConflict
		}
		return fmt.Errorf("pg: tx create %s: %w", path, err)
	}
	return nil
}

func (t *txWrapper) Set(path string, v any) error {
	if err := t.countWrite(); err != nil {
		return err
	}
	doc, err := docstore.EncodeDoc(v)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(t.ctx, `
		INSERT INTO documents (path, collection, doc) VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		path, docstore.CollectionOf(path), doc)
	if err != nil {
		return fmt.Errorf("pg: tx set %s: %w", path, err)
	}
	return nil
}

func (t *txWrapper) Update(path string, fields map[string]any, pre ...docstore.Precondition) error {
	if err := t.countWrite(); err != nil {
		return err
	}
	patch, err := docstore.EncodeDoc(fields)
	if err != nil {
		return err
	}

	q := `UPDATE documents SET doc = doc || $2, updated_at = now() WHERE path = $1`
	args := []any{path, patch}
	for _, p := range pre {
		if p.FieldAbsent != "" {
			q += fmt.Sprintf(` AND (doc->>$%d IS NULL OR doc->>$%d = '')`, len(args)+1, len(args)+1)
			args = append(args, p.FieldAbsent)
		}
	}

	tag, err := t.tx.Exec(t.ctx, q, args...)
	if err != nil {
		return fmt.Errorf("pg: tx update %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguir inexistente de precondición fallida.
		var exists bool
		if err := t.tx.QueryRow(t.ctx,
			`SELECT EXISTS (SELECT 1 FROM documents WHERE path = $1)`, path).Scan(&exists); err != nil {
			return fmt.Errorf("pg: tx update %s: %w", path, err)
		}
		if !exists {
			return docstore.ErrNotFound
		}
		return docstore.ErrPreconditionFailed
	}
	return nil
}

func (t *txWrapper) Delete(path string) error {
	if err := t.countWrite(); err != nil {
		return err
	}
	if _, err := t.tx.Exec(t.ctx, `DELETE FROM documents WHERE path = $1`, path); err != nil {
		return fmt.Errorf("pg: tx delete %s: %w", path, err)
	}
	return nil
}

func (t *txWrapper) Writes() int { return t.writes }
