// Package pgstore is a store.Provider backed by a PostgreSQL table.
//
// Each statement is one row of (graph, subject, predicate, object), every
// column holding the N-Triples rendering of the term. The default graph is
// stored with an empty graph column. An Update runs in a single transaction.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/geoknoesis/rdf-stream/rdf"
	"github.com/geoknoesis/rdf-stream/store"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "rdf_quad"

// Begin starts a transaction.
//
// *pgxpool.Pool and *pgx.Conn implement it.
type Begin interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store writes statements to PostgreSQL.
type Store struct {
	db       Begin
	table    string
	factory  rdf.NodeFactory
	logger   *slog.Logger
	readOnly bool
}

var _ store.Provider = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTable sets the table name. It must be a plain SQL identifier.
func WithTable(name string) Option {
	return func(s *Store) {
		s.table = name
	}
}

// WithFactory sets the factory that allocates stored blank node labels.
func WithFactory(f rdf.NodeFactory) Option {
	return func(s *Store) {
		s.factory = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithReadOnly makes the store refuse writes.
func WithReadOnly() Option {
	return func(s *Store) {
		s.readOnly = true
	}
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New creates a Store over db.
func New(db Begin, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("pgstore: nil database")
	}
	s := &Store{
		db:      db,
		table:   DefaultTable,
		factory: rdf.NewFactory(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !identifier.MatchString(s.table) {
		return nil, fmt.Errorf("pgstore: invalid table name %q", s.table)
	}
	s.logger = s.logger.With("component", "pgstore", "table", s.table)
	return s, nil
}

func (s *Store) SupportsUpdate() bool { return true }

func (s *Store) ReadOnly() bool { return s.readOnly }

// EnsureSchema creates the statement table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	"graph"     TEXT NOT NULL,
	"subject"   TEXT NOT NULL,
	"predicate" TEXT NOT NULL,
	"object"    TEXT NOT NULL,
	PRIMARY KEY ("graph", "subject", "predicate", "object")
)`, s.table))
		return err
	})
}

// Update deletes removals and inserts additions in one transaction.
// Blank nodes among the additions get fresh labels.
func (s *Store) Update(ctx context.Context, graph rdf.Term, additions, removals []rdf.Quad) error {
	if err := store.CheckWritable(s); err != nil {
		return err
	}
	key := store.GraphKey(graph)
	deleteSQL := fmt.Sprintf(
		`DELETE FROM %s WHERE "graph" = $1 AND "subject" = $2 AND "predicate" = $3 AND "object" = $4`,
		s.table,
	)
	insertSQL := fmt.Sprintf(
		`INSERT INTO %s ("graph", "subject", "predicate", "object") VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		s.table,
	)

	var removed, inserted int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, q := range removals {
			tag, err := tx.Exec(ctx, deleteSQL, row(key, q)...)
			if err != nil {
				return err
			}
			removed += tag.RowsAffected()
		}
		for _, q := range store.RelabelBlankNodes(additions, s.factory) {
			tag, err := tx.Exec(ctx, insertSQL, row(key, q)...)
			if err != nil {
				return err
			}
			inserted += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			s.logger.Debug("update failed", "graph", key, "sqlstate", pgErr.Code, "error", pgErr.Message)
		}
		return fmt.Errorf("pgstore: update graph %q: %w", key, err)
	}
	s.logger.Debug("update applied", "graph", key, "inserted", inserted, "removed", removed)
	return nil
}

// Quads returns the statements stored in graph.
func (s *Store) Quads(ctx context.Context, graph rdf.Term) ([]rdf.Quad, error) {
	key := store.GraphKey(graph)
	var out []rdf.Quad
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, fmt.Sprintf(
			`SELECT "subject", "predicate", "object" FROM %s WHERE "graph" = $1 ORDER BY "subject", "predicate", "object"`,
			s.table,
		), key)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var subject, predicate, object string
			if err := rows.Scan(&subject, &predicate, &object); err != nil {
				return err
			}
			q, err := decodeRow(subject, predicate, object)
			if err != nil {
				return err
			}
			out = append(out, q.WithGraph(graph))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: read graph %q: %w", key, err)
	}
	return out, nil
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, rbErr)
			}
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func row(graph string, q rdf.Quad) []interface{} {
	return []interface{}{graph, rdf.FormatTerm(q.S), rdf.FormatTerm(q.P), rdf.FormatTerm(q.O)}
}

func decodeRow(subject, predicate, object string) (rdf.Quad, error) {
	s, err := rdf.ParseTerm(subject)
	if err != nil {
		return rdf.Quad{}, err
	}
	p, err := rdf.ParseTerm(predicate)
	if err != nil {
		return rdf.Quad{}, err
	}
	iri, ok := p.(rdf.IRI)
	if !ok {
		return rdf.Quad{}, fmt.Errorf("predicate %s is not an IRI", predicate)
	}
	o, err := rdf.ParseTerm(object)
	if err != nil {
		return rdf.Quad{}, err
	}
	return rdf.Quad{S: s, P: iri, O: o}, nil
}
