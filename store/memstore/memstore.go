// Package memstore is an in-memory store.Provider. It keeps every graph as
// an rdf.MemGraph and records each Update call, which makes it the provider
// of choice for tests and for dry runs of the CLI.
package memstore

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/geoknoesis/rdf-stream/rdf"
	"github.com/geoknoesis/rdf-stream/store"
)

// Call is one recorded Update invocation.
type Call struct {
	Graph     rdf.Term
	Additions []rdf.Quad
	Removals  []rdf.Quad
}

// Store is a concurrency safe in-memory provider.
//
// Blank nodes are relabelled on every Update, so a label means the same node
// within one call only.
type Store struct {
	mu      sync.RWMutex
	graphs  map[string]*rdf.MemGraph
	names   map[string]rdf.Term
	calls   []Call
	factory rdf.NodeFactory
	logger  *slog.Logger

	readOnly bool
	noUpdate bool
	fail     func(Call) error
}

var _ store.Provider = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithReadOnly makes the store refuse writes.
func WithReadOnly() Option {
	return func(s *Store) {
		s.readOnly = true
	}
}

// WithoutUpdate makes the store report that it cannot apply deltas.
func WithoutUpdate() Option {
	return func(s *Store) {
		s.noUpdate = true
	}
}

// WithFailure installs a hook consulted before each Update is applied. A
// non-nil result fails the call and leaves the store unchanged.
func WithFailure(fn func(Call) error) Option {
	return func(s *Store) {
		s.fail = fn
	}
}

// WithFactory sets the factory that allocates stored blank nodes.
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

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		graphs:  make(map[string]*rdf.MemGraph),
		names:   make(map[string]rdf.Term),
		factory: rdf.NewFactory(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "memstore")
	return s
}

func (s *Store) SupportsUpdate() bool { return !s.noUpdate }

func (s *Store) ReadOnly() bool { return s.readOnly }

// Update applies removals, then additions, to graph.
func (s *Store) Update(ctx context.Context, graph rdf.Term, additions, removals []rdf.Quad) error {
	if err := store.CheckWritable(s); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	call := Call{
		Graph:     graph,
		Additions: slices.Clone(additions),
		Removals:  slices.Clone(removals),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	if s.fail != nil {
		if err := s.fail(call); err != nil {
			s.logger.Debug("update rejected", "graph", store.GraphKey(graph), "error", err)
			return err
		}
	}

	key := store.GraphKey(graph)
	g, ok := s.graphs[key]
	if !ok {
		g = rdf.NewGraph()
		s.graphs[key] = g
		s.names[key] = graph
	}
	for _, q := range removals {
		g.Remove(q.WithGraph(graph))
	}
	for _, q := range store.RelabelBlankNodes(additions, s.factory) {
		g.Add(q.WithGraph(graph))
	}
	s.logger.Debug("update applied", "graph", key, "added", len(additions), "removed", len(removals))
	return nil
}

// Calls returns the Update calls made so far, including rejected ones.
func (s *Store) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.calls)
}

// Quads returns the statements of graph in insertion order.
func (s *Store) Quads(graph rdf.Term) []rdf.Quad {
	s.mu.RLock()
	g, ok := s.graphs[store.GraphKey(graph)]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return slices.Collect(g.Quads())
}

// Graphs returns the names of the graphs that have been written to, in key
// order. The default graph is reported as nil.
func (s *Store) Graphs() []rdf.Term {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.names))
	for k := range s.names {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]rdf.Term, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.names[k])
	}
	return out
}

// Len returns the number of statements across all graphs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, g := range s.graphs {
		n += g.Len()
	}
	return n
}
