package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geoknoesis/rdf-stream/rdf"
	"github.com/geoknoesis/rdf-stream/store"
)

// DefaultBatchSize is the StoreWriter batch size when none is configured.
const DefaultBatchSize = 1000

// StoreWriter writes a session to a storage provider in bounded batches.
//
// Ground statements are grouped into batches of at most the configured size
// for a single graph; a batch is flushed when it is full or when the graph
// changes. Statements containing blank nodes are held back until End and
// then written with one Update per graph, so that a provider allocating
// blank node identifiers per call sees every occurrence of a label in the
// same call.
//
// Each Update is atomic on its own; a session is not. If the provider fails
// half way, batches flushed before the failure stay written.
type StoreWriter struct {
	Base
	provider     store.Provider
	batchSize    int
	defaultGraph rdf.Term
	logger       *slog.Logger
	metrics      *StoreWriterMetrics

	batch    []rdf.Quad
	graph    rdf.Term
	deferred []rdf.Quad
}

var _ Handler = (*StoreWriter)(nil)

// StoreWriterOption configures a StoreWriter.
type StoreWriterOption func(*StoreWriter)

// WithBatchSize sets the maximum number of ground statements per Update.
func WithBatchSize(n int) StoreWriterOption {
	return func(w *StoreWriter) {
		w.batchSize = n
	}
}

// WithDefaultGraph sets the graph that statements without a graph name are
// written to. Without it they go to the provider's default graph.
func WithDefaultGraph(g rdf.Term) StoreWriterOption {
	return func(w *StoreWriter) {
		w.defaultGraph = g
	}
}

// WithLogger sets the logger used for flush diagnostics.
func WithLogger(l *slog.Logger) StoreWriterOption {
	return func(w *StoreWriter) {
		w.logger = l
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *StoreWriterMetrics) StoreWriterOption {
	return func(w *StoreWriter) {
		w.metrics = m
	}
}

// NewStoreWriter creates a StoreWriter. It fails with ErrConstruction if the
// provider is read-only or cannot update, or if the batch size is not positive.
func NewStoreWriter(p store.Provider, opts ...StoreWriterOption) (*StoreWriter, error) {
	if err := store.CheckWritable(p); err != nil {
		return nil, constructionError("store-writer", err.Error())
	}
	w := &StoreWriter{
		Base:      newBase("store-writer"),
		provider:  p,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.batchSize < 1 {
		return nil, constructionError("store-writer", fmt.Sprintf("batch size must be positive, got %d", w.batchSize))
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("component", "store-writer")
	return w, nil
}

func (w *StoreWriter) Start(context.Context) error {
	if err := w.Begin(); err != nil {
		return err
	}
	w.reset()
	return nil
}

func (w *StoreWriter) reset() {
	w.batch = nil
	w.deferred = nil
	w.graph = w.defaultGraph
}

func (w *StoreWriter) HandleStatement(ctx context.Context, q rdf.Quad) (bool, error) {
	if err := w.Check("statement"); err != nil {
		return false, err
	}
	if !q.IsGround() {
		w.deferred = append(w.deferred, q)
		return true, nil
	}

	graph := w.normalize(q.G)
	if graph != w.graph {
		if err := w.flush(ctx); err != nil {
			return false, err
		}
		w.graph = graph
	}
	w.batch = append(w.batch, q.WithGraph(graph))
	if len(w.batch) >= w.batchSize {
		if err := w.flush(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

// End writes what is left of the session when ok is true. An aborted
// session drops the pending batch and the held-back statements.
func (w *StoreWriter) End(ctx context.Context, ok bool) error {
	if err := w.Close(); err != nil {
		return err
	}
	defer w.Release()
	if !ok {
		if len(w.batch) > 0 || len(w.deferred) > 0 {
			w.logger.Debug("discarding unwritten statements of aborted session",
				"batch", len(w.batch), "deferred", len(w.deferred))
		}
		w.reset()
		return nil
	}
	if err := w.flush(ctx); err != nil {
		w.reset()
		return err
	}
	err := w.flushDeferred(ctx)
	w.reset()
	return err
}

func (w *StoreWriter) normalize(g rdf.Term) rdf.Term {
	if g == nil {
		return w.defaultGraph
	}
	return g
}

func (w *StoreWriter) flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	// the provider may keep the slice, so the next batch gets a new one
	batch := w.batch
	w.batch = nil
	return w.update(ctx, w.graph, batch, "ground")
}

func (w *StoreWriter) flushDeferred(ctx context.Context) error {
	if len(w.deferred) == 0 {
		return nil
	}
	var order []rdf.Term
	groups := make(map[rdf.Term][]rdf.Quad)
	for _, q := range w.deferred {
		graph := w.normalize(q.G)
		if _, seen := groups[graph]; !seen {
			order = append(order, graph)
		}
		groups[graph] = append(groups[graph], q.WithGraph(graph))
	}
	for _, graph := range order {
		if err := w.update(ctx, graph, groups[graph], "deferred"); err != nil {
			return err
		}
	}
	return nil
}

func (w *StoreWriter) update(ctx context.Context, graph rdf.Term, quads []rdf.Quad, kind string) error {
	started := time.Now()
	err := w.provider.Update(ctx, graph, quads, nil)
	if w.metrics != nil {
		w.metrics.UpdateDuration.Observe(time.Since(started).Seconds())
		w.metrics.Batches.Inc()
		if err != nil {
			w.metrics.Failures.Inc()
		} else {
			w.metrics.Statements.WithLabelValues(kind).Add(float64(len(quads)))
		}
	}
	if err != nil {
		return &Error{Handler: "store-writer", Op: "update", Err: fmt.Errorf("graph %s: %w", store.GraphKey(graph), err)}
	}
	w.logger.Debug("flushed", "graph", store.GraphKey(graph), "kind", kind, "size", len(quads))
	return nil
}
