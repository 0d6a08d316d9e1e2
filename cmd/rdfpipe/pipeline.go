package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geoknoesis/rdf-stream/internal/config"
	"github.com/geoknoesis/rdf-stream/rdf"
	"github.com/geoknoesis/rdf-stream/rdf/handler"
	"github.com/geoknoesis/rdf-stream/store"
	"github.com/geoknoesis/rdf-stream/store/memstore"
	"github.com/geoknoesis/rdf-stream/store/natsstore"
	"github.com/geoknoesis/rdf-stream/store/pgstore"
)

type summary struct {
	output     string
	statements int64
	graphs     int
	found      *bool
	stored     int
	cancelled  bool
	elapsed    time.Duration
}

func (s summary) log(logger *slog.Logger) {
	attrs := []any{
		"output", s.output,
		"statements", s.statements,
		"graphs", s.graphs,
		"elapsed", s.elapsed.Round(time.Millisecond),
	}
	if s.found != nil {
		attrs = append(attrs, "found", *s.found)
	}
	if s.output == config.OutputMemory {
		attrs = append(attrs, "stored", s.stored)
	}
	if s.cancelled {
		attrs = append(attrs, "interrupted", true)
	}
	logger.Info("pipeline finished", attrs...)
}

// pipeline is the assembled handler together with what run needs to
// report on it and tear it down.
type pipeline struct {
	root    handler.Handler
	counter *handler.StoreCounter
	probe   *handler.Probe
	memory  *memstore.Store
	closers []func() error
}

func (p *pipeline) close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, cfg config.Pipeline, stdin io.Reader, stdout io.Writer, logger *slog.Logger) (summary, error) {
	started := time.Now()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer shutdown()
	}

	p, err := build(ctx, cfg, stdout, reg, logger)
	if err != nil {
		return summary{}, err
	}

	cancellable, err := handler.NewCancellable(p.root)
	if err != nil {
		return summary{}, errors.Join(err, p.close())
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			logger.Warn("interrupted, finishing current session")
			cancellable.Cancel()
		case <-done:
		}
	}()

	in, closeInput, err := openInput(cfg.Input.Path, stdin)
	if err != nil {
		return summary{}, errors.Join(err, p.close())
	}
	defer closeInput()

	logger.Debug("pipeline assembled", "handlers", describe(cancellable))
	opts := []rdf.Option{rdf.OptMaxQuads(cfg.Input.MaxQuads)}
	if cfg.Input.MaxLineBytes != 0 {
		opts = append(opts, rdf.OptMaxLineBytes(cfg.Input.MaxLineBytes))
	}
	// the driver gets a context of its own so that an interrupt ends the
	// session through the cancellable handler instead of aborting it
	err = handler.FromReader(context.WithoutCancel(ctx), in, rdf.Format(cfg.Input.Format), cancellable, opts...)
	err = errors.Join(err, p.close())

	s := summary{
		output:     cfg.Output.Kind,
		statements: p.counter.Statements(),
		graphs:     p.counter.Graphs(),
		cancelled:  ctx.Err() != nil,
		elapsed:    time.Since(started),
	}
	if p.probe != nil {
		found := p.probe.Found()
		s.found = &found
	}
	if p.memory != nil {
		s.stored = p.memory.Len()
	}
	return s, err
}

// build assembles, from the inside out:
// window → graph rewrite → strip datatype → unique blank nodes → multiplex(counter, sink).
func build(ctx context.Context, cfg config.Pipeline, stdout io.Writer, reg prometheus.Registerer, logger *slog.Logger) (*pipeline, error) {
	p := &pipeline{counter: handler.NewStoreCounter()}
	sink, err := p.sink(ctx, cfg.Output, stdout, reg, logger)
	if err != nil {
		return nil, errors.Join(err, p.close())
	}

	h, err := wrapAll(p.counter, sink, cfg)
	if err != nil {
		return nil, errors.Join(err, p.close())
	}
	p.root = h
	return p, nil
}

func wrapAll(counter *handler.StoreCounter, sink handler.Handler, cfg config.Pipeline) (handler.Handler, error) {
	mux, err := handler.NewMultiplex(counter, sink)
	if err != nil {
		return nil, err
	}
	var h handler.Handler = mux
	if cfg.Transform.UniqueBlankNodes {
		if h, err = handler.NewUniqueBlankNodes(h); err != nil {
			return nil, err
		}
	}
	if cfg.Transform.StripStringDatatype {
		if h, err = handler.NewStripStringDatatype(h); err != nil {
			return nil, err
		}
	}
	if cfg.Transform.Graph != "" {
		if h, err = handler.NewGraphRewrite(h, rdf.IRI{Value: cfg.Transform.Graph}); err != nil {
			return nil, err
		}
	}
	if cfg.Window.Offset != 0 || cfg.Window.Limit >= 0 {
		if h, err = handler.NewWindow(h, cfg.Window.Offset, cfg.Window.Limit); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (p *pipeline) sink(ctx context.Context, out config.Output, stdout io.Writer, reg prometheus.Registerer, logger *slog.Logger) (handler.Handler, error) {
	switch out.Kind {
	case config.OutputStdout:
		var enc rdf.Encoder
		if rdf.Format(out.Format) == rdf.FormatJSONLD {
			enc = rdf.NewJSONLDEncoder(stdout, rdf.JSONLDOptions{Context: ctx, Indent: "  "})
		} else {
			var err error
			if enc, err = rdf.NewEncoder(stdout, rdf.Format(out.Format)); err != nil {
				return nil, err
			}
		}
		p.closers = append(p.closers, enc.Close)
		return handler.NewWriter(enc, handler.WithFlushEvery(out.FlushEvery))
	case config.OutputDiscard:
		return handler.NewDiscard(), nil
	case config.OutputProbe:
		p.probe = handler.NewProbe()
		return p.probe, nil
	}

	provider, err := p.provider(ctx, out, logger)
	if err != nil {
		return nil, err
	}
	metrics, err := handler.NewStoreWriterMetrics(reg)
	if err != nil {
		return nil, err
	}
	opts := []handler.StoreWriterOption{
		handler.WithBatchSize(out.BatchSize),
		handler.WithLogger(logger),
		handler.WithMetrics(metrics),
	}
	if out.DefaultGraph != "" {
		opts = append(opts, handler.WithDefaultGraph(rdf.IRI{Value: out.DefaultGraph}))
	}
	return handler.NewStoreWriter(provider, opts...)
}

func (p *pipeline) provider(ctx context.Context, out config.Output, logger *slog.Logger) (store.Provider, error) {
	switch out.Kind {
	case config.OutputMemory:
		p.memory = memstore.New(memstore.WithLogger(logger))
		return p.memory, nil
	case config.OutputPostgres:
		pool, err := pgxpool.Connect(ctx, out.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		p.closers = append(p.closers, func() error { pool.Close(); return nil })
		s, err := pgstore.New(pool, pgstore.WithTable(out.Postgres.Table), pgstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("create schema: %w", err)
		}
		return s, nil
	case config.OutputNATS:
		s, closeConn, err := natsstore.Connect(ctx, out.NATS.URL, out.NATS.Bucket, natsstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func() error { closeConn(); return nil })
		return s, nil
	default:
		return nil, fmt.Errorf("unknown output %q", out.Kind)
	}
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// describe lists the handler types of a pipeline, outermost first.
func describe(h handler.Handler) []string {
	var names []string
	for inner := range handler.Walk(h) {
		names = append(names, fmt.Sprintf("%T", inner))
	}
	return names
}

func errorCode(err error) string {
	if code := rdf.Code(err); code != rdf.ErrCodeParseError {
		return string(code)
	}
	var perr *rdf.ParseError
	if errors.As(err, &perr) {
		return string(rdf.ErrCodeParseError)
	}
	return string(handler.Code(err))
}
