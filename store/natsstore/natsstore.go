// Package natsstore is a store.Provider backed by a NATS JetStream key/value
// bucket.
//
// Every graph is one key whose value is the N-Triples text of the graph.
// Update is a compare-and-set on the key's revision and is retried when a
// concurrent writer wins the race.
package natsstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/geoknoesis/rdf-stream/rdf"
	"github.com/geoknoesis/rdf-stream/store"
)

// DefaultGraphKey is the key holding the default graph.
const DefaultGraphKey = "graph.default"

var (
	// ErrConflict is returned when every compare-and-set attempt lost.
	ErrConflict = errors.New("natsstore: too many concurrent updates")
	// ErrValueTooLarge is returned when a graph outgrows the value size limit.
	ErrValueTooLarge = errors.New("natsstore: graph exceeds maximum value size")
)

// Bucket is the subset of jetstream.KeyValue used by Store.
type Bucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Create(ctx context.Context, key string, value []byte) (uint64, error)
	Update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error)
}

// Options tunes the compare-and-set loop.
type Options struct {
	MaxRetries   int           // additional attempts after a conflict
	RetryDelay   time.Duration // first backoff, doubled per attempt
	MaxValueSize int           // bytes; non-positive disables the check
	Timeout      time.Duration // per Update; zero disables
}

// DefaultOptions returns the options used by New.
func DefaultOptions() Options {
	return Options{
		MaxRetries:   10,
		RetryDelay:   10 * time.Millisecond,
		MaxValueSize: 1024 * 1024,
		Timeout:      5 * time.Second,
	}
}

// Store keeps graphs in a key/value bucket.
type Store struct {
	bucket   Bucket
	options  Options
	factory  rdf.NodeFactory
	logger   *slog.Logger
	readOnly bool
}

var _ store.Provider = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithOptions replaces the retry and size options.
func WithOptions(o Options) Option {
	return func(s *Store) {
		s.options = o
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

// New creates a Store over bucket.
func New(bucket Bucket, opts ...Option) (*Store, error) {
	if bucket == nil {
		return nil, errors.New("natsstore: nil bucket")
	}
	s := &Store{
		bucket:  bucket,
		options: DefaultOptions(),
		factory: rdf.NewFactory(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "natsstore")
	return s, nil
}

// Connect dials url, opens or creates the named bucket and returns a Store
// over it together with a function closing the connection.
func Connect(ctx context.Context, url, bucket string, opts ...Option) (*Store, func(), error) {
	nc, err := nats.Connect(url, nats.Name("rdfpipe"))
	if err != nil {
		return nil, nil, fmt.Errorf("natsstore: connect %s: %w", url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("natsstore: jetstream: %w", err)
	}
	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err = js.KeyValue(ctx, bucket)
		}
	}
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("natsstore: bucket %s: %w", bucket, err)
	}
	s, err := New(kv, opts...)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	return s, nc.Close, nil
}

func (s *Store) SupportsUpdate() bool { return true }

func (s *Store) ReadOnly() bool { return s.readOnly }

// Key returns the bucket key for graph.
func Key(graph rdf.Term) string {
	if graph == nil {
		return DefaultGraphKey
	}
	return "graph." + base64.RawURLEncoding.EncodeToString([]byte(store.GraphKey(graph)))
}

// Update applies the delta with compare-and-set, retrying on conflicts.
func (s *Store) Update(ctx context.Context, graph rdf.Term, additions, removals []rdf.Quad) error {
	if err := store.CheckWritable(s); err != nil {
		return err
	}
	if s.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.Timeout)
		defer cancel()
	}
	key := Key(graph)
	additions = store.RelabelBlankNodes(additions, s.factory)

	delay := s.options.RetryDelay
	for attempt := 0; ; attempt++ {
		err := s.apply(ctx, key, additions, removals)
		if err == nil {
			s.logger.Debug("update applied", "key", key, "added", len(additions), "removed", len(removals), "attempts", attempt+1)
			return nil
		}
		if !isConflict(err) {
			return fmt.Errorf("natsstore: update %s: %w", key, err)
		}
		if attempt >= s.options.MaxRetries {
			return fmt.Errorf("natsstore: update %s: %w", key, ErrConflict)
		}
		s.logger.Debug("update conflict, retrying", "key", key, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (s *Store) apply(ctx context.Context, key string, additions, removals []rdf.Quad) error {
	current, revision, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	for _, q := range removals {
		current.Remove(q.WithGraph(nil))
	}
	for _, q := range additions {
		current.Add(q.WithGraph(nil))
	}
	value, err := encode(current)
	if err != nil {
		return err
	}
	if s.options.MaxValueSize > 0 && len(value) > s.options.MaxValueSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrValueTooLarge, len(value), s.options.MaxValueSize)
	}
	if revision == 0 {
		_, err = s.bucket.Create(ctx, key, value)
		return err
	}
	_, err = s.bucket.Update(ctx, key, value, revision)
	return err
}

// load reads a graph and its revision. A missing key is an empty graph at
// revision zero.
func (s *Store) load(ctx context.Context, key string) (*rdf.MemGraph, uint64, error) {
	entry, err := s.bucket.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return rdf.NewGraph(), 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	g, err := decode(entry.Value())
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", key, err)
	}
	return g, entry.Revision(), nil
}

// Quads returns the statements stored for graph.
func (s *Store) Quads(ctx context.Context, graph rdf.Term) ([]rdf.Quad, error) {
	g, _, err := s.load(ctx, Key(graph))
	if err != nil {
		return nil, fmt.Errorf("natsstore: read %s: %w", Key(graph), err)
	}
	out := slices.Collect(g.Quads())
	for i := range out {
		out[i] = out[i].WithGraph(graph)
	}
	return out, nil
}

func encode(g *rdf.MemGraph) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := rdf.NewEncoder(&buf, rdf.FormatNTriples)
	if err != nil {
		return nil, err
	}
	for q := range g.Quads() {
		if err := enc.Write(q); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(value []byte) (*rdf.MemGraph, error) {
	dec, err := rdf.NewDecoder(bytes.NewReader(value), rdf.FormatNTriples, rdf.OptMaxLineBytes(0))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	g := rdf.NewGraph()
	for {
		q, err := dec.Next()
		if err == io.EOF {
			return g, nil
		}
		if err != nil {
			return nil, err
		}
		g.Add(q)
	}
}

func isConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence {
		return true
	}
	return strings.Contains(err.Error(), "wrong last sequence")
}
