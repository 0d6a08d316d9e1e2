package rdf

import (
	"context"
	"io"
)

const (
	DefaultMaxLineBytes = 1 << 20
)

// Decoder streams RDF statements from an input.
type Decoder interface {
	Next() (Quad, error)
	Close() error
}

// Encoder streams RDF statements to an output.
// For triple-only formats, the graph (G) field is ignored.
type Encoder interface {
	Write(Quad) error
	Flush() error
	Close() error
}

// QuadHandler processes quads in push mode.
type QuadHandler func(Quad) error

// Option configures decoder behavior.
type Option func(*Options)

// Options configures decoder behavior.
type Options struct {
	// Context for cancellation and timeouts.
	Context context.Context
	// Factory creates blank nodes, IRIs and literals for decoded statements.
	Factory NodeFactory
	// MaxLineBytes limits a single input line. Non-positive disables the limit.
	MaxLineBytes int
	// MaxQuads limits the number of decoded statements. Non-positive disables the limit.
	MaxQuads int64
}

// OptContext sets the context for cancellation and timeouts.
func OptContext(ctx context.Context) Option {
	return func(opts *Options) {
		opts.Context = ctx
	}
}

// OptFactory sets the node factory used while decoding.
func OptFactory(f NodeFactory) Option {
	return func(opts *Options) {
		opts.Factory = f
	}
}

// OptMaxLineBytes sets the maximum line size limit.
func OptMaxLineBytes(maxBytes int) Option {
	return func(opts *Options) {
		opts.MaxLineBytes = maxBytes
	}
}

// OptMaxQuads sets the maximum number of statements to decode.
func OptMaxQuads(maxQuads int64) Option {
	return func(opts *Options) {
		opts.MaxQuads = maxQuads
	}
}

func defaultOptions() Options {
	return Options{
		Context:      context.Background(),
		Factory:      NewFactory(),
		MaxLineBytes: DefaultMaxLineBytes,
	}
}

// NewDecoder creates a decoder for the specified format.
func NewDecoder(r io.Reader, format Format, opts ...Option) (Decoder, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Factory == nil {
		options.Factory = NewFactory()
	}
	if options.Context == nil {
		options.Context = context.Background()
	}
	switch format {
	case FormatNTriples, FormatNQuads:
		return newNTDecoder(r, format, options), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// NewEncoder creates an encoder for the specified format.
func NewEncoder(w io.Writer, format Format) (Encoder, error) {
	switch format {
	case FormatNTriples, FormatNQuads:
		return newNTEncoder(w, format), nil
	case FormatJSONLD:
		return NewJSONLDEncoder(w, JSONLDOptions{}), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// Parse decodes RDF from the reader and streams statements to the handler.
// A handler error stops decoding and is returned unchanged.
// If ctx is nil, context.Background() is used as the default.
func Parse(ctx context.Context, r io.Reader, format Format, handler QuadHandler, opts ...Option) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dec, err := NewDecoder(r, format, append(opts, OptContext(ctx))...)
	if err != nil {
		return err
	}
	defer dec.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		q, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handler(q); err != nil {
			return err
		}
	}
}
