package handler

import (
	"context"
	"fmt"

	"github.com/geoknoesis/rdf-stream/rdf"
)

// Writer passes each statement straight to an encoder. The encoder is
// flushed when the session ends successfully and, optionally, every n
// statements. Writer never closes the encoder; its owner does.
type Writer struct {
	Base
	enc        rdf.Encoder
	flushEvery int
	pending    int
}

var _ Handler = (*Writer)(nil)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithFlushEvery flushes the encoder after every n statements. Zero, the
// default, flushes only at End.
func WithFlushEvery(n int) WriterOption {
	return func(w *Writer) {
		w.flushEvery = n
	}
}

// NewWriter creates a Writer around enc.
func NewWriter(enc rdf.Encoder, opts ...WriterOption) (*Writer, error) {
	if enc == nil {
		return nil, constructionError("writer", "nil encoder")
	}
	w := &Writer{Base: newBase("writer"), enc: enc}
	for _, opt := range opts {
		opt(w)
	}
	if w.flushEvery < 0 {
		return nil, constructionError("writer", fmt.Sprintf("flush interval must not be negative, got %d", w.flushEvery))
	}
	return w, nil
}

func (w *Writer) Start(context.Context) error {
	if err := w.Begin(); err != nil {
		return err
	}
	w.pending = 0
	return nil
}

func (w *Writer) HandleStatement(_ context.Context, q rdf.Quad) (bool, error) {
	if err := w.Check("statement"); err != nil {
		return false, err
	}
	if err := w.enc.Write(q); err != nil {
		return false, &Error{Handler: "writer", Op: "write", Err: err}
	}
	w.pending++
	if w.flushEvery > 0 && w.pending >= w.flushEvery {
		w.pending = 0
		if err := w.enc.Flush(); err != nil {
			return false, &Error{Handler: "writer", Op: "flush", Err: err}
		}
	}
	return true, nil
}

// End flushes the encoder unless the session was aborted.
func (w *Writer) End(_ context.Context, ok bool) error {
	if err := w.Close(); err != nil {
		return err
	}
	defer w.Release()
	if !ok {
		return nil
	}
	if err := w.enc.Flush(); err != nil {
		return &Error{Handler: "writer", Op: "flush", Err: err}
	}
	return nil
}
