package handler

import (
	"context"
	"iter"

	"github.com/geoknoesis/rdf-stream/rdf"
)

// Handler receives the structural events of one session at a time:
//
//	Start → (HandleNamespace | HandleBaseURI)* → HandleStatement* → End
//
// The boolean returned by the Handle methods is the continue signal: false
// asks the producer to stop emitting events and call End(ctx, true). A
// non-nil error is a failure; the producer must call End(ctx, false).
// Early termination is success, not failure.
type Handler interface {
	// Start opens a session. It fails with ErrProtocol if one is already open.
	Start(ctx context.Context) error
	// HandleNamespace receives a prefix declaration.
	HandleNamespace(ctx context.Context, prefix, uri string) (bool, error)
	// HandleBaseURI receives the base IRI of the stream.
	HandleBaseURI(ctx context.Context, uri string) (bool, error)
	// HandleStatement receives one statement.
	HandleStatement(ctx context.Context, q rdf.Quad) (bool, error)
	// End closes the session; ok is false when the session was aborted.
	// After End the handler may be started again.
	End(ctx context.Context, ok bool) error
	// AcceptsAll reports whether the handler never asks to stop early.
	AcceptsAll() bool
}

// Wrapper is implemented by decorators and combinators.
type Wrapper interface {
	Handler
	// Inner returns the wrapped handlers in dispatch order.
	Inner() []Handler
}

// FactoryProvider is implemented by handlers that need producers to create
// nodes in a particular way.
type FactoryProvider interface {
	// NodeFactory returns the factory a producer should use instead of base.
	NodeFactory(base rdf.NodeFactory) rdf.NodeFactory
}

// Walk iterates over h and every handler wrapped beneath it, depth first.
func Walk(h Handler) iter.Seq[Handler] {
	return func(yield func(Handler) bool) {
		walk(h, yield)
	}
}

func walk(h Handler, yield func(Handler) bool) bool {
	if h == nil {
		return true
	}
	if !yield(h) {
		return false
	}
	if w, ok := h.(Wrapper); ok {
		for _, inner := range w.Inner() {
			if !walk(inner, yield) {
				return false
			}
		}
	}
	return true
}

// Find returns the first handler in the pipeline rooted at h that has type T.
func Find[T any](h Handler) (T, bool) {
	for candidate := range Walk(h) {
		if t, ok := candidate.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// FactoryFor returns the node factory a producer feeding h should use.
// Every FactoryProvider in the pipeline gets a chance to wrap base.
func FactoryFor(h Handler, base rdf.NodeFactory) rdf.NodeFactory {
	if base == nil {
		base = rdf.NewFactory()
	}
	for candidate := range Walk(h) {
		if p, ok := candidate.(FactoryProvider); ok {
			base = p.NodeFactory(base)
		}
	}
	return base
}
