package handler

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/geoknoesis/rdf-stream/rdf"
)

// fanout dispatches every event to several handlers. With shortCircuit set
// it stops dispatching an event at the first handler that asks to stop;
// otherwise every handler sees the event and the results are and-ed.
type fanout struct {
	Base
	handlers     []Handler
	open         []bool
	shortCircuit bool
}

func checkHandlers(name string, handlers []Handler) error {
	if len(handlers) == 0 {
		return constructionError(name, "at least one inner handler is required")
	}
	for i, h := range handlers {
		if h == nil {
			return constructionError(name, fmt.Sprintf("inner handler %d is nil", i))
		}
		for j := 0; j < i; j++ {
			if sameHandler(handlers[j], h) {
				return constructionError(name, fmt.Sprintf("inner handlers %d and %d are the same instance", j, i))
			}
		}
	}
	return nil
}

// sameHandler reports whether a and b are the same handler instance.
func sameHandler(a, b Handler) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}

func newFanout(name string, handlers []Handler, shortCircuit bool) fanout {
	return fanout{
		Base:         newBase(name),
		handlers:     append([]Handler(nil), handlers...),
		open:         make([]bool, len(handlers)),
		shortCircuit: shortCircuit,
	}
}

// Inner returns the wrapped handlers in dispatch order.
func (f *fanout) Inner() []Handler { return append([]Handler(nil), f.handlers...) }

// Start starts every inner handler. If one fails, those already started are
// ended with ok=false.
func (f *fanout) Start(ctx context.Context) error {
	if err := f.Begin(); err != nil {
		return err
	}
	for i, h := range f.handlers {
		if err := h.Start(ctx); err != nil {
			err = errors.Join(err, f.abort(ctx))
			f.Release()
			return err
		}
		f.open[i] = true
	}
	return nil
}

// End ends every inner session still open, whatever happened mid-stream,
// passing the producer's ok flag unchanged.
func (f *fanout) End(ctx context.Context, ok bool) error {
	if err := f.Close(); err != nil {
		return err
	}
	defer f.Release()
	var errs []error
	for i, h := range f.handlers {
		if !f.open[i] {
			continue
		}
		f.open[i] = false
		if err := h.End(ctx, ok); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) HandleNamespace(ctx context.Context, prefix, uri string) (bool, error) {
	return f.dispatch(ctx, "namespace", func(h Handler) (bool, error) {
		return h.HandleNamespace(ctx, prefix, uri)
	})
}

func (f *fanout) HandleBaseURI(ctx context.Context, uri string) (bool, error) {
	return f.dispatch(ctx, "base", func(h Handler) (bool, error) {
		return h.HandleBaseURI(ctx, uri)
	})
}

func (f *fanout) HandleStatement(ctx context.Context, q rdf.Quad) (bool, error) {
	return f.dispatch(ctx, "statement", func(h Handler) (bool, error) {
		return h.HandleStatement(ctx, q)
	})
}

// AcceptsAll is true only if every inner handler accepts all.
func (f *fanout) AcceptsAll() bool {
	for _, h := range f.handlers {
		if !h.AcceptsAll() {
			return false
		}
	}
	return true
}

func (f *fanout) dispatch(ctx context.Context, op string, call func(Handler) (bool, error)) (bool, error) {
	if err := f.Check(op); err != nil {
		return false, err
	}
	all := true
	for i, h := range f.handlers {
		if !f.open[i] {
			return false, protocolError(f.name, op, "inner session already ended after a failure")
		}
		cont, err := call(h)
		if err != nil {
			return false, errors.Join(err, f.abort(ctx))
		}
		if !cont {
			if f.shortCircuit {
				return false, nil
			}
			all = false
		}
	}
	return all, nil
}

// abort ends every open inner session with ok=false.
func (f *fanout) abort(ctx context.Context) error {
	var errs []error
	for i, h := range f.handlers {
		if !f.open[i] {
			continue
		}
		f.open[i] = false
		if err := h.End(ctx, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Chain dispatches each event to its handlers in order and stops at the
// first one that asks to stop. Later handlers may therefore miss the event
// that ended the stream. Start and End always reach every handler.
type Chain struct {
	fanout
}

var _ Wrapper = (*Chain)(nil)

// NewChain creates a Chain. It fails with ErrConstruction given no handlers,
// a nil handler, or the same handler instance twice.
func NewChain(handlers ...Handler) (*Chain, error) {
	if err := checkHandlers("chain", handlers); err != nil {
		return nil, err
	}
	return &Chain{fanout: newFanout("chain", handlers, true)}, nil
}

// Multiplex dispatches each event to every handler regardless of what the
// others answer and continues only if all of them want to. Every handler
// sees every event up to and including the one that ended the stream.
type Multiplex struct {
	fanout
}

var _ Wrapper = (*Multiplex)(nil)

// NewMultiplex creates a Multiplex with the same validation as NewChain.
func NewMultiplex(handlers ...Handler) (*Multiplex, error) {
	if err := checkHandlers("multiplex", handlers); err != nil {
		return nil, err
	}
	return &Multiplex{fanout: newFanout("multiplex", handlers, false)}, nil
}
