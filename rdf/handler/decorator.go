package handler

import (
	"context"
	"errors"

	"github.com/geoknoesis/rdf-stream/rdf"
)

// decorator holds the plumbing shared by single-inner-handler wrappers:
// guarded Start/End forwarding and ending the inner session when it fails.
type decorator struct {
	Base
	inner Handler
	// open is true while this decorator owns an inner session that has not
	// been ended yet.
	open bool
}

func checkInner(name string, inner Handler) error {
	if inner == nil {
		return constructionError(name, "nil inner handler")
	}
	return nil
}

func wrap(name string, inner Handler) decorator {
	return decorator{Base: newBase(name), inner: inner}
}

// Inner returns the wrapped handler.
func (d *decorator) Inner() []Handler { return []Handler{d.inner} }

func (d *decorator) Start(ctx context.Context) error {
	if err := d.Begin(); err != nil {
		return err
	}
	if err := d.inner.Start(ctx); err != nil {
		d.Release()
		return err
	}
	d.open = true
	return nil
}

func (d *decorator) End(ctx context.Context, ok bool) error {
	if err := d.Close(); err != nil {
		return err
	}
	defer d.Release()
	if !d.open {
		return nil
	}
	d.open = false
	return d.inner.End(ctx, ok)
}

func (d *decorator) HandleNamespace(ctx context.Context, prefix, uri string) (bool, error) {
	if err := d.ready("namespace"); err != nil {
		return false, err
	}
	return d.result(ctx)(d.inner.HandleNamespace(ctx, prefix, uri))
}

func (d *decorator) HandleBaseURI(ctx context.Context, uri string) (bool, error) {
	if err := d.ready("base"); err != nil {
		return false, err
	}
	return d.result(ctx)(d.inner.HandleBaseURI(ctx, uri))
}

func (d *decorator) HandleStatement(ctx context.Context, q rdf.Quad) (bool, error) {
	return d.forward(ctx, q)
}

func (d *decorator) AcceptsAll() bool { return d.inner.AcceptsAll() }

// ready checks the session and that the inner session is still open.
func (d *decorator) ready(op string) error {
	if err := d.Check(op); err != nil {
		return err
	}
	if !d.open {
		return protocolError(d.name, op, "inner session already ended after a failure")
	}
	return nil
}

func (d *decorator) forward(ctx context.Context, q rdf.Quad) (bool, error) {
	if err := d.ready("statement"); err != nil {
		return false, err
	}
	return d.result(ctx)(d.inner.HandleStatement(ctx, q))
}

// result passes an inner outcome through, ending the inner session with
// ok=false first if the inner handler failed.
func (d *decorator) result(ctx context.Context) func(bool, error) (bool, error) {
	return func(cont bool, err error) (bool, error) {
		if err == nil {
			return cont, nil
		}
		if d.open {
			d.open = false
			if endErr := d.inner.End(ctx, false); endErr != nil {
				err = errors.Join(err, endErr)
			}
		}
		return false, err
	}
}
