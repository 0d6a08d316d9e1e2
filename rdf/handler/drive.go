package handler

import (
	"cmp"
	"context"
	"errors"
	"io"
	"iter"
	"maps"
	"slices"

	"github.com/geoknoesis/rdf-stream/rdf"
)

// emitFunc produces the events of one session. It returns false to report
// that the handler asked to stop.
type emitFunc func(ctx context.Context, h Handler) (bool, error)

// drive runs one session: Start, the events produced by emit, then End.
// A stop request ends the session successfully. Any failure, including a
// cancelled context, ends it with ok=false and is returned joined with
// whatever End reports.
func drive(ctx context.Context, h Handler, emit emitFunc) error {
	if h == nil {
		return constructionError("driver", "nil handler")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := h.Start(ctx); err != nil {
		return err
	}
	_, err := emit(ctx, h)
	if errors.Is(err, ErrStopRequested) {
		err = nil
	}
	if err != nil {
		return errors.Join(err, h.End(ctx, false))
	}
	return h.End(ctx, true)
}

// FromGraph replays g into h: its base IRI, its namespaces ordered by
// prefix, then its statements.
func FromGraph(ctx context.Context, g rdf.Graph, h Handler) error {
	if g == nil {
		return constructionError("driver", "nil graph")
	}
	return drive(ctx, h, func(ctx context.Context, h Handler) (bool, error) {
		if base := g.BaseURI(); base != "" {
			cont, err := h.HandleBaseURI(ctx, base)
			if err != nil || !cont {
				return cont, err
			}
		}
		namespaces := g.Namespaces()
		for _, prefix := range slices.SortedFunc(maps.Keys(namespaces), cmp.Compare[string]) {
			cont, err := h.HandleNamespace(ctx, prefix, namespaces[prefix])
			if err != nil || !cont {
				return cont, err
			}
		}
		return emitQuads(ctx, h, g.Quads())
	})
}

// FromQuads feeds the statements of seq into h as one session.
func FromQuads(ctx context.Context, seq iter.Seq[rdf.Quad], h Handler) error {
	return drive(ctx, h, func(ctx context.Context, h Handler) (bool, error) {
		return emitQuads(ctx, h, seq)
	})
}

// FromSlice feeds quads into h as one session.
func FromSlice(ctx context.Context, quads []rdf.Quad, h Handler) error {
	return FromQuads(ctx, slices.Values(quads), h)
}

func emitQuads(ctx context.Context, h Handler, seq iter.Seq[rdf.Quad]) (bool, error) {
	if seq == nil {
		return true, nil
	}
	for q := range seq {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		cont, err := h.HandleStatement(ctx, q)
		if err != nil || !cont {
			return cont, err
		}
	}
	return true, nil
}

// FromReader decodes r and feeds the statements into h as one session.
// Blank nodes are created through the factory the pipeline asks for, so a
// UniqueBlankNodes decorator anywhere in h takes effect during parsing.
// An rdf.OptFactory among opts becomes the base that the pipeline wraps.
func FromReader(ctx context.Context, r io.Reader, format rdf.Format, h Handler, opts ...rdf.Option) error {
	if r == nil {
		return constructionError("driver", "nil reader")
	}
	var base rdf.Options
	for _, opt := range opts {
		opt(&base)
	}
	opts = append(opts, rdf.OptFactory(FactoryFor(h, base.Factory)))
	return drive(ctx, h, func(ctx context.Context, h Handler) (bool, error) {
		err := rdf.Parse(ctx, r, format, func(q rdf.Quad) error {
			cont, err := h.HandleStatement(ctx, q)
			if err != nil {
				return err
			}
			if !cont {
				return ErrStopRequested
			}
			return nil
		}, opts...)
		return err == nil, err
	})
}
