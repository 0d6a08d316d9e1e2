package handler_test

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/rdf-stream/rdf"
	"github.com/geoknoesis/rdf-stream/rdf/handler"
)

func TestWindowExactness(t *testing.T) {
	tests := []struct {
		name          string
		offset, limit int64
		wantFirst     int
		wantCount     int
		wantPulled    int
	}{
		{name: "middle", offset: 2, limit: 3, wantFirst: 3, wantCount: 3, wantPulled: 6},
		{name: "zero limit", offset: 0, limit: 0, wantCount: 0, wantPulled: 1},
		{name: "open ended", offset: 7, limit: -1, wantFirst: 8, wantCount: 3, wantPulled: 10},
		{name: "past the end", offset: 20, limit: 5, wantCount: 0, wantPulled: 10},
		{name: "limit beyond input", offset: 0, limit: 50, wantFirst: 1, wantCount: 10, wantPulled: 10},
		{name: "largest limit", offset: 5, limit: math.MaxInt64 - 1, wantFirst: 6, wantCount: 5, wantPulled: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &recorder{}
			w, err := handler.NewWindow(inner, tt.offset, tt.limit)
			require.NoError(t, err)

			pulled := 0
			require.NoError(t, handler.FromQuads(context.Background(), counted(stmts(10), &pulled), w))

			require.Len(t, inner.stmts, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, stmt(tt.wantFirst), inner.stmts[0])
			}
			assert.Equal(t, tt.wantPulled, pulled)
			assert.Equal(t, []bool{true}, inner.ends)
		})
	}
}

func TestWindowResetsPerSession(t *testing.T) {
	counter := handler.NewCounter()
	w, err := handler.NewWindow(counter, 1, 2)
	require.NoError(t, err)
	for range 2 {
		require.NoError(t, handler.FromSlice(context.Background(), stmts(10), w))
		assert.EqualValues(t, 2, counter.Count())
	}
}

func TestWindowConstruction(t *testing.T) {
	_, err := handler.NewWindow(handler.NewCounter(), -1, 5)
	assert.ErrorIs(t, err, handler.ErrConstruction)

	open, err := handler.NewWindow(handler.NewCounter(), 3, -1)
	require.NoError(t, err)
	assert.True(t, open.AcceptsAll())
	bounded, err := handler.NewWindow(handler.NewCounter(), 0, 3)
	require.NoError(t, err)
	assert.False(t, bounded.AcceptsAll())
}

func TestGraphRewrite(t *testing.T) {
	inner := &recorder{}
	rw, err := handler.NewGraphRewrite(inner, g2)
	require.NoError(t, err)

	in := []rdf.Quad{stmt(1), stmt(2).WithGraph(g1)}
	require.NoError(t, handler.FromSlice(context.Background(), in, rw))
	for _, q := range inner.stmts {
		assert.Equal(t, rdf.Term(g2), q.G)
	}

	inner = &recorder{}
	toDefault, err := handler.NewGraphRewrite(inner, nil)
	require.NoError(t, err)
	require.NoError(t, handler.FromSlice(context.Background(), in, toDefault))
	for _, q := range inner.stmts {
		assert.True(t, q.InDefaultGraph())
	}
}

func TestStripStringDatatype(t *testing.T) {
	inner := &recorder{}
	strip, err := handler.NewStripStringDatatype(inner)
	require.NoError(t, err)

	typed := rdf.Quad{S: ex("s"), P: prd, O: rdf.Literal{Lexical: "v", Datatype: rdf.IRI{Value: rdf.XSDString}}}
	integer := rdf.Quad{S: ex("s"), P: prd, O: rdf.Literal{Lexical: "1", Datatype: rdf.IRI{Value: "http://www.w3.org/2001/XMLSchema#integer"}}}
	tagged := rdf.Quad{S: ex("s"), P: prd, O: rdf.Literal{Lexical: "v", Lang: "en"}}
	require.NoError(t, handler.FromSlice(context.Background(), []rdf.Quad{typed, integer, tagged}, strip))

	require.Len(t, inner.stmts, 3)
	assert.Equal(t, rdf.Literal{Lexical: "v"}, inner.stmts[0].O)
	assert.Equal(t, integer, inner.stmts[1])
	assert.Equal(t, tagged, inner.stmts[2])
}

func TestUniqueBlankNodesIsNotIdempotent(t *testing.T) {
	const doc = "_:a <http://example.org/p> \"1\" .\n_:a <http://example.org/q> \"2\" .\n"
	ctx := context.Background()

	plain := &recorder{}
	require.NoError(t, handler.FromReader(ctx, strings.NewReader(doc), rdf.FormatNTriples, plain))
	require.Len(t, plain.stmts, 2)
	assert.Equal(t, plain.stmts[0].S, plain.stmts[1].S, "without the decorator a label is one node")

	inner := &recorder{}
	unique, err := handler.NewUniqueBlankNodes(inner)
	require.NoError(t, err)

	require.NoError(t, handler.FromReader(ctx, strings.NewReader(doc), rdf.FormatNTriples, unique))
	first := inner.stmts
	require.NoError(t, handler.FromReader(ctx, strings.NewReader(doc), rdf.FormatNTriples, unique))
	second := inner.stmts

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.NotEqual(t, first[0].S, first[1].S, "every label occurrence is a fresh node")
	assert.NotEqual(t, first[0].S, second[0].S, "parsing twice yields different nodes")
	assert.NotEqual(t, rdf.BlankNode{ID: "a"}, first[0].S)
}

func TestUniqueFactoryWrapsOnce(t *testing.T) {
	inner, err := handler.NewUniqueBlankNodes(handler.NewCounter())
	require.NoError(t, err)
	outer, err := handler.NewUniqueBlankNodes(inner)
	require.NoError(t, err)

	f := handler.FactoryFor(outer, rdf.NewSequenceFactory("u"))
	assert.Equal(t, rdf.BlankNode{ID: "u1"}, f.NamedBlankNode("x"))
	assert.Equal(t, rdf.BlankNode{ID: "u2"}, f.NamedBlankNode("x"))
	assert.Equal(t, rdf.IRI{Value: "http://example.org/"}, f.IRI("http://example.org/"))

	plain := handler.FactoryFor(handler.NewCounter(), nil)
	assert.Equal(t, rdf.BlankNode{ID: "x"}, plain.NamedBlankNode("x"))
}

func TestCancellable(t *testing.T) {
	ctx := context.Background()

	t.Run("before start", func(t *testing.T) {
		inner := &recorder{}
		c, err := handler.NewCancellable(inner)
		require.NoError(t, err)
		c.Cancel()
		assert.True(t, c.Cancelled())

		pulled := 0
		require.NoError(t, handler.FromQuads(ctx, counted(stmts(5), &pulled), c))
		assert.Empty(t, inner.stmts)
		assert.Equal(t, 1, pulled)
		assert.Equal(t, []bool{true}, inner.ends)
		assert.False(t, c.Cancelled(), "the request is cleared when the session ends")

		require.NoError(t, handler.FromSlice(ctx, stmts(5), c))
		assert.Len(t, inner.stmts, 5)
	})

	t.Run("mid stream", func(t *testing.T) {
		inner := &recorder{}
		c, err := handler.NewCancellable(inner)
		require.NoError(t, err)
		seq := func(yield func(rdf.Quad) bool) {
			for i, q := range stmts(5) {
				if i == 2 {
					c.Cancel()
				}
				if !yield(q) {
					return
				}
			}
		}
		require.NoError(t, handler.FromQuads(ctx, seq, c))
		assert.Len(t, inner.stmts, 2)
	})

	t.Run("end while idle keeps request", func(t *testing.T) {
		c, err := handler.NewCancellable(&recorder{})
		require.NoError(t, err)
		c.Cancel()
		assert.ErrorIs(t, c.End(ctx, true), handler.ErrProtocol)
		assert.True(t, c.Cancelled())
	})
}

func TestDecoratorEndsFailingInnerOnce(t *testing.T) {
	inner := &recorder{failAt: 2}
	rw, err := handler.NewGraphRewrite(inner, g1)
	require.NoError(t, err)

	err = handler.FromSlice(context.Background(), stmts(3), rw)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, []bool{false}, inner.ends)
	assert.Equal(t, handler.Idle, rw.State())
}

func TestDecoratorStartFailure(t *testing.T) {
	s, err := handler.NewStripStringDatatype(&recorder{failStart: true})
	require.NoError(t, err)
	require.ErrorIs(t, s.Start(context.Background()), errBoom)
	assert.Equal(t, handler.Idle, s.State())
}
