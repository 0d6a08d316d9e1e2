package handler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/rdf-stream/rdf/handler"
)

func TestChainStopsAtFirstStop(t *testing.T) {
	a, b, c := &recorder{stopAt: 2}, &recorder{}, &recorder{}
	chain, err := handler.NewChain(a, b, c)
	require.NoError(t, err)

	require.NoError(t, handler.FromSlice(context.Background(), stmts(5), chain))

	assert.Len(t, a.stmts, 2)
	assert.Len(t, b.stmts, 1, "the stopping statement does not reach later handlers")
	assert.Len(t, c.stmts, 1)
	for _, r := range []*recorder{a, b, c} {
		assert.Equal(t, []bool{true}, r.ends)
	}
}

func TestMultiplexDeliversToAll(t *testing.T) {
	a, b, c := &recorder{stopAt: 2}, &recorder{}, &recorder{}
	mux, err := handler.NewMultiplex(a, b, c)
	require.NoError(t, err)

	require.NoError(t, handler.FromSlice(context.Background(), stmts(5), mux))

	assert.Len(t, a.stmts, 2)
	assert.Len(t, b.stmts, 2, "every handler sees the stopping statement")
	assert.Len(t, c.stmts, 2)
	for _, r := range []*recorder{a, b, c} {
		assert.Equal(t, []bool{true}, r.ends)
	}
}

func TestFanoutForwardsNamespaces(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	chain, err := handler.NewChain(a, b)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, chain.Start(ctx))
	cont, err := chain.HandleNamespace(ctx, "ex", "http://example.org/")
	require.NoError(t, err)
	assert.True(t, cont)
	cont, err = chain.HandleBaseURI(ctx, "http://example.org/base")
	require.NoError(t, err)
	assert.True(t, cont)
	require.NoError(t, chain.End(ctx, true))

	for _, r := range []*recorder{a, b} {
		assert.Equal(t, []string{"ex=http://example.org/"}, r.namespaces)
		assert.Equal(t, []string{"http://example.org/base"}, r.bases)
	}
}

func TestFanoutConstruction(t *testing.T) {
	a := &recorder{}

	_, err := handler.NewChain()
	assert.ErrorIs(t, err, handler.ErrConstruction)
	_, err = handler.NewMultiplex(a, a)
	assert.ErrorIs(t, err, handler.ErrConstruction, "same instance twice")
	_, err = handler.NewChain(a, nil)
	assert.ErrorIs(t, err, handler.ErrConstruction)

	counter := handler.NewCounter()
	window, err := handler.NewWindow(counter, 0, 1)
	require.NoError(t, err)
	_, err = handler.NewMultiplex(window, handler.NewCounter())
	assert.NoError(t, err, "distinct instances of one type are fine")
}

func TestFanoutStartFailureEndsStarted(t *testing.T) {
	a, b, c := &recorder{}, &recorder{failStart: true}, &recorder{}
	mux, err := handler.NewMultiplex(a, b, c)
	require.NoError(t, err)

	err = mux.Start(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, []bool{false}, a.ends)
	assert.Zero(t, c.starts)
	assert.Equal(t, handler.Idle, mux.State())
}

func TestFanoutInnerFailureEndsAllOnce(t *testing.T) {
	a, b, c := &recorder{}, &recorder{failAt: 2}, &recorder{}
	mux, err := handler.NewMultiplex(a, b, c)
	require.NoError(t, err)

	err = handler.FromSlice(context.Background(), stmts(5), mux)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, handler.ErrCodeUnderlyingFailure, handler.Code(err))

	for _, r := range []*recorder{a, b, c} {
		assert.Equal(t, []bool{false}, r.ends, "each inner session is ended exactly once")
	}
	assert.Len(t, c.stmts, 1, "dispatch stops at the failing handler")
	assert.Equal(t, handler.Idle, mux.State())
}

func TestFanoutAcceptsAll(t *testing.T) {
	chain, err := handler.NewChain(handler.NewCounter(), handler.NewDiscard())
	require.NoError(t, err)
	assert.True(t, chain.AcceptsAll())

	chain, err = handler.NewChain(handler.NewCounter(), handler.NewProbe())
	require.NoError(t, err)
	assert.False(t, chain.AcceptsAll())
	assert.Len(t, chain.Inner(), 2)
}
