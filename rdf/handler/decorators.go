package handler

import (
	"context"
	"sync/atomic"

	"github.com/geoknoesis/rdf-stream/rdf"
)

// GraphRewrite moves every statement into a fixed graph before forwarding
// it. A nil graph moves statements into the default graph.
type GraphRewrite struct {
	decorator
	graph rdf.Term
}

var _ Wrapper = (*GraphRewrite)(nil)

// NewGraphRewrite wraps inner so that every statement lands in graph.
func NewGraphRewrite(inner Handler, graph rdf.Term) (*GraphRewrite, error) {
	if err := checkInner("graph-rewrite", inner); err != nil {
		return nil, err
	}
	return &GraphRewrite{decorator: wrap("graph-rewrite", inner), graph: graph}, nil
}

func (g *GraphRewrite) HandleStatement(ctx context.Context, q rdf.Quad) (bool, error) {
	return g.forward(ctx, q.WithGraph(g.graph))
}

// UniqueBlankNodes makes producers allocate a fresh blank node for every
// labelled blank node they read, so that reusing a label never joins two
// nodes. It suits converting non-RDF sources; it is wrong for re-reading RDF
// documents, where a repeated label means the same node.
//
// The decorator forwards statements unchanged; its effect is on the node
// factory returned by FactoryFor.
type UniqueBlankNodes struct {
	decorator
}

var (
	_ Wrapper         = (*UniqueBlankNodes)(nil)
	_ FactoryProvider = (*UniqueBlankNodes)(nil)
)

// NewUniqueBlankNodes wraps inner with blank node uniqueing.
func NewUniqueBlankNodes(inner Handler) (*UniqueBlankNodes, error) {
	if err := checkInner("unique-blank-nodes", inner); err != nil {
		return nil, err
	}
	return &UniqueBlankNodes{decorator: wrap("unique-blank-nodes", inner)}, nil
}

// NodeFactory returns base with labelled blank node creation redirected to
// fresh blank node creation.
func (u *UniqueBlankNodes) NodeFactory(base rdf.NodeFactory) rdf.NodeFactory {
	if _, already := base.(uniqueFactory); already {
		return base
	}
	return uniqueFactory{NodeFactory: base}
}

type uniqueFactory struct {
	rdf.NodeFactory
}

func (f uniqueFactory) NamedBlankNode(string) rdf.BlankNode {
	return f.BlankNode()
}

// StripStringDatatype rewrites literals typed xsd:string to plain literals.
type StripStringDatatype struct {
	decorator
}

var _ Wrapper = (*StripStringDatatype)(nil)

// NewStripStringDatatype wraps inner so that xsd:string literals arrive untyped.
func NewStripStringDatatype(inner Handler) (*StripStringDatatype, error) {
	if err := checkInner("strip-string-datatype", inner); err != nil {
		return nil, err
	}
	return &StripStringDatatype{decorator: wrap("strip-string-datatype", inner)}, nil
}

func (s *StripStringDatatype) HandleStatement(ctx context.Context, q rdf.Quad) (bool, error) {
	if lit, ok := q.O.(rdf.Literal); ok && lit.HasRedundantDatatype() {
		q.O = rdf.Literal{Lexical: lit.Lexical}
	}
	return s.forward(ctx, q)
}

// Window forwards only statements offset+1 through offset+limit (1-based)
// and asks the producer to stop once the window has passed. A negative
// limit leaves the window open ended.
type Window struct {
	decorator
	offset int64
	limit  int64
	seen   int64
}

var _ Wrapper = (*Window)(nil)

// NewWindow wraps inner with an offset/limit window. offset must not be negative.
func NewWindow(inner Handler, offset, limit int64) (*Window, error) {
	if err := checkInner("window", inner); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, constructionError("window", "negative offset")
	}
	return &Window{decorator: wrap("window", inner), offset: offset, limit: limit}, nil
}

func (w *Window) Start(ctx context.Context) error {
	if err := w.decorator.Start(ctx); err != nil {
		return err
	}
	w.seen = 0
	return nil
}

func (w *Window) HandleStatement(ctx context.Context, q rdf.Quad) (bool, error) {
	if err := w.ready("statement"); err != nil {
		return false, err
	}
	if w.limit == 0 {
		return false, nil
	}
	w.seen++
	if w.limit > 0 && w.seen-w.offset > w.limit {
		return false, nil
	}
	if w.seen <= w.offset {
		return true, nil
	}
	return w.forward(ctx, q)
}

// AcceptsAll is true only for an open ended window over an accepting handler.
func (w *Window) AcceptsAll() bool {
	return w.limit < 0 && w.inner.AcceptsAll()
}

// Cancellable stops forwarding once Cancel has been called. Cancel may be
// called from any goroutine, including before Start: the request is kept
// until the session ends and is cleared by End.
type Cancellable struct {
	decorator
	cancelled atomic.Bool
}

var _ Wrapper = (*Cancellable)(nil)

// NewCancellable wraps inner so that it can be stopped with Cancel.
func NewCancellable(inner Handler) (*Cancellable, error) {
	if err := checkInner("cancellable", inner); err != nil {
		return nil, err
	}
	return &Cancellable{decorator: wrap("cancellable", inner)}, nil
}

// Cancel asks the current or next session to stop.
func (c *Cancellable) Cancel() { c.cancelled.Store(true) }

// Cancelled reports whether a cancel request is pending.
func (c *Cancellable) Cancelled() bool { return c.cancelled.Load() }

func (c *Cancellable) HandleNamespace(ctx context.Context, prefix, uri string) (bool, error) {
	if err := c.Check("namespace"); err != nil {
		return false, err
	}
	if c.cancelled.Load() {
		return false, nil
	}
	return c.decorator.HandleNamespace(ctx, prefix, uri)
}

func (c *Cancellable) HandleBaseURI(ctx context.Context, uri string) (bool, error) {
	if err := c.Check("base"); err != nil {
		return false, err
	}
	if c.cancelled.Load() {
		return false, nil
	}
	return c.decorator.HandleBaseURI(ctx, uri)
}

func (c *Cancellable) HandleStatement(ctx context.Context, q rdf.Quad) (bool, error) {
	if err := c.Check("statement"); err != nil {
		return false, err
	}
	if c.cancelled.Load() {
		return false, nil
	}
	return c.forward(ctx, q)
}

func (c *Cancellable) End(ctx context.Context, ok bool) error {
	active := c.Active()
	err := c.decorator.End(ctx, ok)
	if active {
		c.cancelled.Store(false)
	}
	return err
}
