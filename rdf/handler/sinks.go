package handler

import (
	"context"
	"sync/atomic"

	"github.com/geoknoesis/rdf-stream/rdf"
)

// Discard accepts and drops every statement. Use it to check that a stream
// is well formed without materialising it.
type Discard struct {
	Base
}

var _ Handler = (*Discard)(nil)

// NewDiscard returns a sink that drops every statement.
func NewDiscard() *Discard {
	return &Discard{Base: newBase("discard")}
}

func (d *Discard) Start(context.Context) error { return d.Begin() }

func (d *Discard) HandleStatement(context.Context, rdf.Quad) (bool, error) {
	if err := d.Check("statement"); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Discard) End(context.Context, bool) error { return d.Finish() }

// Counter counts statements. The count is reset by Start and may be read
// from another goroutine.
type Counter struct {
	Base
	count atomic.Int64
}

var _ Handler = (*Counter)(nil)

// NewCounter returns a statement counter.
func NewCounter() *Counter {
	return &Counter{Base: newBase("counter")}
}

func (c *Counter) Start(context.Context) error {
	if err := c.Begin(); err != nil {
		return err
	}
	c.count.Store(0)
	return nil
}

func (c *Counter) HandleStatement(context.Context, rdf.Quad) (bool, error) {
	if err := c.Check("statement"); err != nil {
		return false, err
	}
	c.count.Add(1)
	return true, nil
}

func (c *Counter) End(context.Context, bool) error { return c.Finish() }

// Count returns the number of statements seen in the current or last session.
func (c *Counter) Count() int64 { return c.count.Load() }

// Probe answers "is there at least one statement?". It asks the producer to
// stop as soon as the first statement arrives. Found may be read from
// another goroutine.
type Probe struct {
	Base
	found atomic.Bool
}

var _ Handler = (*Probe)(nil)

// NewProbe returns an existence probe.
func NewProbe() *Probe {
	return &Probe{Base: newBase("probe")}
}

func (p *Probe) Start(context.Context) error {
	if err := p.Begin(); err != nil {
		return err
	}
	p.found.Store(false)
	return nil
}

func (p *Probe) HandleStatement(context.Context, rdf.Quad) (bool, error) {
	if err := p.Check("statement"); err != nil {
		return false, err
	}
	p.found.Store(true)
	return false, nil
}

func (p *Probe) End(context.Context, bool) error { return p.Finish() }

// AcceptsAll reports false: the probe stops at the first statement.
func (p *Probe) AcceptsAll() bool { return false }

// Found reports whether a statement was seen.
func (p *Probe) Found() bool { return p.found.Load() }

// StoreCounter counts statements and the distinct graph names they belong
// to. The default graph counts as one graph name. Both counts may be read
// from another goroutine.
type StoreCounter struct {
	Base
	statements atomic.Int64
	graphCount atomic.Int64
	// only touched by the session
	graphs map[rdf.Term]struct{}
}

var _ Handler = (*StoreCounter)(nil)

// NewStoreCounter returns a counter of statements and graph names.
func NewStoreCounter() *StoreCounter {
	return &StoreCounter{Base: newBase("store-counter"), graphs: make(map[rdf.Term]struct{})}
}

func (s *StoreCounter) Start(context.Context) error {
	if err := s.Begin(); err != nil {
		return err
	}
	s.statements.Store(0)
	s.graphCount.Store(0)
	clear(s.graphs)
	return nil
}

func (s *StoreCounter) HandleStatement(_ context.Context, q rdf.Quad) (bool, error) {
	if err := s.Check("statement"); err != nil {
		return false, err
	}
	s.statements.Add(1)
	if _, seen := s.graphs[q.G]; !seen {
		s.graphs[q.G] = struct{}{}
		s.graphCount.Add(1)
	}
	return true, nil
}

func (s *StoreCounter) End(context.Context, bool) error { return s.Finish() }

// Statements returns the number of statements seen.
func (s *StoreCounter) Statements() int64 { return s.statements.Load() }

// Graphs returns the number of distinct graph names seen.
func (s *StoreCounter) Graphs() int { return int(s.graphCount.Load()) }
