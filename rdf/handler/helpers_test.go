package handler_test

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/geoknoesis/rdf-stream/rdf"
)

var errBoom = errors.New("boom")

func ex(s string) rdf.IRI { return rdf.IRI{Value: "http://example.org/" + s} }

var (
	g1  = ex("g1")
	g2  = ex("g2")
	prd = ex("p")
)

func stmt(i int) rdf.Quad {
	return rdf.Quad{S: ex(fmt.Sprintf("s%d", i)), P: prd, O: rdf.Literal{Lexical: fmt.Sprint(i)}}
}

func stmts(n int) []rdf.Quad {
	out := make([]rdf.Quad, n)
	for i := range out {
		out[i] = stmt(i + 1)
	}
	return out
}

// counted yields quads and records how many the consumer pulled.
func counted(quads []rdf.Quad, pulled *int) iter.Seq[rdf.Quad] {
	return func(yield func(rdf.Quad) bool) {
		for _, q := range quads {
			*pulled++
			if !yield(q) {
				return
			}
		}
	}
}

// recorder is a scripted handler that remembers what it was given.
type recorder struct {
	stopAt    int // 1-based statement answered with false
	failAt    int // 1-based statement answered with errBoom
	failStart bool

	active     bool
	starts     int
	namespaces []string
	bases      []string
	stmts      []rdf.Quad
	ends       []bool
}

func (r *recorder) Start(context.Context) error {
	if r.failStart {
		return errBoom
	}
	if r.active {
		return errors.New("recorder: already active")
	}
	r.active = true
	r.starts++
	r.stmts = nil
	return nil
}

func (r *recorder) HandleNamespace(_ context.Context, prefix, uri string) (bool, error) {
	if !r.active {
		return false, errors.New("recorder: not active")
	}
	r.namespaces = append(r.namespaces, prefix+"="+uri)
	return true, nil
}

func (r *recorder) HandleBaseURI(_ context.Context, uri string) (bool, error) {
	if !r.active {
		return false, errors.New("recorder: not active")
	}
	r.bases = append(r.bases, uri)
	return true, nil
}

func (r *recorder) HandleStatement(_ context.Context, q rdf.Quad) (bool, error) {
	if !r.active {
		return false, errors.New("recorder: not active")
	}
	r.stmts = append(r.stmts, q)
	n := len(r.stmts)
	if n == r.failAt {
		return false, errBoom
	}
	if n == r.stopAt {
		return false, nil
	}
	return true, nil
}

func (r *recorder) End(_ context.Context, ok bool) error {
	if !r.active {
		return errors.New("recorder: not active")
	}
	r.active = false
	r.ends = append(r.ends, ok)
	return nil
}

func (r *recorder) AcceptsAll() bool { return r.stopAt == 0 }
