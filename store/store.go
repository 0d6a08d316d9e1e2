// Package store defines the storage provider boundary used by the
// store-writing handlers.
//
// A Provider applies a graph delta atomically: Update either applies all
// removals and additions for one graph or none of them. Providers are free
// to allocate their own identifiers for blank nodes, but must do so
// consistently within a single Update call. Blank node labels are not
// correlated across calls.
package store

import (
	"context"
	"errors"

	"github.com/geoknoesis/rdf-stream/rdf"
)

var (
	// ErrReadOnly is returned by providers refusing writes.
	ErrReadOnly = errors.New("store: provider is read-only")
	// ErrUpdateUnsupported is returned by providers without delta updates.
	ErrUpdateUnsupported = errors.New("store: provider does not support updates")
)

// Provider is a graph store that accepts atomic per-graph deltas.
type Provider interface {
	// Update removes removals from and adds additions to graph in one
	// atomic step. A nil graph is the default graph.
	Update(ctx context.Context, graph rdf.Term, additions, removals []rdf.Quad) error
	// SupportsUpdate reports whether Update is implemented.
	SupportsUpdate() bool
	// ReadOnly reports whether the provider refuses writes.
	ReadOnly() bool
}

// CheckWritable returns an error unless p can accept Update calls.
func CheckWritable(p Provider) error {
	switch {
	case p == nil:
		return errors.New("store: nil provider")
	case p.ReadOnly():
		return ErrReadOnly
	case !p.SupportsUpdate():
		return ErrUpdateUnsupported
	}
	return nil
}

// GraphKey returns a stable string key for a graph name. The default graph
// maps to the empty string.
func GraphKey(graph rdf.Term) string {
	if graph == nil {
		return ""
	}
	return rdf.FormatTerm(graph)
}

// RelabelBlankNodes rewrites every blank node in quads to a fresh label
// drawn from f, keeping equal labels equal within the slice.
func RelabelBlankNodes(quads []rdf.Quad, f rdf.NodeFactory) []rdf.Quad {
	mapping := make(map[rdf.BlankNode]rdf.BlankNode)
	var relabel func(rdf.Term) rdf.Term
	relabel = func(t rdf.Term) rdf.Term {
		switch v := t.(type) {
		case rdf.BlankNode:
			fresh, ok := mapping[v]
			if !ok {
				fresh = f.BlankNode()
				mapping[v] = fresh
			}
			return fresh
		case rdf.TripleTerm:
			return rdf.TripleTerm{S: relabel(v.S), P: v.P, O: relabel(v.O)}
		default:
			return t
		}
	}
	out := make([]rdf.Quad, len(quads))
	for i, q := range quads {
		if q.IsGround() {
			out[i] = q
			continue
		}
		out[i] = rdf.Quad{S: relabel(q.S), P: q.P, O: relabel(q.O), G: relabel(q.G)}
	}
	return out
}
