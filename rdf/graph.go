package rdf

import (
	"iter"
	"maps"
	"slices"
	"sync"
)

// Graph is a mutable collection of quads with namespace declarations and an
// optional base IRI.
type Graph interface {
	IsEmpty() bool
	Len() int
	Add(q Quad) bool
	Remove(q Quad) bool
	RemoveMatching(p IRI) int
	Contains(q Quad) bool
	Clear()
	Quads() iter.Seq[Quad]
	Namespaces() map[string]string
	SetNamespace(prefix, uri string)
	RemoveNamespace(prefix string)
	BaseURI() string
	SetBaseURI(uri string)
	Merge(other Graph)
}

// MemGraph is an in-memory Graph that preserves insertion order and ignores
// duplicate quads. It is safe for concurrent use.
type MemGraph struct {
	mu         sync.RWMutex
	index      map[Quad]int
	quads      []Quad
	live       int
	namespaces map[string]string
	base       string
}

var _ Graph = (*MemGraph)(nil)

// NewGraph returns an empty MemGraph.
func NewGraph() *MemGraph {
	return &MemGraph{
		index:      make(map[Quad]int),
		namespaces: make(map[string]string),
	}
}

// NewGraphOf returns a MemGraph holding quads.
func NewGraphOf(quads ...Quad) *MemGraph {
	g := NewGraph()
	for _, q := range quads {
		g.Add(q)
	}
	return g
}

func (g *MemGraph) IsEmpty() bool { return g.Len() == 0 }

func (g *MemGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.live
}

// Add asserts q and reports whether it was not already present.
func (g *MemGraph) Add(q Quad) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.index[q]; ok {
		return false
	}
	g.index[q] = len(g.quads)
	g.quads = append(g.quads, q)
	g.live++
	return true
}

// Remove retracts q and reports whether it was present.
func (g *MemGraph) Remove(q Quad) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removeLocked(q)
}

// RemoveMatching retracts every quad with predicate p and returns how many
// were removed.
func (g *MemGraph) RemoveMatching(p IRI) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	var victims []Quad
	for q := range g.index {
		if q.P == p {
			victims = append(victims, q)
		}
	}
	for _, q := range victims {
		g.removeLocked(q)
	}
	return len(victims)
}

func (g *MemGraph) removeLocked(q Quad) bool {
	pos, ok := g.index[q]
	if !ok {
		return false
	}
	delete(g.index, q)
	g.quads[pos] = Quad{}
	g.live--
	if g.live == 0 {
		g.quads = g.quads[:0]
	}
	return true
}

func (g *MemGraph) Contains(q Quad) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.index[q]
	return ok
}

// Clear removes all quads. Namespaces and the base IRI are kept.
func (g *MemGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.index)
	g.quads = g.quads[:0]
	g.live = 0
}

// Quads iterates over a snapshot of the graph in insertion order.
func (g *MemGraph) Quads() iter.Seq[Quad] {
	g.mu.RLock()
	snapshot := make([]Quad, 0, g.live)
	for _, q := range g.quads {
		if !q.IsZero() {
			snapshot = append(snapshot, q)
		}
	}
	g.mu.RUnlock()
	return slices.Values(snapshot)
}

// Namespaces returns a copy of the prefix to IRI declarations.
func (g *MemGraph) Namespaces() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return maps.Clone(g.namespaces)
}

func (g *MemGraph) SetNamespace(prefix, uri string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.namespaces[prefix] = uri
}

// RemoveNamespace drops the declaration for prefix, if any.
func (g *MemGraph) RemoveNamespace(prefix string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.namespaces, prefix)
}

func (g *MemGraph) BaseURI() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.base
}

func (g *MemGraph) SetBaseURI(uri string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.base = uri
}

// Merge imports other's namespaces and quads into g. The base IRI of other
// is adopted only when g has none.
func (g *MemGraph) Merge(other Graph) {
	if other == nil || other == Graph(g) {
		return
	}
	for prefix, uri := range other.Namespaces() {
		g.SetNamespace(prefix, uri)
	}
	for q := range other.Quads() {
		g.Add(q)
	}
	if g.BaseURI() == "" {
		g.SetBaseURI(other.BaseURI())
	}
}
