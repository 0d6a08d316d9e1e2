package handler

import (
	"context"

	"github.com/geoknoesis/rdf-stream/rdf"
)

// GraphMerge collects a session into a target graph with all-or-nothing
// visibility.
//
// An empty target is filled directly. If the session is aborted its
// statements are cleared and the target's namespaces and base IRI are put
// back as they were at Start. A non-empty target is left untouched while the session runs;
// statements go to a temporary buffer that is merged in on a successful End
// and dropped otherwise.
type GraphMerge struct {
	Base
	target rdf.Graph
	buffer rdf.Graph
	direct bool
	// declarations of the target at Start, restored when a direct session aborts
	namespaces map[string]string
	baseURI    string
}

var _ Handler = (*GraphMerge)(nil)

// NewGraphMerge returns a sink that collects sessions into target.
func NewGraphMerge(target rdf.Graph) (*GraphMerge, error) {
	if target == nil {
		return nil, constructionError("graph-merge", "nil target graph")
	}
	return &GraphMerge{Base: newBase("graph-merge"), target: target}, nil
}

func (m *GraphMerge) Start(context.Context) error {
	if err := m.Begin(); err != nil {
		return err
	}
	m.direct = m.target.IsEmpty()
	if m.direct {
		m.buffer = m.target
		m.namespaces = m.target.Namespaces()
		m.baseURI = m.target.BaseURI()
	} else {
		m.buffer = rdf.NewGraph()
	}
	return nil
}

func (m *GraphMerge) HandleNamespace(_ context.Context, prefix, uri string) (bool, error) {
	if err := m.Check("namespace"); err != nil {
		return false, err
	}
	m.buffer.SetNamespace(prefix, uri)
	return true, nil
}

func (m *GraphMerge) HandleBaseURI(_ context.Context, uri string) (bool, error) {
	if err := m.Check("base"); err != nil {
		return false, err
	}
	if m.direct {
		if m.target.BaseURI() == "" {
			m.target.SetBaseURI(uri)
		}
		return true, nil
	}
	m.buffer.SetBaseURI(uri)
	return true, nil
}

func (m *GraphMerge) HandleStatement(_ context.Context, q rdf.Quad) (bool, error) {
	if err := m.Check("statement"); err != nil {
		return false, err
	}
	m.buffer.Add(q)
	return true, nil
}

func (m *GraphMerge) End(_ context.Context, ok bool) error {
	if err := m.Close(); err != nil {
		return err
	}
	defer m.Release()
	buffer := m.buffer
	m.buffer = nil
	switch {
	case m.direct && !ok:
		m.target.Clear()
		m.restore()
	case !m.direct && ok:
		m.target.Merge(buffer)
	}
	m.namespaces = nil
	return nil
}

func (m *GraphMerge) restore() {
	for prefix, uri := range m.target.Namespaces() {
		if old, ok := m.namespaces[prefix]; !ok {
			m.target.RemoveNamespace(prefix)
		} else if old != uri {
			m.target.SetNamespace(prefix, old)
		}
	}
	m.target.SetBaseURI(m.baseURI)
}

// Target returns the graph this handler merges into.
func (m *GraphMerge) Target() rdf.Graph { return m.target }
