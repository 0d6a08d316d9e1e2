package rdf

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NodeFactory creates the terms a producer emits.
//
// NamedBlankNode and BlankNode are deliberately separate operations: the
// first maps a document label to a node, the second always returns a node
// that collides with nothing else.
type NodeFactory interface {
	NamedBlankNode(label string) BlankNode
	BlankNode() BlankNode
	IRI(value string) IRI
	Literal(lexical string, datatype IRI, lang string) Literal
}

// Factory is the default NodeFactory. Labelled blank nodes keep their label;
// fresh blank nodes get a random UUID-derived label.
type Factory struct{}

// NewFactory returns the default node factory.
func NewFactory() Factory { return Factory{} }

// NamedBlankNode returns a blank node carrying label.
func (Factory) NamedBlankNode(label string) BlankNode {
	return BlankNode{ID: label}
}

// BlankNode returns a fresh blank node.
func (Factory) BlankNode() BlankNode {
	return BlankNode{ID: freshBlankNodeID()}
}

// IRI returns an IRI term.
func (Factory) IRI(value string) IRI { return IRI{Value: value} }

// Literal returns a literal term. A language tag takes precedence over datatype.
func (Factory) Literal(lexical string, datatype IRI, lang string) Literal {
	if lang != "" {
		return Literal{Lexical: lexical, Lang: lang}
	}
	return Literal{Lexical: lexical, Datatype: datatype}
}

// freshBlankNodeID produces an N-Triples safe blank node label.
func freshBlankNodeID() string {
	return "b" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SequenceFactory is a NodeFactory whose fresh blank nodes are numbered
// prefix1, prefix2, ... It is deterministic and not safe for concurrent use.
type SequenceFactory struct {
	Factory
	prefix  string
	counter int
}

// NewSequenceFactory creates a SequenceFactory. An empty prefix means "b".
func NewSequenceFactory(prefix string) *SequenceFactory {
	if prefix == "" {
		prefix = "b"
	}
	return &SequenceFactory{prefix: prefix}
}

// BlankNode returns the next numbered blank node.
func (f *SequenceFactory) BlankNode() BlankNode {
	f.counter++
	return BlankNode{ID: f.prefix + strconv.Itoa(f.counter)}
}
