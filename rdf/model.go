package rdf

import "fmt"

// TermKind identifies RDF term types.
type TermKind uint8

const (
	// TermIRI represents an IRI term.
	TermIRI TermKind = iota
	// TermBlankNode represents a blank node term.
	TermBlankNode
	// TermLiteral represents a literal term.
	TermLiteral
	// TermTriple represents an RDF-star triple term.
	TermTriple
)

// XSDString is the datatype IRI of plain string literals.
const XSDString = "http://www.w3.org/2001/XMLSchema#string"

// Term is a value that can appear in RDF statements.
//
// All term implementations in this package are comparable, so two terms are
// equal iff they compare equal with ==.
type Term interface {
	Kind() TermKind
	String() string
}

// IRI represents an RDF IRI.
type IRI struct {
	// Value is the IRI string value.
	Value string
}

// Kind returns TermIRI.
func (i IRI) Kind() TermKind { return TermIRI }

// String returns the IRI value.
func (i IRI) String() string { return i.Value }

// BlankNode represents an RDF blank node.
type BlankNode struct {
	// ID is the blank node identifier, meaningful only within one session.
	ID string
}

// Kind returns TermBlankNode.
func (b BlankNode) Kind() TermKind { return TermBlankNode }

// String returns the blank node identifier prefixed with "_:".
func (b BlankNode) String() string { return "_:" + b.ID }

// Literal represents an RDF literal.
type Literal struct {
	// Lexical is the lexical form of the literal.
	Lexical string
	// Datatype is the datatype IRI, if any.
	Datatype IRI
	// Lang is the language tag, if any.
	Lang string
}

// Kind returns TermLiteral.
func (l Literal) Kind() TermKind { return TermLiteral }

// String returns a string representation of the literal.
func (l Literal) String() string {
	if l.Lang != "" {
		return fmt.Sprintf("%q@%s", l.Lexical, l.Lang)
	}
	if l.Datatype.Value != "" {
		return fmt.Sprintf("%q^^<%s>", l.Lexical, l.Datatype.Value)
	}
	return fmt.Sprintf("%q", l.Lexical)
}

// HasRedundantDatatype reports whether the literal carries an explicit
// xsd:string datatype that adds nothing to its plain form.
func (l Literal) HasRedundantDatatype() bool {
	return l.Lang == "" && l.Datatype.Value == XSDString
}

// TripleTerm is an RDF-star quoted triple term.
type TripleTerm struct {
	// S is the subject of the quoted triple.
	S Term
	// P is the predicate of the quoted triple.
	P IRI
	// O is the object of the quoted triple.
	O Term
}

// Kind returns TermTriple.
func (t TripleTerm) Kind() TermKind { return TermTriple }

// String returns a string representation of the triple term.
func (t TripleTerm) String() string {
	return fmt.Sprintf("<<%s %s %s>>", t.S.String(), t.P.String(), t.O.String())
}

// Quad is an RDF statement: a triple plus an optional graph name.
// Quads are values; handlers replace them rather than mutate them.
type Quad struct {
	// S is the subject.
	S Term
	// P is the predicate.
	P IRI
	// O is the object.
	O Term
	// G is the graph name, or nil for the default graph.
	G Term
}

// IsZero reports whether the quad has no subject/predicate/object.
func (q Quad) IsZero() bool {
	return q.S == nil && q.P.Value == "" && q.O == nil && q.G == nil
}

// InDefaultGraph reports whether the quad is in the default graph (no named graph).
func (q Quad) InDefaultGraph() bool {
	return q.G == nil
}

// WithGraph returns a copy of the quad placed in graph g.
func (q Quad) WithGraph(g Term) Quad {
	q.G = g
	return q
}

// String renders the quad in N-Quads syntax without the trailing newline.
func (q Quad) String() string {
	return renderQuad(q)
}

// IsGround reports whether the quad contains no blank nodes in any of its
// four components, including inside quoted triples.
func (q Quad) IsGround() bool {
	return isGroundTerm(q.S) && isGroundTerm(q.O) && isGroundTerm(q.G)
}

func isGroundTerm(t Term) bool {
	switch v := t.(type) {
	case nil:
		return true
	case BlankNode:
		return false
	case TripleTerm:
		return isGroundTerm(v.S) && isGroundTerm(v.O)
	default:
		return true
	}
}
