// Package rdf is the statement model shared by the pipeline packages.
//
// Terms are comparable values: IRI, BlankNode, Literal and the RDF-star
// TripleTerm. A Quad is a triple plus an optional graph name, nil meaning
// the default graph. Blank node labels only mean something within one
// session; a NodeFactory decides how producers turn labels into nodes.
//
// The package reads and writes the line-based formats:
//   - NewDecoder and Parse read N-Triples and N-Quads, pull and push style.
//   - NewEncoder writes N-Triples, N-Quads and JSON-LD.
//
// JSON-LD output goes through github.com/piprate/json-gold and is buffered
// until Flush, since a JSON-LD document cannot be written statement by
// statement.
//
// Example (counting the statements of a file):
//
//	n := 0
//	err := rdf.Parse(ctx, f, rdf.FormatNQuads, func(q rdf.Quad) error {
//	    n++
//	    return nil
//	})
//
// MemGraph is a small in-memory Graph used to collect sessions and to back
// the in-memory store.
package rdf
