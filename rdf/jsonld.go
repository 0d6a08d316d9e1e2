package rdf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	ld "github.com/piprate/json-gold/ld"
)

// JSONLDOptions configures JSON-LD output.
type JSONLDOptions struct {
	// Context cancels conversion when done.
	Context context.Context
	// BaseIRI is passed to the JSON-LD processor.
	BaseIRI string
	// CompactContext, when set, compacts the document against this context.
	CompactContext interface{}
	// UseNativeTypes converts xsd numbers and booleans to JSON natives.
	UseNativeTypes bool
	// UseRdfType keeps rdf:type as a property instead of @type.
	UseRdfType bool
	// Indent is the per-level indentation; empty writes compact JSON.
	Indent string
}

// JSONLDEncoder buffers statements and writes them as one JSON-LD document
// on Flush or Close. JSON-LD is a document format, so nothing is written
// before the first flush.
type JSONLDEncoder struct {
	w       io.Writer
	opts    JSONLDOptions
	pending []Quad
	err     error
	closed  bool
}

// NewJSONLDEncoder creates a JSON-LD encoder.
func NewJSONLDEncoder(w io.Writer, opts JSONLDOptions) *JSONLDEncoder {
	return &JSONLDEncoder{w: w, opts: opts}
}

func (e *JSONLDEncoder) Write(q Quad) error {
	if e.err != nil {
		return e.err
	}
	if e.closed {
		return errors.New("jsonld: write after close")
	}
	if q.S == nil || q.P.Value == "" || q.O == nil {
		return errors.New("jsonld: missing statement fields")
	}
	e.pending = append(e.pending, q)
	return nil
}

// Flush writes the statements buffered so far as a JSON-LD document.
func (e *JSONLDEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if len(e.pending) == 0 {
		return nil
	}
	doc, err := QuadsToJSONLD(e.opts.Context, e.pending, e.opts)
	if err != nil {
		e.err = err
		return err
	}
	e.pending = e.pending[:0]
	var out []byte
	if e.opts.Indent != "" {
		out, err = json.MarshalIndent(doc, "", e.opts.Indent)
	} else {
		out, err = json.Marshal(doc)
	}
	if err != nil {
		e.err = err
		return err
	}
	out = append(out, '\n')
	if _, err := e.w.Write(out); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *JSONLDEncoder) Close() error {
	if e.closed {
		return e.err
	}
	err := e.Flush()
	e.closed = true
	return err
}

// QuadsToJSONLD converts quads into an expanded (or, with CompactContext,
// compacted) JSON-LD document.
func QuadsToJSONLD(ctx context.Context, quads []Quad, opts JSONLDOptions) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := newNTEncoder(&buf, FormatNQuads)
	for _, q := range quads {
		if _, quoted := q.S.(TripleTerm); quoted {
			return nil, fmt.Errorf("jsonld: quoted triples are not supported")
		}
		if _, quoted := q.O.(TripleTerm); quoted {
			return nil, fmt.Errorf("jsonld: quoted triples are not supported")
		}
		if err := enc.Write(q); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	proc := ld.NewJsonLdProcessor()
	goldOpts := ld.NewJsonLdOptions(opts.BaseIRI)
	goldOpts.Format = "application/n-quads"
	goldOpts.UseNativeTypes = opts.UseNativeTypes
	goldOpts.UseRdfType = opts.UseRdfType
	doc, err := proc.FromRDF(buf.String(), goldOpts)
	if err != nil {
		return nil, fmt.Errorf("jsonld: from rdf: %w", err)
	}
	if opts.CompactContext == nil {
		return doc, nil
	}
	compacted, err := proc.Compact(doc, opts.CompactContext, ld.NewJsonLdOptions(opts.BaseIRI))
	if err != nil {
		return nil, fmt.Errorf("jsonld: compact: %w", err)
	}
	return compacted, nil
}
