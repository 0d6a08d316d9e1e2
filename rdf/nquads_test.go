package rdf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func decodeAll(t *testing.T, input string, format Format, opts ...Option) []Quad {
	t.Helper()
	dec, err := NewDecoder(strings.NewReader(input), format, opts...)
	if err != nil {
		t.Fatalf("decoder error: %v", err)
	}
	defer dec.Close()
	var out []Quad
	for {
		q, err := dec.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, q)
	}
}

func TestNTriplesDecode(t *testing.T) {
	input := "# comment\n" +
		"<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n" +
		"\n" +
		"_:b1 <http://example.org/p> \"hi\"@en .\n" +
		"<http://example.org/s> <http://example.org/p> \"1\"^^<http://www.w3.org/2001/XMLSchema#integer> .\n"
	quads := decodeAll(t, input, FormatNTriples)
	if len(quads) != 3 {
		t.Fatalf("expected 3 quads, got %d", len(quads))
	}
	if quads[1].S != (BlankNode{ID: "b1"}) {
		t.Fatalf("unexpected subject %v", quads[1].S)
	}
	if quads[1].O != (Literal{Lexical: "hi", Lang: "en"}) {
		t.Fatalf("unexpected object %v", quads[1].O)
	}
	if lit := quads[2].O.(Literal); lit.Datatype.Value != "http://www.w3.org/2001/XMLSchema#integer" {
		t.Fatalf("unexpected datatype %s", lit.Datatype.Value)
	}
}

func TestNQuadsDecodeGraph(t *testing.T) {
	input := "<http://example.org/s> <http://example.org/p> <http://example.org/o> <http://example.org/g> .\n" +
		"<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n"
	quads := decodeAll(t, input, FormatNQuads)
	if quads[0].G != (IRI{Value: "http://example.org/g"}) {
		t.Fatalf("expected graph term, got %v", quads[0].G)
	}
	if !quads[1].InDefaultGraph() {
		t.Fatal("expected default graph")
	}
}

func TestNTriplesRejectsGraph(t *testing.T) {
	input := "<http://example.org/s> <http://example.org/p> <http://example.org/o> <http://example.org/g> .\n"
	dec, _ := NewDecoder(strings.NewReader(input), FormatNTriples)
	_, err := dec.Next()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 1 {
		t.Fatalf("expected line 1, got %d", parseErr.Line)
	}
}

func TestDecodeEscapes(t *testing.T) {
	input := `<http://example.org/s> <http://example.org/p> "a\"b\ncé" .` + "\n"
	quads := decodeAll(t, input, FormatNTriples)
	if got := quads[0].O.(Literal).Lexical; got != "a\"b\ncé" {
		t.Fatalf("unexpected lexical %q", got)
	}
}

func TestDecodeUsesFactory(t *testing.T) {
	input := "_:x <http://example.org/p> _:x .\n"
	quads := decodeAll(t, input, FormatNTriples, OptFactory(freshOnly{NewSequenceFactory("f")}))
	if quads[0].S == quads[0].O {
		t.Fatal("factory redirect should give distinct nodes")
	}
}

type freshOnly struct{ *SequenceFactory }

func (f freshOnly) NamedBlankNode(string) BlankNode { return f.BlankNode() }

func TestDecodeQuotedTriple(t *testing.T) {
	input := "<< <http://example.org/a> <http://example.org/b> <http://example.org/c> >> <http://example.org/p> \"x\" .\n"
	quads := decodeAll(t, input, FormatNTriples)
	if _, ok := quads[0].S.(TripleTerm); !ok {
		t.Fatalf("expected quoted triple subject, got %T", quads[0].S)
	}
}

func TestDecodeLimits(t *testing.T) {
	line := "<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n"
	dec, _ := NewDecoder(strings.NewReader(line+line), FormatNTriples, OptMaxQuads(1))
	if _, err := dec.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := dec.Next(); Code(err) != ErrCodeTripleLimitExceeded {
		t.Fatalf("expected triple limit error, got %v", err)
	}

	dec, _ = NewDecoder(strings.NewReader(line), FormatNTriples, OptMaxLineBytes(10))
	if _, err := dec.Next(); Code(err) != ErrCodeLineTooLong {
		t.Fatalf("expected line too long, got %v", err)
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	if _, err := NewDecoder(strings.NewReader(""), FormatJSONLD); Code(err) != ErrCodeUnsupportedFormat {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestParseStopsOnHandlerError(t *testing.T) {
	line := "<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n"
	stop := errors.New("stop")
	calls := 0
	err := Parse(context.Background(), strings.NewReader(line+line+line), FormatNTriples, func(Quad) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected one call and stop error, got %d calls, err=%v", calls, err)
	}
}

func TestParseContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Parse(ctx, strings.NewReader("<s> <p> <o> ."), FormatNTriples, func(Quad) error { return nil })
	if Code(err) != ErrCodeContextCanceled {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	quads := []Quad{
		{S: IRI{Value: "http://example.org/s"}, P: IRI{Value: "http://example.org/p"}, O: Literal{Lexical: "line\n\"quoted\""}},
		{S: BlankNode{ID: "b1"}, P: IRI{Value: "http://example.org/p"}, O: Literal{Lexical: "hi", Lang: "en"}, G: IRI{Value: "http://example.org/g"}},
	}
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, FormatNQuads)
	if err != nil {
		t.Fatalf("encoder error: %v", err)
	}
	for _, q := range quads {
		if err := enc.Write(q); err != nil {
			t.Fatalf("write error: %v", err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}
	got := decodeAll(t, buf.String(), FormatNQuads)
	if len(got) != 2 || got[0] != quads[0] || got[1] != quads[1] {
		t.Fatalf("round trip mismatch:\n%v\n%v", quads, got)
	}
}

func TestNTriplesEncoderDropsGraph(t *testing.T) {
	var buf bytes.Buffer
	enc, _ := NewEncoder(&buf, FormatNTriples)
	_ = enc.Write(Quad{S: IRI{Value: "http://example.org/s"}, P: IRI{Value: "http://example.org/p"}, O: IRI{Value: "http://example.org/o"}, G: IRI{Value: "http://example.org/g"}})
	_ = enc.Flush()
	if strings.Contains(buf.String(), "/g>") {
		t.Fatalf("graph should not be written: %s", buf.String())
	}
}

func TestParseTermRoundTrip(t *testing.T) {
	terms := []Term{
		IRI{Value: "http://example.org/s"},
		BlankNode{ID: "b9"},
		Literal{Lexical: "tab\there"},
		Literal{Lexical: "5", Datatype: IRI{Value: "http://www.w3.org/2001/XMLSchema#integer"}},
	}
	for _, term := range terms {
		got, err := ParseTerm(FormatTerm(term))
		if err != nil {
			t.Fatalf("parse %s: %v", FormatTerm(term), err)
		}
		if got != term {
			t.Fatalf("round trip mismatch: %v != %v", got, term)
		}
	}
	if _, err := ParseTerm("<http://example.org/a> extra"); err == nil {
		t.Fatal("expected trailing content error")
	}
}
