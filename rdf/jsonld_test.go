package rdf

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLDEncoderWritesDocumentOnFlush(t *testing.T) {
	var buf bytes.Buffer
	enc := NewJSONLDEncoder(&buf, JSONLDOptions{})
	q := Quad{S: IRI{Value: "http://example.org/s"}, P: IRI{Value: "http://example.org/p"}, O: Literal{Lexical: "v"}}
	if err := enc.Write(q); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("nothing should be written before flush")
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	var doc []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if len(doc) != 1 || doc[0]["@id"] != "http://example.org/s" {
		t.Fatalf("unexpected document: %s", buf.String())
	}
	if err := enc.Write(q); err == nil {
		t.Fatal("write after close should fail")
	}
}

func TestQuadsToJSONLDCompacts(t *testing.T) {
	quads := []Quad{{S: IRI{Value: "http://example.org/s"}, P: IRI{Value: "http://example.org/name"}, O: Literal{Lexical: "Alice"}}}
	ctx := map[string]interface{}{"@context": map[string]interface{}{"name": "http://example.org/name"}}
	doc, err := QuadsToJSONLD(context.Background(), quads, JSONLDOptions{CompactContext: ctx})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	out, _ := json.Marshal(doc)
	if !strings.Contains(string(out), `"name":"Alice"`) {
		t.Fatalf("expected compacted name property, got %s", out)
	}
}

func TestQuadsToJSONLDRejectsQuotedTriples(t *testing.T) {
	p := IRI{Value: "http://example.org/p"}
	quads := []Quad{{S: TripleTerm{S: p, P: p, O: p}, P: p, O: p}}
	if _, err := QuadsToJSONLD(context.Background(), quads, JSONLDOptions{}); err == nil {
		t.Fatal("expected error for quoted triple")
	}
}
