package rdf

import "testing"

func TestParseFormat(t *testing.T) {
	cases := []struct {
		input  string
		want   Format
		expect bool
	}{
		{"ntriples", FormatNTriples, true},
		{"nt", FormatNTriples, true},
		{" NT ", FormatNTriples, true},
		{"nquads", FormatNQuads, true},
		{"nq", FormatNQuads, true},
		{"jsonld", FormatJSONLD, true},
		{"json-ld", FormatJSONLD, true},
		{"json", FormatJSONLD, true},
		{"turtle", "", false},
		{"unknown", "", false},
	}
	for _, c := range cases {
		got, ok := ParseFormat(c.input)
		if ok != c.expect {
			t.Fatalf("input %q ok=%v want %v", c.input, ok, c.expect)
		}
		if got != c.want {
			t.Fatalf("input %q got %v want %v", c.input, got, c.want)
		}
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{
		"data.nt":          FormatNTriples,
		"dir/Data.NQ":      FormatNQuads,
		"doc.jsonld":       FormatJSONLD,
		"/tmp/export.json": FormatJSONLD,
	}
	for path, want := range cases {
		got, ok := FormatFromPath(path)
		if !ok || got != want {
			t.Fatalf("path %q got %v,%v want %v", path, got, ok, want)
		}
	}
	if _, ok := FormatFromPath("data.ttl"); ok {
		t.Fatal("expected no format for .ttl")
	}
}

func TestFormatDecodable(t *testing.T) {
	if !FormatNTriples.Decodable() || !FormatNQuads.Decodable() {
		t.Fatal("line formats must be decodable")
	}
	if FormatJSONLD.Decodable() {
		t.Fatal("JSON-LD is output only")
	}
}
