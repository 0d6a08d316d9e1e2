package rdf

import (
	"bytes"
	"io"
	"testing"
)

const fuzzMaxLineBytes = 8 << 10

func drain(dec Decoder) {
	defer dec.Close()
	for {
		if _, err := dec.Next(); err != nil {
			return
		}
	}
}

func FuzzDecodeNTriples(f *testing.F) {
	f.Add([]byte(`<http://example.org/s> <http://example.org/p> "v" .`))
	f.Add([]byte(`_:b <http://example.org/p> "é"@fr .`))
	f.Fuzz(func(t *testing.T, data []byte) {
		dec, err := NewDecoder(bytes.NewReader(data), FormatNTriples, OptMaxLineBytes(fuzzMaxLineBytes))
		if err != nil {
			return
		}
		drain(dec)
	})
}

func FuzzDecodeNQuads(f *testing.F) {
	f.Add([]byte(`<http://example.org/s> <http://example.org/p> "v" <http://example.org/g> .`))
	f.Add([]byte(`<< <http://e/s> <http://e/p> <http://e/o> >> <http://e/q> "x" .`))
	f.Fuzz(func(t *testing.T, data []byte) {
		dec, err := NewDecoder(bytes.NewReader(data), FormatNQuads, OptMaxLineBytes(fuzzMaxLineBytes))
		if err != nil {
			return
		}
		drain(dec)
	})
}

// FuzzRoundTrip checks that whatever decodes also re-encodes to input that
// decodes to the same statements.
func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte("<http://e/s> <http://e/p> \"a\\nb\" <http://e/g> .\n"))
	f.Fuzz(func(t *testing.T, data []byte) {
		dec, err := NewDecoder(bytes.NewReader(data), FormatNQuads, OptMaxLineBytes(fuzzMaxLineBytes))
		if err != nil {
			return
		}
		var first []Quad
		for {
			q, err := dec.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return
			}
			first = append(first, q)
		}
		var buf bytes.Buffer
		enc, _ := NewEncoder(&buf, FormatNQuads)
		for _, q := range first {
			if err := enc.Write(q); err != nil {
				t.Fatalf("encode %v: %v", q, err)
			}
		}
		if err := enc.Close(); err != nil {
			t.Fatal(err)
		}
		dec, _ = NewDecoder(&buf, FormatNQuads, OptMaxLineBytes(0))
		for i := 0; ; i++ {
			q, err := dec.Next()
			if err == io.EOF {
				if i != len(first) {
					t.Fatalf("got %d statements back, want %d", i, len(first))
				}
				return
			}
			if err != nil {
				t.Fatalf("re-decode %q: %v", buf.String(), err)
			}
			if i >= len(first) || q != first[i] {
				t.Fatalf("statement %d changed: %v", i, q)
			}
		}
	})
}
