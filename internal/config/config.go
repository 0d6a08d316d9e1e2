// Package config loads the rdfpipe pipeline description from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/geoknoesis/rdf-stream/rdf"
)

// Output kinds.
const (
	OutputStdout   = "stdout"
	OutputDiscard  = "discard"
	OutputProbe    = "probe"
	OutputMemory   = "memory"
	OutputPostgres = "postgres"
	OutputNATS     = "nats"
)

// Environment variables that override connection settings.
const (
	EnvPostgresDSN = "RDFSTREAM_PG_DSN"
	EnvNATSURL     = "RDFSTREAM_NATS_URL"
)

var ErrInvalid = errors.New("config: invalid pipeline")

// Pipeline describes one rdfpipe run.
type Pipeline struct {
	Input     Input     `yaml:"input"`
	Window    Window    `yaml:"window"`
	Transform Transform `yaml:"transform"`
	Output    Output    `yaml:"output"`
	Log       Log       `yaml:"log"`
	Metrics   Metrics   `yaml:"metrics"`
}

type Input struct {
	// Path is the file to read; "-" reads standard input.
	Path         string `yaml:"path"`
	Format       Format `yaml:"format"`
	MaxLineBytes int    `yaml:"max_line_bytes"`
	MaxQuads     int64  `yaml:"max_quads"`
}

type Window struct {
	Offset int64 `yaml:"offset"`
	// Limit is the number of statements to keep; negative keeps all.
	Limit int64 `yaml:"limit"`
}

type Transform struct {
	// Graph moves every statement into this graph IRI when set.
	Graph               string `yaml:"graph"`
	StripStringDatatype bool   `yaml:"strip_string_datatype"`
	UniqueBlankNodes    bool   `yaml:"unique_blank_nodes"`
}

type Output struct {
	Kind         string   `yaml:"kind"`
	Format       Format   `yaml:"format"`
	FlushEvery   int      `yaml:"flush_every"`
	BatchSize    int      `yaml:"batch_size"`
	DefaultGraph string   `yaml:"default_graph"`
	Postgres     Postgres `yaml:"postgres"`
	NATS         NATS     `yaml:"nats"`
}

type Postgres struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type NATS struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
}

type Log struct {
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

type Metrics struct {
	// Addr serves Prometheus metrics on this address while the pipeline runs.
	Addr string `yaml:"addr"`
}

// Format is an RDF format name accepted in YAML by any of its aliases.
type Format rdf.Format

func (f *Format) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, ok := rdf.ParseFormat(raw)
	if !ok {
		return fmt.Errorf("%w: unknown format %q at line %d", ErrInvalid, raw, node.Line)
	}
	*f = Format(parsed)
	return nil
}

func (f Format) MarshalYAML() (interface{}, error) {
	return string(f), nil
}

// Default returns the pipeline that copies standard input to standard
// output as N-Quads.
func Default() Pipeline {
	return Pipeline{
		Input: Input{
			Path:         "-",
			Format:       Format(rdf.FormatNQuads),
			MaxLineBytes: rdf.DefaultMaxLineBytes,
		},
		Window: Window{Limit: -1},
		Output: Output{
			Kind:      OutputStdout,
			Format:    Format(rdf.FormatNQuads),
			BatchSize: 1000,
			Postgres:  Postgres{Table: "rdf_quad"},
			NATS:      NATS{URL: "nats://127.0.0.1:4222", Bucket: "rdfstream"},
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. Connection settings given in the
// environment win over the file.
func Load(path string) (Pipeline, error) {
	p := Default()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Pipeline{}, err
		}
		if err := yaml.Unmarshal(buf, &p); err != nil {
			return Pipeline{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	p.ApplyEnv(os.LookupEnv)
	return p, nil
}

// ApplyEnv overrides connection settings from lookup.
func (p *Pipeline) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPostgresDSN); ok && v != "" {
		p.Output.Postgres.DSN = v
	}
	if v, ok := lookup(EnvNATSURL); ok && v != "" {
		p.Output.NATS.URL = v
	}
}

// Validate reports every problem found in p.
func (p Pipeline) Validate() error {
	var errs []error
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, args...)...))
	}

	if p.Input.Path == "" {
		bad("input.path is empty")
	}
	if !rdf.Format(p.Input.Format).Decodable() {
		bad("input.format %q cannot be read", p.Input.Format)
	}
	if p.Window.Offset < 0 {
		bad("window.offset must not be negative")
	}
	if p.Transform.Graph != "" && !isIRI(p.Transform.Graph) {
		bad("transform.graph %q is not an absolute IRI", p.Transform.Graph)
	}

	switch p.Output.Kind {
	case OutputStdout:
		if p.Output.Format == "" {
			bad("output.format is required for stdout")
		}
		if p.Output.FlushEvery < 0 {
			bad("output.flush_every must not be negative")
		}
		if p.Output.FlushEvery > 0 && p.Output.Format == Format(rdf.FormatJSONLD) {
			bad("output.flush_every cannot be used with jsonld, which is written as one document")
		}
	case OutputDiscard, OutputProbe:
	case OutputMemory, OutputPostgres, OutputNATS:
		if p.Output.BatchSize < 1 {
			bad("output.batch_size must be positive")
		}
		if p.Output.DefaultGraph != "" && !isIRI(p.Output.DefaultGraph) {
			bad("output.default_graph %q is not an absolute IRI", p.Output.DefaultGraph)
		}
	default:
		bad("unknown output.kind %q", p.Output.Kind)
	}
	if p.Output.Kind == OutputPostgres && p.Output.Postgres.DSN == "" {
		bad("output.postgres.dsn is required (or set %s)", EnvPostgresDSN)
	}
	if p.Output.Kind == OutputNATS && (p.Output.NATS.URL == "" || p.Output.NATS.Bucket == "") {
		bad("output.nats.url and output.nats.bucket are required")
	}

	if _, err := p.Log.SlogLevel(); err != nil {
		bad("%v", err)
	}
	if p.Log.Format != "text" && p.Log.Format != "json" {
		bad("log.format %q is neither text nor json", p.Log.Format)
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

func isIRI(s string) bool {
	scheme, rest, ok := strings.Cut(s, ":")
	return ok && scheme != "" && rest != "" && !strings.ContainsAny(s, " <>\"{}|\\^`")
}
