// Command rdfpipe streams an N-Triples or N-Quads document through a
// handler pipeline into standard output or a graph store.
//
//	rdfpipe --input data.nq --offset 100 --limit 1000 --output postgres --pg-dsn postgres://localhost/rdf
//
// Settings come from an optional YAML file (--config) and are overridden by
// flags. An interrupt stops reading and ends the session cleanly, so what
// was read so far is still written.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	flag "github.com/spf13/pflag"

	"github.com/geoknoesis/rdf-stream/internal/config"
	"github.com/geoknoesis/rdf-stream/rdf"
)

func main() {
	if err := execute(os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "rdfpipe:", err)
		}
		os.Exit(1)
	}
}

func execute(args []string) error {
	flags := flag.NewFlagSet("rdfpipe", flag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "YAML pipeline file")
	def := config.Default()
	flags.StringP("input", "i", def.Input.Path, "input file, - for standard input")
	flags.StringP("format", "f", string(def.Input.Format), "input format: nt or nq (guessed from the file name when omitted)")
	flags.Int64("max-quads", 0, "fail after this many statements (0: unlimited)")
	flags.Int64("offset", 0, "statements to skip")
	flags.Int64("limit", -1, "statements to keep after the offset (-1: all)")
	flags.String("graph", "", "move every statement into this graph IRI")
	flags.Bool("strip-string-datatype", false, "drop explicit xsd:string datatypes")
	flags.Bool("unique-blank-nodes", false, "give every blank node label occurrence its own node")
	flags.StringP("output", "o", def.Output.Kind, "stdout, discard, probe, memory, postgres or nats")
	flags.String("output-format", string(def.Output.Format), "stdout format: nt, nq or jsonld")
	flags.Int("flush-every", 0, "flush standard output every n statements")
	flags.Int("batch-size", def.Output.BatchSize, "statements per store update")
	flags.String("default-graph", "", "store graph for statements in the default graph")
	flags.String("pg-dsn", "", "PostgreSQL connection string (env "+config.EnvPostgresDSN+")")
	flags.String("pg-table", def.Output.Postgres.Table, "PostgreSQL table")
	flags.String("nats-url", def.Output.NATS.URL, "NATS server URL (env "+config.EnvNATSURL+")")
	flags.String("nats-bucket", def.Output.NATS.Bucket, "JetStream key/value bucket")
	flags.String("log-level", def.Log.Level, "debug, info, warn or error")
	flags.String("log-format", def.Log.Format, "text or json")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(flags, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := run(ctx, cfg, os.Stdin, os.Stdout, logger)
	if err != nil {
		logger.Error("pipeline failed", "error", err, "code", errorCode(err))
		return err
	}
	summary.log(logger)
	return nil
}

// applyFlags copies the flags given on the command line into cfg.
func applyFlags(flags *flag.FlagSet, cfg *config.Pipeline) error {
	var err error
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	format := func(name string, dst *config.Format) {
		if !flags.Changed(name) {
			return
		}
		raw, _ := flags.GetString(name)
		f, ok := rdf.ParseFormat(raw)
		if !ok {
			err = errors.Join(err, fmt.Errorf("--%s: unknown format %q", name, raw))
			return
		}
		*dst = config.Format(f)
	}

	str("input", &cfg.Input.Path)
	format("format", &cfg.Input.Format)
	if !flags.Changed("format") && flags.Changed("input") {
		if f, ok := rdf.FormatFromPath(cfg.Input.Path); ok {
			cfg.Input.Format = config.Format(f)
		}
	}
	if flags.Changed("max-quads") {
		cfg.Input.MaxQuads, _ = flags.GetInt64("max-quads")
	}
	if flags.Changed("offset") {
		cfg.Window.Offset, _ = flags.GetInt64("offset")
	}
	if flags.Changed("limit") {
		cfg.Window.Limit, _ = flags.GetInt64("limit")
	}
	str("graph", &cfg.Transform.Graph)
	if flags.Changed("strip-string-datatype") {
		cfg.Transform.StripStringDatatype, _ = flags.GetBool("strip-string-datatype")
	}
	if flags.Changed("unique-blank-nodes") {
		cfg.Transform.UniqueBlankNodes, _ = flags.GetBool("unique-blank-nodes")
	}
	str("output", &cfg.Output.Kind)
	format("output-format", &cfg.Output.Format)
	if flags.Changed("flush-every") {
		cfg.Output.FlushEvery, _ = flags.GetInt("flush-every")
	}
	if flags.Changed("batch-size") {
		cfg.Output.BatchSize, _ = flags.GetInt("batch-size")
	}
	str("default-graph", &cfg.Output.DefaultGraph)
	str("pg-dsn", &cfg.Output.Postgres.DSN)
	str("pg-table", &cfg.Output.Postgres.Table)
	str("nats-url", &cfg.Output.NATS.URL)
	str("nats-bucket", &cfg.Output.NATS.Bucket)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	str("metrics-addr", &cfg.Metrics.Addr)
	return err
}

func newLogger(c config.Log) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}
