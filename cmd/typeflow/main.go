// typeflow verifies the methods of a fixture file and reports the outcome of
// each analysis.
//
// Usage:
//
//	typeflow [-config typeflow.yaml] [-level debug] [-strict] [-check] fixture.yaml
//	typeflow -list Owner.name(I)I fixture.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/bytecode-tools/typeflow/pkg/fixture"
	"github.com/bytecode-tools/typeflow/pkg/listing"
	"github.com/bytecode-tools/typeflow/typeexec"
)

const (
	exitOK       = 0
	exitFailed   = 1
	exitUsage    = 2
	exitMismatch = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "YAML or TOML config file")
	level := flag.String("level", "", "log level (error, warn, info, debug)")
	concurrency := flag.Int("concurrency", 0, "methods analyzed at once (default GOMAXPROCS)")
	strict := flag.Bool("strict", false, "reject incompatible stack merges instead of degrading them")
	check := flag.Bool("check", false, "compare results with the fixture's expectations")
	list := flag.String("list", "", "render the frames of one method (owner.name+desc)")
	metrics := flag.Bool("metrics", false, "print analysis metrics after the run")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] fixture.yaml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return exitUsage
	}

	cfg := typeexec.Config{}
	if *configPath != "" {
		var err error
		if cfg, err = typeexec.LoadConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitUsage
		}
	}
	opts := cfg.Apply(typeexec.DefaultOptions())
	if *level != "" {
		opts.LogLevel = *level
	}
	if *strict {
		opts.StrictMerge = true
	}

	fx, err := fixture.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *list != "" {
		return listMethod(ctx, fx, *list, opts)
	}

	registry := prometheus.NewRegistry()
	bopts := cfg.BatchOptions()
	bopts.Metrics = typeexec.NewMetrics(registry)
	if *concurrency > 0 {
		bopts.Concurrency = *concurrency
	}

	results, err := fx.Verify(ctx, opts, bopts)
	fmt.Print(listing.FormatResults(results))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	s := typeexec.Summarize(results)
	fmt.Printf("\n%d methods: %d ok, %d failed, %d cancelled, %d errors\n",
		s.Total, s.Succeeded, s.Failed, s.Cancelled, s.Errored)

	if *metrics {
		if err := writeMetrics(registry); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if *check {
		mismatches := fx.Check(results)
		for _, m := range mismatches {
			fmt.Printf("MISMATCH %s\n", m)
		}
		if len(mismatches) > 0 {
			return exitMismatch
		}
		return exitOK
	}
	if s.Failed > 0 || s.Errored > 0 || s.Cancelled > 0 {
		return exitFailed
	}
	return exitOK
}

func listMethod(ctx context.Context, fx *fixture.Fixture, id string, opts typeexec.Options) int {
	m, ok := fx.Method(id)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no method %s in fixture\n", id)
		return exitUsage
	}
	opts.Hierarchy = fx.Hierarchy
	res, err := typeexec.Analyze(ctx, m, opts)
	if err != nil {
		fmt.Fprint(os.Stderr, listing.FormatError(m, err))
		return exitFailed
	}
	err = listing.Render(os.Stdout, m, res, listing.Options{
		Color:  listing.ColorEnabled(os.Stdout),
		Labels: fx.LabelsAt(id),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailed
	}
	if res.Err != nil {
		fmt.Print("\n" + listing.FormatDiagnostic(m, res.Err))
		return exitFailed
	}
	return exitOK
}

func writeMetrics(g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	fmt.Println()
	enc := expfmt.NewEncoder(os.Stdout, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
