package typeexec

import (
	"context"
	"errors"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	tf "github.com/bytecode-tools/typeflow"
)

const tracerName = "github.com/bytecode-tools/typeflow/typeexec"

// BatchOptions configures a Batch.
type BatchOptions struct {
	// Concurrency bounds the number of methods analyzed at once
	// (default: GOMAXPROCS).
	Concurrency int
	// Metrics, when set, is updated after every analysis.
	Metrics *Metrics
	// Cache, when set, is consulted before and filled after every analysis.
	Cache *Cache
	// Tracer overrides the global OpenTelemetry tracer.
	Tracer trace.Tracer
}

// BatchResult pairs a method with its analysis. Err is set only when the
// method could not be analyzed at all; verification failures are reported
// through Result.
type BatchResult struct {
	Method *tf.Method
	Result *Result
	Err    error
	Cached bool
}

// Batch analyzes many independent methods concurrently. The Hierarchy in
// its Options must be safe for concurrent reads.
type Batch struct {
	opts   Options
	bopts  BatchOptions
	tracer trace.Tracer
}

// NewBatch creates a batch verifier.
func NewBatch(opts Options, bopts BatchOptions) *Batch {
	if bopts.Concurrency <= 0 {
		bopts.Concurrency = runtime.GOMAXPROCS(0)
	}
	tracer := bopts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Batch{opts: opts, bopts: bopts, tracer: tracer}
}

// Run analyzes every method and returns one BatchResult per method in input
// order. The returned error joins the per-method request errors. Cancelling
// ctx makes the remaining analyses finish with OutcomeCancelled.
func (b *Batch) Run(ctx context.Context, methods []*tf.Method) ([]BatchResult, error) {
	results := make([]BatchResult, len(methods))

	var g errgroup.Group
	g.SetLimit(b.bopts.Concurrency)
	for i, m := range methods {
		g.Go(func() error {
			results[i] = b.analyze(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}

func (b *Batch) analyze(ctx context.Context, m *tf.Method) BatchResult {
	out := BatchResult{Method: m}
	name := "<nil>"
	if m != nil {
		name = m.ID()
	}

	ctx, span := b.tracer.Start(ctx, "typeexec.Analyze", trace.WithAttributes(
		attribute.String("typeflow.method", name),
	))
	defer span.End()

	if m != nil && b.bopts.Cache != nil {
		if res, ok := b.bopts.Cache.Get(m, b.opts); ok {
			b.bopts.Metrics.cacheHit()
			span.SetAttributes(attribute.Bool("typeflow.cached", true))
			out.Result, out.Cached = res, true
			return out
		}
	}

	start := time.Now()
	res, err := Analyze(ctx, m, b.opts)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		out.Err = err
		return out
	}

	span.SetAttributes(
		attribute.String("typeflow.outcome", res.Outcome.String()),
		attribute.Int("typeflow.iterations", res.Iterations),
		attribute.Int("typeflow.unreachable", len(res.Unreachable)),
	)
	if res.Err != nil {
		span.SetAttributes(
			attribute.String("typeflow.error_kind", res.Err.Kind.String()),
			attribute.Int("typeflow.error_index", res.Err.Index),
		)
		span.SetStatus(codes.Error, res.Err.Error())
	}

	b.bopts.Metrics.observe(res, elapsed)
	if b.bopts.Cache != nil {
		b.bopts.Cache.Put(m, b.opts, res)
	}
	out.Result = res
	return out
}

// Summary counts batch results by outcome.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
	Errored   int
	Cached    int
}

// Summarize tallies results.
func Summarize(results []BatchResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Cached {
			s.Cached++
		}
		switch {
		case r.Err != nil:
			s.Errored++
		case r.Result.Outcome == OutcomeSuccess:
			s.Succeeded++
		case r.Result.Outcome == OutcomeFailure:
			s.Failed++
		case r.Result.Outcome == OutcomeCancelled:
			s.Cancelled++
		}
	}
	return s
}
