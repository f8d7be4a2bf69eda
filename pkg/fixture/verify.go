package fixture

import (
	"context"
	"fmt"
	"slices"

	"github.com/bytecode-tools/typeflow/typeexec"
)

// Verify analyzes every method of the fixture against its hierarchy. The
// fixture's hierarchy replaces opts.Hierarchy.
func (f *Fixture) Verify(ctx context.Context, opts typeexec.Options, bopts typeexec.BatchOptions) ([]typeexec.BatchResult, error) {
	opts.Hierarchy = f.Hierarchy
	return typeexec.NewBatch(opts, bopts).Run(ctx, f.Methods)
}

// Mismatch describes a method whose result differs from its expectation.
type Mismatch struct {
	Method string
	Reason string
}

func (m Mismatch) String() string { return m.Method + ": " + m.Reason }

// Check compares results with the declared expectations. Methods without
// an expectation are skipped.
func (f *Fixture) Check(results []typeexec.BatchResult) []Mismatch {
	var out []Mismatch
	for _, r := range results {
		id := r.Method.ID()
		exp, ok := f.Expectations[id]
		if !ok {
			continue
		}
		if reason := exp.check(r); reason != "" {
			out = append(out, Mismatch{Method: id, Reason: reason})
		}
	}
	return out
}

func (e *Expectation) check(r typeexec.BatchResult) string {
	if r.Err != nil {
		return fmt.Sprintf("analysis error: %v", r.Err)
	}
	res := r.Result
	if got := res.Outcome.String(); got != e.Outcome {
		detail := ""
		if res.Err != nil {
			detail = " (" + res.Err.Error() + ")"
		}
		return fmt.Sprintf("outcome %s, want %s%s", got, e.Outcome, detail)
	}
	if e.Kind != "" && res.Err.Kind.String() != e.Kind {
		return fmt.Sprintf("error kind %s, want %s", res.Err.Kind, e.Kind)
	}
	if e.Index != nil && res.Err != nil && res.Err.Index != *e.Index {
		return fmt.Sprintf("error at %d, want %d", res.Err.Index, *e.Index)
	}
	if e.Unreachable != nil && !slices.Equal(res.Unreachable, e.Unreachable) {
		return fmt.Sprintf("unreachable %v, want %v", res.Unreachable, e.Unreachable)
	}
	return ""
}
