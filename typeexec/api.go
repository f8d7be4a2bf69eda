package typeexec

import (
	"context"
	"errors"
	"fmt"

	tf "github.com/bytecode-tools/typeflow"
)

// Analyze runs the type-flow analysis of one method to its fixed point.
//
// The returned Result carries the outcome: OutcomeSuccess with a frame per
// reachable instruction, OutcomeFailure with the first VerifyError, or
// OutcomeCancelled when ctx ended first. The error return is reserved for
// requests that cannot be analyzed at all (nil or malformed method) and for
// exceeding Options.MaxIterations.
//
// Example:
//
//	m := &typeflow.Method{Owner: "Calc", Name: "add", Desc: "(II)I", Static: true,
//	    MaxLocals: 2, MaxStack: 2, Instructions: code}
//	res, err := typeexec.Analyze(ctx, m, typeexec.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if res.Outcome == typeexec.OutcomeFailure {
//	    fmt.Println(res.Err)
//	}
func Analyze(ctx context.Context, m *tf.Method, opts Options) (*Result, error) {
	sig, err := validateMethod(m)
	if err != nil {
		return nil, fmt.Errorf("invalid method: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return newAnalyzer(ctx, m, sig, opts).run()
}

// validateMethod performs the structural checks the analyzer relies on.
func validateMethod(m *tf.Method) (MethodSignature, error) {
	if m == nil {
		return MethodSignature{}, errors.New("method cannot be nil")
	}
	sig, err := ParseMethodDescriptor(m.Desc)
	if err != nil {
		return MethodSignature{}, fmt.Errorf("%s: %w", m.ID(), err)
	}
	if len(m.Instructions) == 0 {
		return MethodSignature{}, fmt.Errorf("%s: no instructions", m.ID())
	}
	if err := m.Validate(); err != nil {
		return MethodSignature{}, fmt.Errorf("%s: %w", m.ID(), err)
	}
	return sig, nil
}
