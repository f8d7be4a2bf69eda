package typeexec

import (
	"fmt"

	tf "github.com/bytecode-tools/typeflow"
)

// Options configures a method analysis.
type Options struct {
	// MaxIterations bounds worklist steps per method; zero disables the
	// bound. An inconsistent oracle is the usual way to exceed it.
	MaxIterations int

	// StrictMerge turns incompatible stack values at a merge point into a
	// TypeMismatch instead of degrading them to Uninitialized. Locals always
	// degrade.
	StrictMerge bool

	// Hierarchy answers subtype queries between classes. Nil means classes
	// are related only by identity and to java/lang/Object.
	Hierarchy Hierarchy

	// Logging configuration
	Logger               Logger // Takes precedence over LogLevel when set
	LogLevel             string // "error", "warn", "info", "debug"; empty disables logging
	LogTimeFormat        string // strftime pattern for timestamps (default: DefaultLogTimeFormat)
	LogStackPreviewDepth int    // Max stack entries shown in debug logs (default: 3)
	LogMaxLocals         int    // Max locals shown in debug logs (default: 6)
}

// DefaultOptions returns the default analysis configuration.
func DefaultOptions() Options {
	return Options{
		MaxIterations:        1_000_000,
		StrictMerge:          false,
		LogLevel:             "warn",
		LogTimeFormat:        DefaultLogTimeFormat,
		LogStackPreviewDepth: 3,
		LogMaxLocals:         6,
	}
}

// Outcome is the terminal state of an analysis.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// EdgeKind classifies a control-flow edge.
type EdgeKind uint8

const (
	EdgeFallthrough EdgeKind = iota
	EdgeJump
	EdgeException
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeFallthrough:
		return "fallthrough"
	case EdgeJump:
		return "jump"
	case EdgeException:
		return "exception"
	default:
		return "unknown"
	}
}

// Edge is a control-flow edge between two instruction indexes.
type Edge struct {
	From int
	To   int
	Kind EdgeKind
}

// Result is the outcome of analyzing one method.
type Result struct {
	Method  *tf.Method
	Outcome Outcome

	// Frames[i] is the frame before instruction i; nil when i was never
	// reached. PostFrames[i] is the frame after executing i.
	Frames     []*Frame
	PostFrames []*Frame

	// Edges lists every control-flow edge taken, sorted by (From, To, Kind).
	Edges []Edge

	// Unreachable lists, ascending, the instruction indexes no control-flow
	// path from the entry reaches. It is derived from the graph, not from the
	// frames, so on failure or cancellation live code that was not visited
	// yet is not listed.
	Unreachable []int

	// Err is set when Outcome is OutcomeFailure.
	Err *VerifyError

	Iterations int
	ExecID     string
}

// Frame returns the frame before instruction i, or nil.
func (r *Result) Frame(i int) *Frame {
	if i < 0 || i >= len(r.Frames) {
		return nil
	}
	return r.Frames[i]
}

// IsUnreachable reports whether instruction i is dead code.
func (r *Result) IsUnreachable(i int) bool {
	for _, u := range r.Unreachable {
		if u == i {
			return true
		}
	}
	return false
}

// Error returns nil on success, the VerifyError on failure and ErrCancelled
// on cancellation.
func (r *Result) Error() error {
	switch r.Outcome {
	case OutcomeFailure:
		return r.Err
	case OutcomeCancelled:
		return ErrCancelled
	}
	return nil
}

// String returns a one-line summary for debugging.
func (r *Result) String() string {
	if r == nil {
		return "<nil>"
	}
	id := "?"
	if r.Method != nil {
		id = r.Method.ID()
	}
	s := fmt.Sprintf("Result{%s: %s, iterations=%d, unreachable=%d", id, r.Outcome, r.Iterations, len(r.Unreachable))
	if r.Err != nil {
		s += ", err=" + r.Err.Error()
	}
	return s + "}"
}
