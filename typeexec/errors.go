package typeexec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytecode-tools/typeflow"
)

// ErrorKind classifies a verification failure.
type ErrorKind uint8

const (
	TypeMismatch ErrorKind = iota + 1
	IllegalConstant
	StackOverflow
	StackUnderflow
	InvalidArrayOperation
	InvalidInvocation
	UnsupportedInstruction
	LocalOutOfRange
	InvalidControlFlow
	StackMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case IllegalConstant:
		return "IllegalConstant"
	case StackOverflow:
		return "StackOverflow"
	case StackUnderflow:
		return "StackUnderflow"
	case InvalidArrayOperation:
		return "InvalidArrayOperation"
	case InvalidInvocation:
		return "InvalidInvocation"
	case UnsupportedInstruction:
		return "UnsupportedInstruction"
	case LocalOutOfRange:
		return "LocalOutOfRange"
	case InvalidControlFlow:
		return "InvalidControlFlow"
	case StackMismatch:
		return "StackMismatch"
	default:
		return "Unknown"
	}
}

var (
	// ErrCancelled is returned by Result.Error when the context ended before
	// the analysis reached its fixed point.
	ErrCancelled = errors.New("analysis cancelled")
	// ErrIterationLimit aborts an analysis that did not converge within
	// Options.MaxIterations worklist steps.
	ErrIterationLimit = errors.New("exceeded maximum worklist iterations")
)

// VerifyError is the single terminal diagnostic of a failed analysis.
type VerifyError struct {
	Index   int
	Op      typeflow.Opcode
	Kind    ErrorKind
	Message string

	// Expected and Actual are set when the failure is an operand mismatch.
	Expected string
	Actual   Value
}

func (e *VerifyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d (%s): %s", e.Kind, e.Index, e.Op, e.Message)
	if e.Expected != "" {
		fmt.Fprintf(&b, " (expected %s, got %s)", e.Expected, e.Actual)
	}
	return b.String()
}

// Is matches another *VerifyError by kind, so callers can test
// errors.Is(err, &VerifyError{Kind: TypeMismatch}).
func (e *VerifyError) Is(target error) bool {
	t, ok := target.(*VerifyError)
	return ok && t.Kind == e.Kind
}

// IsKind reports whether err is a VerifyError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ve *VerifyError
	return errors.As(err, &ve) && ve.Kind == kind
}

// failure is the error transfer functions return; the analyzer stamps it
// with the instruction index and opcode.
type failure struct {
	kind     ErrorKind
	msg      string
	expected string
	actual   Value
}

func (f *failure) Error() string { return f.kind.String() + ": " + f.msg }

func fail(kind ErrorKind, format string, args ...any) error {
	return &failure{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func mismatch(kind ErrorKind, msg string, expected Type, actual Value) error {
	return &failure{kind: kind, msg: msg, expected: expected.String(), actual: actual}
}

func toVerifyError(err error, index int, op typeflow.Opcode) *VerifyError {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve
	}
	var f *failure
	if errors.As(err, &f) {
		return &VerifyError{Index: index, Op: op, Kind: f.kind, Message: f.msg, Expected: f.expected, Actual: f.actual}
	}
	return &VerifyError{Index: index, Op: op, Kind: TypeMismatch, Message: err.Error()}
}
