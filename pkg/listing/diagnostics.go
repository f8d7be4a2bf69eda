package listing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytecode-tools/typeflow"
	"github.com/bytecode-tools/typeflow/typeexec"
)

// FormatDiagnostic turns a verification failure into a user-facing message
// with the offending instruction, the operand mismatch if any, and a hint.
func FormatDiagnostic(m *typeflow.Method, verr *typeexec.VerifyError) string {
	if verr == nil {
		return "Verification failed, but no additional details were provided."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Verification failed in %s.\n", m.ID())
	fmt.Fprintf(&b, "- %s: %s\n", verr.Kind, verr.Message)
	if verr.Index >= 0 && verr.Index < len(m.Instructions) {
		fmt.Fprintf(&b, "  Location: instruction %d (%s)\n", verr.Index, m.Instructions[verr.Index].String())
	}
	if verr.Expected != "" {
		fmt.Fprintf(&b, "  Operand: expected %s, got %s\n", verr.Expected, verr.Actual)
	}
	if hint := hintFor(verr); hint != "" {
		fmt.Fprintf(&b, "  How to fix: %s\n", hint)
	}
	return b.String()
}

// FormatResults summarizes a batch: one line per method, followed by a
// diagnostic for each failure and each request error.
func FormatResults(results []typeexec.BatchResult) string {
	var b strings.Builder
	var details []string
	for _, r := range results {
		id := "<nil>"
		if r.Method != nil {
			id = r.Method.ID()
		}
		switch {
		case r.Err != nil:
			fmt.Fprintf(&b, "ERROR  %s: %v\n", id, r.Err)
		case r.Result.Outcome == typeexec.OutcomeFailure:
			fmt.Fprintf(&b, "FAIL   %s\n", id)
			details = append(details, FormatDiagnostic(r.Method, r.Result.Err))
		case r.Result.Outcome == typeexec.OutcomeCancelled:
			fmt.Fprintf(&b, "CANCEL %s\n", id)
		default:
			suffix := ""
			if n := len(r.Result.Unreachable); n > 0 {
				suffix = fmt.Sprintf(" (%d unreachable)", n)
			}
			fmt.Fprintf(&b, "OK     %s%s\n", id, suffix)
		}
	}
	for _, d := range details {
		b.WriteByte('\n')
		b.WriteString(d)
	}
	return b.String()
}

func hintFor(verr *typeexec.VerifyError) string {
	switch verr.Kind {
	case typeexec.TypeMismatch:
		if strings.Contains(verr.Message, "uninitialized") {
			return "The slot is unset on at least one path, or two paths store values of incompatible types into it. Store a value on every path or use separate locals."
		}
		if strings.Contains(verr.Message, "return") {
			return "Make the returned value match the method descriptor's return type."
		}
		return "Insert a conversion or checkcast before the instruction, or fix the descriptor it references."
	case typeexec.IllegalConstant:
		return "Use ldc/ldc_w for int, float, String and class constants and ldc2_w for long and double."
	case typeexec.StackOverflow:
		return "Increase maxStack or pop values that are no longer needed."
	case typeexec.StackUnderflow:
		return "Push the operands the instruction consumes first; check preceding branches leave the stack as expected."
	case typeexec.InvalidArrayOperation:
		return "Use the array instruction matching the array's element type (e.g. iaload for int[], aaload for Object[])."
	case typeexec.InvalidInvocation:
		return "Check the receiver is initialized, non-null and an instance of the method owner, and that arguments match the descriptor."
	case typeexec.UnsupportedInstruction:
		return "Subroutines (jsr/ret) and wide are not supported; inline finally blocks instead."
	case typeexec.LocalOutOfRange:
		return "Increase maxLocals so that every local index (and the second slot of long/double) fits."
	case typeexec.InvalidControlFlow:
		return "End every path with a return, throw or jump, and keep jump targets inside the code."
	case typeexec.StackMismatch:
		return "All paths reaching a merge point must leave the same number and kinds of values on the stack."
	}
	return ""
}

// FormatError renders any error from the analysis API, using
// FormatDiagnostic when it wraps a VerifyError.
func FormatError(m *typeflow.Method, err error) string {
	var verr *typeexec.VerifyError
	if errors.As(err, &verr) {
		return FormatDiagnostic(m, verr)
	}
	if errors.Is(err, typeexec.ErrIterationLimit) {
		return fmt.Sprintf("Analysis of %s did not converge.\n  How to fix: check the hierarchy oracle answers subtype queries consistently, or raise maxIterations.\n", m.ID())
	}
	return fmt.Sprintf("Analysis of %s failed: %v\n", m.ID(), err)
}
