//go:build js && wasm

package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"syscall/js"

	"github.com/bytecode-tools/typeflow/pkg/fixture"
	"github.com/bytecode-tools/typeflow/pkg/listing"
	"github.com/bytecode-tools/typeflow/typeexec"
)

// VerifyFixture analyzes every method of a YAML fixture and returns the
// result summary with diagnostics.
func VerifyFixture(fixtureYAML string) (string, error) {
	fx, err := fixture.Parse([]byte(fixtureYAML))
	if err != nil {
		return "", err
	}

	opts := typeexec.DefaultOptions()
	opts.LogLevel = ""
	// Request errors are reported per method by FormatResults.
	results, _ := fx.Verify(context.Background(), opts, typeexec.BatchOptions{Concurrency: 1})

	var b strings.Builder
	b.WriteString(listing.FormatResults(results))
	for _, m := range fx.Check(results) {
		fmt.Fprintf(&b, "MISMATCH %s\n", m)
	}
	return b.String(), nil
}

// InspectMethod analyzes one method of a YAML fixture and returns its
// listing with the frame before every instruction.
func InspectMethod(fixtureYAML, id string) (string, error) {
	fx, err := fixture.Parse([]byte(fixtureYAML))
	if err != nil {
		return "", err
	}
	m, ok := fx.Method(id)
	if !ok {
		return "", fmt.Errorf("no method %s in fixture", id)
	}

	opts := typeexec.DefaultOptions()
	opts.LogLevel = ""
	opts.Hierarchy = fx.Hierarchy
	res, err := typeexec.Analyze(context.Background(), m, opts)
	if err != nil {
		return listing.FormatError(m, err), nil
	}

	var buf bytes.Buffer
	if err := listing.Render(&buf, m, res, listing.Options{Labels: fx.LabelsAt(id)}); err != nil {
		return "", err
	}
	if res.Err != nil {
		buf.WriteString("\n" + listing.FormatDiagnostic(m, res.Err))
	}
	return buf.String(), nil
}

// promisify wraps a Go function to return a JavaScript Promise
func promisify(fn func(args []js.Value) (string, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) interface{} {
			resolve := promiseArgs[0]
			reject := promiseArgs[1]

			go func() {
				result, err := fn(args)
				if err != nil {
					errorConstructor := js.Global().Get("Error")
					errorObject := errorConstructor.New(err.Error())
					reject.Invoke(errorObject)
					return
				}

				resolve.Invoke(result)
			}()

			// The handler of a Promise doesn't return any value
			return nil
		})

		promiseConstructor := js.Global().Get("Promise")
		return promiseConstructor.New(handler)
	})
}

func main() {
	js.Global().Set("VerifyFixture", promisify(func(args []js.Value) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("VerifyFixture: expected 1 arg (fixtureYAML), got %v", len(args))
		}

		return VerifyFixture(args[0].String())
	}))

	js.Global().Set("InspectMethod", promisify(func(args []js.Value) (string, error) {
		if len(args) != 2 {
			return "", fmt.Errorf("InspectMethod: expected 2 args (fixtureYAML, methodID), got %v", len(args))
		}

		return InspectMethod(args[0].String(), args[1].String())
	}))

	// Keep the program running
	<-make(chan bool)
}
