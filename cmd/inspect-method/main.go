package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bytecode-tools/typeflow"
	"github.com/bytecode-tools/typeflow/pkg/fixture"
	"github.com/bytecode-tools/typeflow/pkg/listing"
	"github.com/bytecode-tools/typeflow/typeexec"
)

// inspect-method dumps every method of a fixture: the raw instruction
// operands, then the analyzed frames.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s fixture.yaml [method-id...]\n", os.Args[0])
		os.Exit(2)
	}
	fx, err := fixture.Load(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ids := os.Args[2:]
	if len(ids) == 0 {
		for _, m := range fx.Methods {
			ids = append(ids, m.ID())
		}
	}

	opts := typeexec.DefaultOptions()
	opts.Hierarchy = fx.Hierarchy
	opts.LogLevel = ""

	for _, id := range ids {
		fmt.Printf("\n=== %s ===\n", id)
		m, ok := fx.Method(id)
		if !ok {
			fmt.Printf("not found\n")
			continue
		}

		for i, in := range m.Instructions {
			fmt.Printf("%3d: %-15s %v\n", i, in.Op, operands(in))
		}
		fmt.Println()

		res, err := typeexec.Analyze(context.Background(), m, opts)
		if err != nil {
			fmt.Print(listing.FormatError(m, err))
			continue
		}
		err = listing.Render(os.Stdout, m, res, listing.Options{
			Labels:     fx.LabelsAt(id),
			PostFrames: true,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, e := range res.Edges {
			fmt.Printf("  edge %d -> %d (%s)\n", e.From, e.To, e.Kind)
		}
	}
}

func operands(in typeflow.Instruction) []any {
	var out []any
	switch {
	case in.Const != nil:
		out = append(out, in.Const)
	case in.Owner != "":
		out = append(out, in.Owner, in.Name, in.Desc)
	case in.Desc != "":
		out = append(out, in.Name, in.Desc)
	case in.Type != "":
		out = append(out, in.Type)
	}
	if in.Op.IsJump() || in.Op.IsSwitch() {
		out = append(out, in.Target)
		for i, t := range in.Targets {
			if i < len(in.Keys) {
				out = append(out, fmt.Sprintf("%d:%d", in.Keys[i], t))
			} else {
				out = append(out, t)
			}
		}
	}
	if in.Var != 0 || in.Incr != 0 {
		out = append(out, in.Var, in.Incr)
	}
	if in.Operand != 0 || in.Dims != 0 {
		out = append(out, in.Operand, in.Dims)
	}
	return out
}
