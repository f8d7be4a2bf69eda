// Package listing renders methods, analysis frames and diagnostics as
// column-aligned text for terminals and reports.
package listing

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/bytecode-tools/typeflow"
	"github.com/bytecode-tools/typeflow/typeexec"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiDim   = "\x1b[2m"
	ansiBold  = "\x1b[1m"
)

// Options controls rendering.
type Options struct {
	// Color enables ANSI colours: failing instruction in red, unreachable
	// code dimmed.
	Color bool
	// Labels maps instruction indexes to label names shown in their own
	// column.
	Labels map[int][]string
	// PostFrames shows the frame after each instruction instead of before.
	PostFrames bool
	// MaxWidth truncates the frame column; zero disables truncation.
	MaxWidth int
}

// ColorEnabled reports whether w is a terminal that should get colours.
// NO_COLOR in the environment disables them.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type row struct {
	index string
	label string
	text  string
	frame string
	style string
}

// Render writes one line per instruction: index, labels, instruction text
// and the frame. res may be nil to list code only.
func Render(w io.Writer, m *typeflow.Method, res *typeexec.Result, opts Options) error {
	rows := make([]row, 0, len(m.Instructions)+1)
	rows = append(rows, row{index: "#", label: "label", text: "instruction", frame: frameHeader(res, opts)})

	for i := range m.Instructions {
		in := &m.Instructions[i]
		r := row{
			index: fmt.Sprintf("%d", i),
			label: strings.Join(opts.Labels[i], ","),
			text:  in.String(),
		}
		if res != nil {
			r.frame, r.style = frameCell(res, i, opts)
		}
		rows = append(rows, r)
	}

	widths := [3]int{}
	for _, r := range rows {
		widths[0] = max(widths[0], runewidth.StringWidth(r.index))
		widths[1] = max(widths[1], runewidth.StringWidth(r.label))
		widths[2] = max(widths[2], runewidth.StringWidth(r.text))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", m.ID(), methodSummary(m))
	for i, r := range rows {
		line := runewidth.FillLeft(r.index, widths[0]) + "  " +
			runewidth.FillRight(r.label, widths[1]) + "  " +
			runewidth.FillRight(r.text, widths[2])
		frame := r.frame
		if opts.MaxWidth > 0 {
			frame = runewidth.Truncate(frame, opts.MaxWidth, "...")
		}
		if frame != "" {
			line += "  " + frame
		}
		line = strings.TrimRight(line, " ")
		switch {
		case opts.Color && i == 0:
			line = ansiBold + line + ansiReset
		case opts.Color && r.style != "":
			line = r.style + line + ansiReset
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if res != nil {
		b.WriteString(resultFooter(res))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func frameHeader(res *typeexec.Result, opts Options) string {
	switch {
	case res == nil:
		return ""
	case opts.PostFrames:
		return "frame after"
	default:
		return "frame before"
	}
}

func frameCell(res *typeexec.Result, i int, opts Options) (string, string) {
	if res.Err != nil && res.Err.Index == i {
		return "!! " + res.Err.Kind.String() + ": " + res.Err.Message, ansiRed
	}
	frames := res.Frames
	if opts.PostFrames {
		frames = res.PostFrames
	}
	if i >= len(frames) || frames[i] == nil {
		if res.IsUnreachable(i) {
			return "unreachable", ansiDim
		}
		return "", ""
	}
	return FormatFrame(frames[i]), ""
}

// FormatFrame renders a frame as `[locals] | [stack]` with the stack top
// rightmost.
func FormatFrame(f *typeexec.Frame) string {
	locals := f.Locals()
	parts := make([]string, len(locals))
	for i, v := range locals {
		parts[i] = v.String()
	}
	stack := f.Stack()
	items := make([]string, len(stack))
	for i, v := range stack {
		items[i] = v.String()
	}
	return "[" + strings.Join(parts, " ") + "] | [" + strings.Join(items, " ") + "]"
}

func methodSummary(m *typeflow.Method) string {
	flags := ""
	if m.Static {
		flags = "static "
	}
	return fmt.Sprintf("(%smaxLocals=%d maxStack=%d, %d instructions, %d handlers)",
		flags, m.MaxLocals, m.MaxStack, len(m.Instructions), len(m.TryCatch))
}

func resultFooter(res *typeexec.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "outcome: %s after %d iterations", res.Outcome, res.Iterations)
	if len(res.Unreachable) > 0 {
		fmt.Fprintf(&b, ", unreachable: %v", res.Unreachable)
	}
	b.WriteByte('\n')
	return b.String()
}
