package typeexec

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/itchyny/timefmt-go"
)

// LogLevel is the severity of a log line. Higher levels are more verbose.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelNames = [...]string{"ERROR", "WARN", "INFO", "DEBUG"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLogLevel maps a level name to a LogLevel, case-insensitively.
// Unknown names mean LevelWarn.
func ParseLogLevel(s string) LogLevel {
	s = strings.ToUpper(s)
	if s == "WARNING" {
		return LevelWarn
	}
	for i, name := range levelNames {
		if name == s {
			return LogLevel(i)
		}
	}
	return LevelWarn
}

// Logger receives the analyzer's progress lines.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)

	// IsEnabled reports whether lines at level are written, so callers can
	// skip building expensive fields.
	IsEnabled(level LogLevel) bool

	// With returns a child logger carrying the extra fields.
	With(fields map[string]any) Logger
}

// DefaultLogTimeFormat is the strftime pattern used for log timestamps.
const DefaultLogTimeFormat = "%Y-%m-%dT%H:%M:%S.%fZ"

// textLogger writes `[LEVEL] ts msg k=v ...` lines with sorted keys.
type textLogger struct {
	out        io.Writer
	level      LogLevel
	timeFormat string
	now        func() time.Time
	fields     map[string]any

	// mu is shared with children so lines never interleave.
	mu *sync.Mutex
}

// NewLogger creates a text logger writing to w (os.Stderr when nil).
func NewLogger(level LogLevel, w io.Writer) Logger {
	return newLogger(level, w, DefaultLogTimeFormat)
}

func newLogger(level LogLevel, w io.Writer, timeFormat string) *textLogger {
	if w == nil {
		w = os.Stderr
	}
	return &textLogger{
		out:        w,
		level:      level,
		timeFormat: timeFormat,
		now:        time.Now,
		mu:         &sync.Mutex{},
	}
}

func (l *textLogger) IsEnabled(level LogLevel) bool { return level <= l.level }

func (l *textLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	child := *l
	child.fields = make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range fields {
		child.fields[k] = v
	}
	return &child
}

func (l *textLogger) Debugf(format string, args ...any) { l.write(LevelDebug, format, args) }
func (l *textLogger) Infof(format string, args ...any)  { l.write(LevelInfo, format, args) }
func (l *textLogger) Warnf(format string, args ...any)  { l.write(LevelWarn, format, args) }

func (l *textLogger) write(level LogLevel, format string, args []any) {
	if !l.IsEnabled(level) {
		return
	}
	var b strings.Builder
	b.WriteString("[" + level.String() + "] ")
	if l.timeFormat != "" {
		b.WriteString(timefmt.Format(l.now().UTC(), l.timeFormat))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, format, args...)

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" " + k + "=" + fieldString(l.fields[k]))
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}

// fieldString quotes values containing whitespace or control characters.
func fieldString(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
	if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' }) >= 0 {
		return fmt.Sprintf("%q", s)
	}
	return s
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any)         {}
func (noopLogger) Infof(string, ...any)          {}
func (noopLogger) Warnf(string, ...any)          {}
func (noopLogger) IsEnabled(LogLevel) bool       { return false }
func (n noopLogger) With(map[string]any) Logger { return n }

// loggerFor picks the logger an analysis writes to.
func loggerFor(opts Options) Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	if opts.LogLevel == "" {
		return noopLogger{}
	}
	format := opts.LogTimeFormat
	if format == "" {
		format = DefaultLogTimeFormat
	}
	return newLogger(ParseLogLevel(opts.LogLevel), nil, format)
}

// stackPreview renders the top depth entries of the stack, top first.
func stackPreview(f *Frame, depth int) string {
	if f == nil {
		return "<none>"
	}
	items := make([]string, 0, len(f.stack))
	for i := len(f.stack) - 1; i >= 0; i-- {
		items = append(items, f.stack[i].String())
	}
	return "[" + truncateList(items, depth) + "]"
}

// localsPreview renders the initialized locals as index:value pairs.
func localsPreview(f *Frame, limit int) string {
	if f == nil {
		return "<none>"
	}
	items := make([]string, 0, len(f.locals))
	for i, v := range f.locals {
		if v.IsUninitialized() {
			continue
		}
		items = append(items, fmt.Sprintf("%d:%s", i, v))
	}
	return "{" + truncateList(items, limit) + "}"
}

// truncateList joins items with "," and appends +N past max.
func truncateList(items []string, max int) string {
	if max <= 0 || len(items) <= max {
		return strings.Join(items, ",")
	}
	return strings.Join(items[:max], ",") + fmt.Sprintf(",+%d", len(items)-max)
}
