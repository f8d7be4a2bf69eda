package typeexec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixedLogger(level LogLevel, buf *bytes.Buffer, format string) *textLogger {
	l := newLogger(level, buf, format)
	l.now = func() time.Time { return time.Date(2024, 3, 9, 10, 4, 5, 0, time.UTC) }
	return l
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(LevelInfo, &buf, "%Y")

	l.With(map[string]any{"x": "pc", "pc": 3}).Infof("hello %s", "x")
	if got, want := buf.String(), "[INFO] 2024 hello x pc=3 x=pc\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	buf.Reset()
	l.Debugf("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written at info level: %q", buf.String())
	}

	buf.Reset()
	l.With(map[string]any{"frame": "a b"}).Warnf("quoted")
	if got, want := buf.String(), "[WARN] 2024 quoted frame=\"a b\"\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoggerWithDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	parent := fixedLogger(LevelDebug, &buf, "")
	child := parent.With(map[string]any{"exec": "e1"})
	child.With(map[string]any{"pc": 1}).Debugf("step")
	parent.Debugf("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{"[DEBUG] step exec=e1 pc=1", "[DEBUG] plain"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"error": LevelError,
		"WARN":  LevelWarn,
		"info":  LevelInfo,
		"debug": LevelDebug,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestFramePreviews(t *testing.T) {
	f := frameWith(3, 4, []Value{IntValue(1), Uninitialized, StringValue("s")}, IntValue(1), IntValue(2), IntValue(3), IntValue(4))
	if got, want := stackPreview(f, 2), "[I(4),I(3),+2]"; got != want {
		t.Errorf("stackPreview = %q, want %q", got, want)
	}
	if got, want := localsPreview(f, 6), `{0:I(1),2:Ljava/lang/String;("s")}`; got != want {
		t.Errorf("localsPreview = %q, want %q", got, want)
	}
	if stackPreview(nil, 3) != "<none>" {
		t.Error("nil frame preview")
	}
}

func TestLoggerForOptions(t *testing.T) {
	if _, ok := loggerFor(Options{}).(noopLogger); !ok {
		t.Error("empty LogLevel should disable logging")
	}
	l, ok := loggerFor(Options{LogLevel: "debug"}).(*textLogger)
	if !ok || l.level != LevelDebug || l.timeFormat != DefaultLogTimeFormat {
		t.Errorf("unexpected logger for debug level: %#v", l)
	}
	custom := NewLogger(LevelError, nil)
	if loggerFor(Options{Logger: custom, LogLevel: "debug"}) != custom {
		t.Error("Options.Logger should take precedence")
	}
}

func TestLevelNames(t *testing.T) {
	for _, l := range []LogLevel{LevelError, LevelWarn, LevelInfo, LevelDebug} {
		if ParseLogLevel(l.String()) != l {
			t.Errorf("ParseLogLevel(%s) does not round-trip", l)
		}
	}
	if LogLevel(9).String() != "UNKNOWN" || ParseLogLevel("loud") != LevelWarn {
		t.Error("unexpected handling of unknown levels")
	}
	l := newLogger(LevelInfo, nil, "")
	if !l.IsEnabled(LevelWarn) || l.IsEnabled(LevelDebug) {
		t.Error("IsEnabled disagrees with the configured level")
	}
}
