package log

import (
	"strings"
	"testing"
)

type captureOutput struct {
	lines []string
}

func (c *captureOutput) Write(_ *Entry, formatted []byte) error {
	c.lines = append(c.lines, string(formatted))
	return nil
}

func (c *captureOutput) Close() error { return nil }

func TestLevelGating(t *testing.T) {
	out := &captureOutput{}
	l := NewLogger(WithLevel(WarnLevel), WithFormatter(&TextFormatter{}), WithOutput(out))
	l.Debug("dropped")
	l.Info("dropped too")
	l.Warn("kept")
	if len(out.lines) != 1 {
		t.Fatalf("want 1 line, got %d: %v", len(out.lines), out.lines)
	}
	if !strings.Contains(out.lines[0], "WARN kept") {
		t.Fatalf("unexpected line: %q", out.lines[0])
	}
}

func TestWithFieldsPropagate(t *testing.T) {
	out := &captureOutput{}
	l := NewLogger(WithLevel(DebugLevel), WithFormatter(&TextFormatter{}), WithOutput(out))
	child := l.With(Component("persister"), Str("group", "event_group"))
	child.Info("stored event", Uint64("trace_id", 42))
	if len(out.lines) != 1 {
		t.Fatalf("want 1 line, got %d", len(out.lines))
	}
	line := out.lines[0]
	for _, want := range []string{"component=persister", "group=event_group", "trace_id=42"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("debug"); err != nil || lvl != DebugLevel {
		t.Fatalf("parse debug: %v %v", lvl, err)
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestJSONFormatter(t *testing.T) {
	out := &captureOutput{}
	l := NewLogger(WithLevel(InfoLevel), WithFormatter(&JSONFormatter{}), WithOutput(out))
	l.Info("hello", Int("n", 3))
	if len(out.lines) != 1 {
		t.Fatalf("want 1 line")
	}
	if !strings.Contains(out.lines[0], `"msg":"hello"`) || !strings.Contains(out.lines[0], `"n":3`) {
		t.Fatalf("unexpected json: %q", out.lines[0])
	}
}
