package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConsoleHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	NewComponentLogger(logger, "router").Info("decision made", String(FieldBin, "red_bin"))

	line := buf.String()
	if !strings.Contains(line, "router: decision made") {
		t.Errorf("expected component prefix in output, got %q", line)
	}
	if !strings.Contains(line, "bin=red_bin") {
		t.Errorf("expected bin attr in output, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Errorf("component should be folded into prefix, got %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("lookup", String(FieldCard, "Lightning Bolt"))

	if !strings.Contains(buf.String(), `card="Lightning Bolt"`) {
		t.Errorf("expected quoted multi-word value, got %q", buf.String())
	}
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Errorf("info line leaked through warn filter: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestNoopHandlerDiscards(t *testing.T) {
	h := NoopHandler{}
	if h.Enabled(context.Background(), slog.LevelError) {
		t.Error("noop handler should never be enabled")
	}
	rec := slog.NewRecord(time.Now(), slog.LevelError, "msg", 0)
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Errorf("Handle() = %v, want nil", err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error for unsupported format")
	}
}
