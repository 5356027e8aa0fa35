package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	lg, err := New(Options{Level: "info", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.Debug("hidden")
	lg.Info("added entries", "count", 2)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "count=2") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	lg, err := New(Options{Level: "debug", Format: "JSON", Writer: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.Debug("step", "command", "by")
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("not json: %v: %q", err, buf.String())
	}
	if m["command"] != "by" {
		t.Fatalf("missing attr: %v", m)
	}
}

func TestNewRejectsFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, " INFO ": slog.LevelInfo, "error": slog.LevelError,
		"warn": slog.LevelWarn, "": slog.LevelWarn, "loud": slog.LevelWarn,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestNewNop(t *testing.T) {
	NewNop().Error("dropped")
}
