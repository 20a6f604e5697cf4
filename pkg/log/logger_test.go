// Structured logging tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newTestLogger(prefix string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(prefix)
	l.SetWriter(&buf)
	l.SetColorize(false)
	l.SetLevel(DEBUG)
	return l, &buf
}

func TestLoggerText(t *testing.T) {
	l, buf := newTestLogger("driver")
	l.Info("moved %d steps", 42)

	out := buf.String()
	for _, want := range []string{"[INFO ]", "driver:", "moved 42 steps"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLoggerLevels(t *testing.T) {
	l, buf := newTestLogger("test")
	l.SetLevel(WARN)

	l.Debug("d")
	l.Info("i")
	if buf.Len() != 0 {
		t.Fatalf("expected DEBUG and INFO filtered, got %q", buf.String())
	}
	l.Warn("w")
	l.Error("e")
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Errorf("got %d lines, want 2", got)
	}
	if l.Enabled(INFO) || !l.Enabled(ERROR) {
		t.Error("Enabled disagrees with level")
	}
}

func TestLoggerJSON(t *testing.T) {
	l, buf := newTestLogger("sim")
	l.SetFormat(FormatJSON)
	l.WithField("segment", 3).WithField("pen", true).Info("segment started")

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry.Level != "INFO" || entry.Logger != "sim" || entry.Message != "segment started" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["segment"] != float64(3) || entry.Fields["pen"] != true {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestFieldsAreSortedInText(t *testing.T) {
	l, buf := newTestLogger("test")
	l.WithFields(Fields{"b": 2, "a": 1}).Warn("x")
	if !strings.Contains(buf.String(), "{a=1, b=2}") {
		t.Errorf("fields not sorted: %q", buf.String())
	}
}

func TestWithError(t *testing.T) {
	l, buf := newTestLogger("test")
	l.WithError(errors.New("boom")).Error("failed")
	if !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("missing error field: %q", buf.String())
	}
}

func TestWithPrefixSharesOutput(t *testing.T) {
	root, buf := newTestLogger("root")
	child := root.WithPrefix("stepper")
	root.SetLevel(ERROR)
	child.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("child ignored root level: %q", buf.String())
	}
	child.Error("shown")
	if !strings.Contains(buf.String(), "stepper: shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWithPersistentFields(t *testing.T) {
	l, buf := newTestLogger("test")
	l.With(Fields{"session": "abc"}).Info("hello")
	if !strings.Contains(buf.String(), "session=abc") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCaller(t *testing.T) {
	l, buf := newTestLogger("test")
	l.SetCaller(true)
	l.Info("where")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Errorf("caller missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"Error":   ERROR,
		"bogus":   INFO,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if LogLevel(9).String() != "UNKNOWN" {
		t.Error("out-of-range level name")
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Setenv("PENBOT_LOG_LEVEL", "error")
	t.Setenv("PENBOT_LOG_FORMAT", "json")
	l, buf := newTestLogger("env")
	ConfigureFromEnv(l)
	l.Warn("filtered")
	l.Error("kept")
	if strings.Contains(buf.String(), "filtered") || !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("env not applied: %q", buf.String())
	}
}
