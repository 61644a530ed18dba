package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "loader")).Info(context.Background(), "loaded", Int("rows", 3), Err(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "loaded" {
		t.Errorf("msg = %v, want loaded", entry["msg"])
	}
	if entry["component"] != "loader" {
		t.Errorf("component = %v, want loader", entry["component"])
	}
	if entry["rows"] != float64(3) {
		t.Errorf("rows = %v, want 3", entry["rows"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "text", Output: &buf})

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden too")
	log.Warn(context.Background(), "visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("expected warn line, got %q", out)
	}
}

func TestNonTerminalDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	if got := resolveFormat("", &buf); got != "json" {
		t.Fatalf("resolveFormat = %q, want json", got)
	}
	if got := resolveFormat("TEXT", &buf); got != "text" {
		t.Fatalf("resolveFormat = %q, want text", got)
	}
}

func TestContextLogger(t *testing.T) {
	if _, ok := FromContext(context.Background()).(noopLogger); !ok {
		t.Fatal("expected noop logger from empty context")
	}

	var buf bytes.Buffer
	log := New(Config{Format: "text", Output: &buf})
	ctx := ContextWithLogger(context.Background(), log)
	FromContext(ctx).Info(ctx, "from context")

	if !strings.Contains(buf.String(), "from context") {
		t.Fatalf("expected context logger to be used, got %q", buf.String())
	}
}
