package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestSlogBridge_ContextFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "info", Component: "router"}, &buf)
	log := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithGridVersion(ctx, 0xbeef)
	log.DebugContext(ctx, "hidden")
	log.With("policy", "avoid").InfoContext(ctx, "route", "expanded", 42, "took", 3*time.Millisecond)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1 (debug filtered): %v", len(lines), lines)
	}
	l := lines[0]
	want := map[string]any{
		"msg":          "route",
		"level":        "info",
		"component":    "router",
		"request_id":   "req-1",
		"grid_version": "beef",
		"policy":       "avoid",
		"expanded":     float64(42),
	}
	for k, v := range want {
		if l[k] != v {
			t.Fatalf("%s=%v want %v (line %v)", k, l[k], v, l)
		}
	}
	if _, ok := l["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", l)
	}
}

func TestSlogBridge_Groups(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug"}, &buf)
	log := NewSlog(&zl).WithGroup("cache")
	log.Debug("lookup", "tier", "memory")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["cache.tier"] != "memory" {
		t.Fatalf("grouped attr missing: %v", lines)
	}
}

func TestWithRequestID_GeneratesWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if id := RequestID(ctx); len(id) != 16 {
		t.Fatalf("generated id=%q want 16 hex chars", id)
	}
	if RequestID(context.Background()) != "" {
		t.Fatalf("expected empty id without value")
	}
}
