package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/Strob0t/taskalign/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc"}
	l, closer := New(cfg)
	defer closer.Close()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewAsync(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc", Async: true}
	l, closer := New(cfg)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	closer.Close()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	// Empty context returns empty string
	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	// Set and retrieve
	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := Repository(ctx); got != "" {
		t.Errorf("expected empty repository, got %q", got)
	}
	ctx = WithRepository(ctx, "acme/api")
	if got := Repository(ctx); got != "acme/api" || RequestID(ctx) != "req-123" {
		t.Errorf("expected both values, got %q %q", got, RequestID(ctx))
	}
}

func TestContextAttributes(t *testing.T) {
	for _, async := range []bool{false, true} {
		var buf bytes.Buffer
		l, closer := NewWithWriter(config.Logging{Level: "info", Service: "taskalign", Async: async}, &buf)

		traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
		spanID, _ := trace.SpanIDFromHex("0102030405060708")
		sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
		ctx := WithRepository(WithRequestID(context.Background(), "req-9"), "acme/api")
		ctx = trace.ContextWithSpanContext(ctx, sc)

		l.InfoContext(ctx, "verify done")
		closer.Close()

		var rec map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
			t.Fatalf("async=%v: decode log line: %v (%q)", async, err, buf.String())
		}
		if rec["request_id"] != "req-9" {
			t.Errorf("async=%v: expected request_id req-9, got %v", async, rec["request_id"])
		}
		if rec["trace_id"] != traceID.String() {
			t.Errorf("async=%v: expected trace_id, got %v", async, rec["trace_id"])
		}
		if rec["repository"] != "acme/api" {
			t.Errorf("async=%v: expected repository attr, got %v", async, rec["repository"])
		}
		if rec["service"] != "taskalign" {
			t.Errorf("async=%v: expected service attr, got %v", async, rec["service"])
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, closer := NewWithWriter(config.Logging{Level: "warn", Service: "s"}, &buf)
	defer closer.Close()

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}
	l.Warn("shown")
	if buf.Len() == 0 {
		t.Fatal("expected warn record")
	}
}
