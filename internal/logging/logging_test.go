package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
)

func TestNewCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.LoggingConfig{
		LogDir:     dir,
		Level:      "info",
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
		Compress:   true,
	}
	if _, err := New(cfg, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, logFileName)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file, got error: %v", err)
	}
}

func TestNewRejectsInvalidRotation(t *testing.T) {
	tests := []config.LoggingConfig{
		{LogDir: t.TempDir(), MaxSizeMB: 0, MaxBackups: 1, MaxAgeDays: 1},
		{LogDir: t.TempDir(), MaxSizeMB: 1, MaxBackups: -1, MaxAgeDays: 1},
	}
	for _, cfg := range tests {
		if _, err := New(cfg, false); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"INFO":    slog.LevelInfo,
	}
	for input, want := range tests {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestRedactMasksCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{ReplaceAttr: redact}))

	logger.Info("login", "user", "dialogflow", "Password", "hunter2", "authorization", "Basic abc")
	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "Basic abc") {
		t.Fatalf("credentials leaked: %s", out)
	}
	if !strings.Contains(out, "user=dialogflow") {
		t.Fatalf("expected plain attrs to pass through: %s", out)
	}
}

func TestTraceHandlerAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(traceHandler{next: slog.NewTextHandler(&buf, nil)})

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced")
	if !strings.Contains(buf.String(), "trace_id=0102030405060708090a0b0c0d0e0f10") {
		t.Fatalf("expected trace id in output: %s", buf.String())
	}

	buf.Reset()
	logger.Info("untraced")
	if strings.Contains(buf.String(), "trace_id") {
		t.Fatalf("unexpected trace id in output: %s", buf.String())
	}
}
