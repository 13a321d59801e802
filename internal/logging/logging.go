package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
)

const logFileName = "m-voice.log"

// redactedKeys: attribute keys whose values never reach the log output.
var redactedKeys = map[string]struct{}{
	"pass":          {},
	"password":      {},
	"authorization": {},
	"dsn":           {},
}

// New: builds the process logger and installs it as the slog default. With
// traceIDs set, records logged under an active span carry trace_id and span_id.
// A non-empty LogDir adds a rotated file next to stdout.
func New(cfg config.LoggingConfig, traceIDs bool) (*slog.Logger, error) {
	out, file, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler = tint.NewHandler(out, &tint.Options{
		Level:       parseLevel(cfg.Level),
		TimeFormat:  time.RFC3339,
		AddSource:   true,
		NoColor:     file != nil,
		ReplaceAttr: redact,
	})
	if traceIDs {
		handler = traceHandler{next: handler}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	if file != nil {
		logger.Info("file_logging_enabled", "path", file.Filename, "trace_ids", traceIDs)
	}
	return logger, nil
}

func openOutput(cfg config.LoggingConfig) (io.Writer, *lumberjack.Logger, error) {
	dir := strings.TrimSpace(cfg.LogDir)
	if dir == "" {
		return os.Stdout, nil, nil
	}
	if cfg.MaxSizeMB <= 0 || cfg.MaxBackups < 0 || cfg.MaxAgeDays < 0 {
		return nil, nil, fmt.Errorf("invalid log rotation: size=%dMB backups=%d age=%dd",
			cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return io.MultiWriter(os.Stdout, file), file, nil
}

func redact(_ []string, attr slog.Attr) slog.Attr {
	if _, ok := redactedKeys[strings.ToLower(attr.Key)]; ok {
		return slog.String(attr.Key, "[redacted]")
	}
	return attr
}

func parseLevel(level string) slog.Level {
	var parsed slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	}
	if err := parsed.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return parsed
}

// traceHandler: copies the active span ids onto each record.
type traceHandler struct {
	next slog.Handler
}

func (h traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h traceHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, record)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{next: h.next.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{next: h.next.WithGroup(name)}
}
