package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"kpidash/internal/config"
)

// process-wide logger installed by InitializeLogger
var logState struct {
	sync.Mutex
	logger *slog.Logger
	file   *os.File
}

// InitializeLogger builds the application logger from cfg and makes it the
// slog default. Output is "stdout" (default), "file" or "both". A previous
// log file is closed.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var (
		w    io.Writer = os.Stdout
		file *os.File
	)
	if out := strings.ToLower(cfg.Output); out == "file" || out == "both" {
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		file = f
		w = f
		if out == "both" {
			w = io.MultiWriter(os.Stdout, f)
		}
	}

	logger := NewLogger(w, cfg)

	logState.Lock()
	if logState.file != nil {
		logState.file.Close()
	}
	logState.logger, logState.file = logger, file
	logState.Unlock()

	slog.SetDefault(logger)
	return logger, nil
}

// NewLogger returns a JSON logger on w. Records logged with a context get
// trace_id, span_id and session_id attributes when the context carries them.
func NewLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	return slog.New(contextHandler{slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: cfg.Development,
		Level:     ParseLogLevel(cfg.Level),
	})})
}

// GetLogger returns the logger installed by InitializeLogger, or the slog
// default before that
func GetLogger() *slog.Logger {
	logState.Lock()
	defer logState.Unlock()
	if logState.logger != nil {
		return logState.logger
	}
	return slog.Default()
}

// CloseLogFile closes the log file opened by InitializeLogger, if any
func CloseLogFile() error {
	logState.Lock()
	defer logState.Unlock()
	if logState.file == nil {
		return nil
	}
	err := logState.file.Close()
	logState.file = nil
	return err
}

// ResetLoggerForTesting forgets the installed logger. Tests only.
func ResetLoggerForTesting() {
	CloseLogFile()
	logState.Lock()
	logState.logger = nil
	logState.Unlock()
}

// ParseLogLevel maps a configured level name to a slog.Level. Unknown names
// mean info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}
	if id := GetSessionID(ctx); id != "" {
		r.AddAttrs(slog.String("session_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return f, nil
}
