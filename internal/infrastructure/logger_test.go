package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"kpidash/internal/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestInitializeLogger(t *testing.T) {
	prev := slog.Default()
	ResetLoggerForTesting()
	t.Cleanup(func() {
		ResetLoggerForTesting()
		slog.SetDefault(prev)
	})

	logFile := filepath.Join(t.TempDir(), "nested", "kpidash.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())
	assert.Same(t, logger, slog.Default())

	logger.Info("dataset loaded", "rows_kept", 8)
	logger.Debug("suppressed")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	entries := decodeLines(t, bytes.NewBuffer(content))
	require.Len(t, entries, 1)
	assert.Equal(t, "dataset loaded", entries[0]["msg"])
	assert.Equal(t, float64(8), entries[0]["rows_kept"])
	assert.Equal(t, "INFO", entries[0]["level"])
}

func TestInitializeLoggerRejectsEmptyFilePath(t *testing.T) {
	ResetLoggerForTesting()
	t.Cleanup(ResetLoggerForTesting)

	_, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log file path is empty")
}

func TestGetLoggerFallsBackToDefault(t *testing.T) {
	ResetLoggerForTesting()
	assert.Same(t, slog.Default(), GetLogger())
}

func TestTraceHandlerInjectsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, config.LoggingConfig{Level: "debug"})

	ctx := WithSessionID(WithTraceID(context.Background(), "trace-123"), "session-9")
	logger.InfoContext(ctx, "view built")
	logger.With("component", "dashboard").WithGroup("g").InfoContext(ctx, "grouped", "k", "v")
	logger.Info("no context ids")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)
	assert.Equal(t, "trace-123", entries[0]["trace_id"])
	assert.Equal(t, "session-9", entries[0]["session_id"])
	assert.Equal(t, "dashboard", entries[1]["component"])
	assert.NotContains(t, entries[2], "trace_id")
	assert.NotContains(t, entries[2], "session_id")
}

func TestTraceIDFromSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	want := span.SpanContext().TraceID().String()
	assert.Equal(t, want, GetTraceID(ctx))

	// explicit request ids win
	assert.Equal(t, "explicit", GetTraceID(WithTraceID(ctx, "explicit")))

	var buf bytes.Buffer
	NewLogger(&buf, config.LoggingConfig{Level: "info"}).InfoContext(ctx, "in span")
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, want, entries[0]["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entries[0]["span_id"])
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.in))
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSessionID(ctx))

	ctx = WithSessionID(WithTraceID(ctx, "t-1"), "s-1")
	assert.Equal(t, "t-1", GetTraceID(ctx))
	assert.Equal(t, "s-1", GetSessionID(ctx))
	assert.Empty(t, GetTraceID(WithTraceID(ctx, "")), "empty id falls through")
}
