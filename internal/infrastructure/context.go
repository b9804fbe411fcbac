package infrastructure

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	sessionIDKey
)

// WithTraceID stores the request trace ID in ctx
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the request trace ID, falling back to the trace ID of
// the active OpenTelemetry span
func GetTraceID(ctx context.Context) string {
	if id, _ := ctx.Value(traceIDKey).(string); id != "" {
		return id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// WithSessionID stores the dashboard session ID in ctx
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetSessionID returns the dashboard session ID, or ""
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}
