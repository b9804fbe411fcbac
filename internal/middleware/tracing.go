package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"kpidash/internal/infrastructure"
)

// Tracing opens a server span per request, continuing any W3C trace context
// the caller sent, and records the request metrics. The span is renamed to
// the chi route pattern once routing is done so dashboards group
// /api/sessions/{id}/view rather than one series per session. A nil tracer
// falls back to the global provider and nil metrics record nothing.
func Tracing(tracer trace.Tracer, metrics *infrastructure.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.ServerAddress(r.Host),
					semconv.UserAgentOriginal(r.UserAgent()),
					semconv.ClientAddress(ClientIP(r)),
				))
			defer span.End()
			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())

			metrics.RecordActiveRequest(ctx, 1)
			defer metrics.RecordActiveRequest(ctx, -1)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))
			elapsed := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				semconv.HTTPRoute(route),
				semconv.HTTPResponseStatusCode(status),
				semconv.HTTPResponseBodySize(ww.BytesWritten()),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			metrics.RecordHTTPRequest(ctx, r.Method, route, status, elapsed)

			logger.DebugContext(ctx, "HTTP request traced",
				slog.String("route", route),
				slog.Int("status_code", status),
				slog.Duration("duration", elapsed))
		})
	}
}

// routePattern is only complete after chi has routed the request
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// TraceWebSocket wraps the live channel upgrade in its own span. The span
// ends when the upgrade handler returns, not when the socket closes.
func TraceWebSocket(tracer trace.Tracer, logger *slog.Logger) func(http.Handler) http.Handler {
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := r.URL.Query().Get("session")
			ctx, span := tracer.Start(r.Context(), "websocket upgrade",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRoute("/ws"),
					attribute.String("websocket.origin", r.Header.Get("Origin")),
					attribute.String("session_id", session),
				))
			defer span.End()
			ctx = infrastructure.WithTraceID(ctx, span.SpanContext().TraceID().String())
			if session != "" {
				ctx = infrastructure.WithSessionID(ctx, session)
			}

			logger.InfoContext(ctx, "WebSocket upgrade attempt",
				slog.String("origin", r.Header.Get("Origin")))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type metricsKey struct{}

// WithMetrics makes metrics reachable from handlers through MetricsFrom
func WithMetrics(metrics *infrastructure.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), metricsKey{}, metrics)))
		})
	}
}

// MetricsFrom returns the request's metrics, or nil. Recorders are nil-safe.
func MetricsFrom(ctx context.Context) *infrastructure.Metrics {
	m, _ := ctx.Value(metricsKey{}).(*infrastructure.Metrics)
	return m
}

// RecordSystemError counts an unexpected error against component
func RecordSystemError(ctx context.Context, component string) {
	MetricsFrom(ctx).RecordSystemError(ctx, component)
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
