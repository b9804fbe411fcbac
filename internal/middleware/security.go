package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// plotlyCDN serves the charting library the dashboard page loads
const plotlyCDN = "https://cdn.plot.ly"

// SecureHeaders sets browser hardening headers on every response except
// WebSocket upgrades. Empty fields fall back to the defaults below.
type SecureHeaders struct {
	HSTSMaxAge        time.Duration
	CSP               string
	FrameOptions      string
	ReferrerPolicy    string
	PermissionsPolicy string

	// DevMode allows scripts, styles and connections from any origin
	DevMode bool
}

// DefaultSecureHeaders returns the production header set
func DefaultSecureHeaders() *SecureHeaders {
	return &SecureHeaders{
		HSTSMaxAge:        2 * 365 * 24 * time.Hour,
		FrameOptions:      "DENY",
		ReferrerPolicy:    "strict-origin-when-cross-origin",
		PermissionsPolicy: "camera=(), geolocation=(), microphone=(), payment=(), usb=()",
	}
}

// Handler returns the middleware. The header set is fixed when Handler is
// called.
func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	static := http.Header{}
	static.Set("X-Content-Type-Options", "nosniff")
	static.Set("Content-Security-Policy", sh.csp())
	for name, value := range map[string]string{
		"X-Frame-Options":    sh.FrameOptions,
		"Referrer-Policy":    sh.ReferrerPolicy,
		"Permissions-Policy": sh.PermissionsPolicy,
	} {
		if value != "" {
			static.Set(name, value)
		}
	}
	hsts := ""
	if sh.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(int(sh.HSTSMaxAge.Seconds())) + "; includeSubDomains"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			h := w.Header()
			for name, values := range static {
				h[name] = values
			}
			// HSTS is ignored by browsers over plain HTTP
			if hsts != "" && r.TLS != nil {
				h.Set("Strict-Transport-Security", hsts)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (sh *SecureHeaders) csp() string {
	if sh.CSP != "" {
		return sh.CSP
	}
	directives := []string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline' 'unsafe-eval' " + plotlyCDN,
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: blob:",
		"font-src 'self' data:",
		"connect-src 'self' ws: wss: " + plotlyCDN,
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}
	if sh.DevMode {
		directives = []string{
			"default-src 'self'",
			"script-src 'self' 'unsafe-inline' 'unsafe-eval' *",
			"style-src 'self' 'unsafe-inline' *",
			"img-src * data: blob:",
			"connect-src *",
		}
	}
	return strings.Join(directives, "; ")
}

// AuditLog records state-changing requests such as uploads and session
// deletion
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			start := time.Now()
			ww := &auditResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.InfoContext(ctx, "audit log",
				slog.String("event_type", "api_mutation"),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", ClientIP(r)),
				slog.Int64("content_length", r.ContentLength),
				slog.Int("status", ww.statusCode),
				slog.Duration("duration", time.Since(start)))
		})
	}
}

// auditResponseWriter captures the response status code
type auditResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *auditResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *auditResponseWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}
