package http

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

//go:embed web/index.html
var webFS embed.FS

var dashboardTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

// PageData fills the dashboard page template
type PageData struct {
	Title   string
	Version string
}

// ServeDashboard serves the single-page dashboard at /. The page is rendered
// once; every request gets the same bytes.
func ServeDashboard(data PageData, logger *slog.Logger) (http.HandlerFunc, error) {
	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	page := buf.Bytes()
	modified := time.Now()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, "index.html", modified, bytes.NewReader(page))
		logger.DebugContext(r.Context(), "dashboard page served",
			slog.String("remote_addr", r.RemoteAddr))
	}, nil
}
