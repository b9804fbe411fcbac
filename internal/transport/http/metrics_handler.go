package http

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kpidash/internal/websocket"
)

// LiveStats reports live channel counters
type LiveStats interface {
	Stats() websocket.Stats
	ClientCount() int
}

// MetricsHandler exposes Prometheus metrics and live channel counters
type MetricsHandler struct {
	prometheus http.Handler
	live       LiveStats
}

// NewMetricsHandler creates a metrics handler. A nil gatherer disables
// /metrics; a nil live source disables the live counters.
func NewMetricsHandler(gatherer prometheus.Gatherer, live LiveStats) *MetricsHandler {
	h := &MetricsHandler{live: live}
	if gatherer != nil {
		h.prometheus = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return h
}

// Prometheus handles GET /metrics
func (h *MetricsHandler) Prometheus(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.Error(w, "metrics are disabled", http.StatusNotFound)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// LiveChannel handles GET /api/metrics/live
func (h *MetricsHandler) LiveChannel(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		render.JSON(w, r, map[string]interface{}{"enabled": false})
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"enabled": true,
		"clients": h.live.ClientCount(),
		"stats":   h.live.Stats(),
	})
}
