package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records the service's business instruments. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	httpRequests metric.Int64Counter
	httpDuration metric.Float64Histogram
	httpInFlight metric.Int64UpDownCounter
	datasetLoads metric.Int64Counter
	datasetTime  metric.Float64Histogram
	rowsDropped  metric.Int64Counter
	pipelineTime metric.Float64Histogram
	sessions     metric.Int64UpDownCounter
	drills       metric.Int64Counter
	exports      metric.Int64Counter
	liveClients  metric.Int64UpDownCounter
	systemErrors metric.Int64Counter
}

// instruments collects the first creation error so NewMetrics reads as a list
type instruments struct {
	meter metric.Meter
	err   error
}

func (b *instruments) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	b.keep(err)
	return c
}

func (b *instruments) upDown(name, desc string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	b.keep(err)
	return c
}

func (b *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	b.keep(err)
	return h
}

func (b *instruments) keep(err error) {
	if b.err == nil {
		b.err = err
	}
}

// NewMetrics registers every instrument on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	b := &instruments{meter: meter}
	m := &Metrics{
		httpRequests: b.counter("http_requests_total", "HTTP requests by method, route and status"),
		httpDuration: b.seconds("http_request_duration_seconds", "HTTP request latency"),
		httpInFlight: b.upDown("http_active_requests", "HTTP requests in flight"),
		datasetLoads: b.counter("dataset_loads_total", "Dataset load attempts by outcome"),
		datasetTime:  b.seconds("dataset_load_duration_seconds", "Dataset load latency"),
		rowsDropped:  b.counter("dataset_rows_dropped_total", "Rows dropped while cleaning, by reason"),
		pipelineTime: b.seconds("pipeline_duration_seconds", "Dashboard pipeline latency by stage"),
		sessions:     b.upDown("sessions_active", "Live dashboard sessions"),
		drills:       b.counter("drills_total", "Drill-down resolutions by outcome"),
		exports:      b.counter("exports_total", "Exports by format and scope"),
		liveClients:  b.upDown("websocket_clients", "Connected live channel clients"),
		systemErrors: b.counter("system_errors_total", "Unexpected server-side errors by component"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) RecordActiveRequest(ctx context.Context, delta int64) {
	if m != nil {
		m.httpInFlight.Add(ctx, delta)
	}
}

// RecordDatasetLoad counts a load attempt. dropped maps a drop reason to its
// row count and is ignored for failed loads.
func (m *Metrics) RecordDatasetLoad(ctx context.Context, d time.Duration, err error, dropped map[string]int) {
	if m == nil {
		return
	}
	outcome := attribute.String("status", "success")
	if err != nil {
		outcome = attribute.String("status", "failure")
	}
	m.datasetLoads.Add(ctx, 1, metric.WithAttributes(outcome))
	m.datasetTime.Record(ctx, d.Seconds(), metric.WithAttributes(outcome))
	if err != nil {
		return
	}
	for reason, n := range dropped {
		if n > 0 {
			m.rowsDropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
		}
	}
}

func (m *Metrics) RecordPipeline(ctx context.Context, stage string, d time.Duration) {
	if m != nil {
		m.pipelineTime.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
	}
}

func (m *Metrics) RecordSessionChange(ctx context.Context, delta int64) {
	if m != nil {
		m.sessions.Add(ctx, delta)
	}
}

// RecordDrill labels a resolution idle, miss (no rows) or hit
func (m *Metrics) RecordDrill(ctx context.Context, idle bool, rows int) {
	if m == nil {
		return
	}
	outcome := "hit"
	if idle {
		outcome = "idle"
	} else if rows == 0 {
		outcome = "miss"
	}
	m.drills.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordExport(ctx context.Context, format, scope string) {
	if m != nil {
		m.exports.Add(ctx, 1, metric.WithAttributes(
			attribute.String("format", format), attribute.String("scope", scope)))
	}
}

func (m *Metrics) RecordWebSocketClient(ctx context.Context, delta int64) {
	if m != nil {
		m.liveClients.Add(ctx, delta)
	}
}

func (m *Metrics) RecordSystemError(ctx context.Context, component string) {
	if m != nil {
		m.systemErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
	}
}
