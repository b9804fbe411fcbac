package analytics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kpidash/pkg/contracts/domain"
)

// Config tunes the pipeline outputs
type Config struct {
	Window                int
	AvailabilityThreshold float64
	ShowThreshold         bool
}

// DefaultConfig returns the dashboard defaults
func DefaultConfig() Config {
	return Config{
		Window:                DefaultWindow,
		AvailabilityThreshold: DefaultAvailabilityThreshold,
		ShowThreshold:         true,
	}
}

// Pipeline is the stateless (Dataset, FilterState) -> RenderModel function.
// It holds configuration only and is safe for concurrent use.
type Pipeline struct {
	cfg    Config
	tracer trace.Tracer
}

// NewPipeline creates a pipeline
func NewPipeline(cfg Config) *Pipeline {
	if cfg.Window < 1 {
		cfg.Window = DefaultWindow
	}
	return &Pipeline{
		cfg:    cfg,
		tracer: otel.Tracer("kpidash/analytics"),
	}
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Build runs filter, aggregation and summary for one interaction
func (p *Pipeline) Build(ctx context.Context, ds *domain.Dataset, state domain.FilterState) domain.RenderModel {
	_, span := p.tracer.Start(ctx, "pipeline.build")
	defer span.End()

	res := Filter(ds, state)
	model := domain.RenderModel{
		State:   res.State,
		Options: res.Options,
		Metrics: domain.Metrics(),
		Rows:    res.View.Len(),
		Empty:   res.View.Len() == 0,
	}
	if bounds, ok := ds.DateBounds(); ok {
		model.Bounds = &bounds
	}

	model.Summary = Summarize(res.View)
	model.Trend = AggregateWindow(res.View, res.State.Metric, p.cfg.Window)
	model.Map = MapPoints(res.View)
	if p.cfg.ShowThreshold {
		model.Threshold = ThresholdFor(res.State.Metric, p.cfg.AvailabilityThreshold)
	}

	span.SetAttributes(
		attribute.String("filter.site", res.State.Site),
		attribute.String("filter.sector", res.State.Sector),
		attribute.String("filter.cell", res.State.Cell),
		attribute.String("filter.metric", string(res.State.Metric)),
		attribute.Int("view.rows", model.Rows),
		attribute.Int("trend.points", len(model.Trend)))
	return model
}

// Drill resolves a click against the view selected by state
func (p *Pipeline) Drill(ctx context.Context, ds *domain.Dataset, state domain.FilterState, clicked *time.Time) domain.DrillResult {
	_, span := p.tracer.Start(ctx, "pipeline.drill")
	defer span.End()

	result := Resolve(Filter(ds, state).View, clicked)
	span.SetAttributes(
		attribute.Bool("drill.idle", result.Idle),
		attribute.Int("drill.rows", result.Count))
	return result
}
