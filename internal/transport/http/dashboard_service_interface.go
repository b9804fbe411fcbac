package http

import (
	"context"
	"io"

	"kpidash/internal/services"
	api "kpidash/pkg/contracts/api/v1"
	"kpidash/pkg/contracts/domain"
	"kpidash/pkg/contracts/events"
)

// DashboardService defines the session operations behind the dashboard API
type DashboardService interface {
	CreateSession(ctx context.Context) (*api.SessionResponse, error)
	Session(ctx context.Context, id string) (*api.SessionResponse, error)
	DeleteSession(ctx context.Context, id string) error
	Upload(ctx context.Context, id, filename string, r io.Reader) (*api.SessionResponse, error)
	View(ctx context.Context, id string, req api.FilterRequest) (*domain.RenderModel, error)
	Drill(ctx context.Context, id string, req api.ClickRequest) (*domain.DrillResult, error)
	Export(ctx context.Context, id string, req api.ExportRequest) (*services.ExportResult, error)
	Metrics() api.MetricsResponse
}

// SessionNotifier pushes session changes to live clients
type SessionNotifier interface {
	NotifySession(sessionID string, msg events.ServerMessage) int
	CloseSession(sessionID string, reason *events.ErrorPayload)
}
