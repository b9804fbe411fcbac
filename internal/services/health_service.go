package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"kpidash/internal/config"
	"kpidash/internal/files"
	"kpidash/pkg/contracts"
)

// ClientCounter reports connected live clients
type ClientCounter interface {
	ClientCount() int
}

// Health states reported by the probes
const (
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusDegraded = "degraded"
)

// HealthService answers the health, readiness and liveness probes
type HealthService struct {
	version   string
	paths     *config.Paths
	dashboard *DashboardService
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the body of every probe response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth is the outcome of one readiness check
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. dashboard and clients may be
// nil; their checks then report not_ready.
func NewHealthService(version string, paths *config.Paths, dashboard *DashboardService, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		paths:     paths,
		dashboard: dashboard,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

func (hs *HealthService) status(s string) HealthStatus {
	return HealthStatus{Status: s, Timestamp: time.Now(), Version: hs.version}
}

// HealthCheck reports that the process is serving
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check", slog.Duration("uptime", time.Since(hs.startTime)))
	return hs.status("ok")
}

// ReadinessCheck runs every dependency check. Any not_ready check makes the
// whole status not_ready; degraded checks do not.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := hs.status(StatusReady)
	status.Services = map[string]ServiceHealth{
		"data":      hs.checkDataHealth(),
		"sessions":  hs.checkSessionHealth(),
		"dataset":   hs.checkDatasetHealth(ctx),
		"websocket": hs.checkWebSocketHealth(),
	}
	for name, sh := range status.Services {
		if sh.Status != StatusNotReady {
			continue
		}
		hs.logger.WarnContext(ctx, "Readiness check failed",
			slog.String("service", name),
			slog.String("message", sh.Message))
		status.Status = StatusNotReady
	}
	return status
}

// LivenessCheck reports process runtime figures
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	status := hs.status("alive")
	status.Runtime = map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	return status
}

// Version describes the build and how long it has been running
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":     hs.version,
		"api_version": info.APIVersion,
		"stage":       info.Stage,
		"build_time":  info.BuildTime,
		"git_commit":  info.GitCommit,
		"modified":    info.Modified,
		"go_version":  info.GoVersion,
		"os":          info.OS,
		"arch":        info.Architecture,
		"uptime":      time.Since(hs.startTime).Seconds(),
		"start_time":  hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "paths not resolved"}
	}
	info, err := os.Stat(hs.paths.DataDir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("Data directory not found: %s", hs.paths.DataDir),
		}
	}
	found, err := files.NewDiscovery("").FindKPIFiles(hs.paths.DataDir)
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("Data directory is accessible (%d KPI files)", len(found)),
	}
}

func (hs *HealthService) checkSessionHealth() ServiceHealth {
	if hs.dashboard == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "dashboard service not initialized"}
	}
	store := hs.dashboard.Store()
	if store.max > 0 && store.Len() >= store.max {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("session limit reached (%d)", store.max),
		}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d active sessions", store.Len()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// checkDatasetHealth reports the default dataset. A missing default file is
// not a readiness failure since users can upload their own.
func (hs *HealthService) checkDatasetHealth(ctx context.Context) ServiceHealth {
	if hs.dashboard == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "dashboard service not initialized"}
	}
	ds, err := hs.dashboard.DefaultDataset(ctx)
	switch {
	case err != nil:
		return ServiceHealth{Status: StatusDegraded, Message: err.Error()}
	case ds == nil:
		return ServiceHealth{Status: StatusReady, Message: "no default dataset; upload required"}
	default:
		return ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("%s: %d rows", ds.Source, ds.Len())}
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: StatusReady, Message: "WebSocket service disabled"}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d clients connected", hs.clients.ClientCount()),
	}
}
