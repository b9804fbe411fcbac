package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"kpidash/internal/config"
	apierrors "kpidash/internal/errors"
	"kpidash/internal/infrastructure"
	customMiddleware "kpidash/internal/middleware"
	"kpidash/internal/services"
	handlers "kpidash/internal/transport/http"
	ws "kpidash/internal/websocket"
	"kpidash/pkg/contracts/events"
)

// PageTitle is shown in the dashboard header
const PageTitle = "Network KPI Dashboard"

// limiter entries idle this long are dropped
const rateLimitIdle = 10 * time.Minute

// Application represents the main application container
type Application struct {
	Config       *config.Config
	Paths        *config.Paths
	Router       *chi.Mux
	Server       *http.Server
	Logger       *slog.Logger
	Telemetry    *infrastructure.Telemetry
	Metrics      *infrastructure.Metrics
	Dashboard    *services.DashboardService
	Health       *services.HealthService
	WebSocketHub *ws.Hub
	RateLimiter  *customMiddleware.RateLimiter

	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.Validator
}

// NewApplication loads the configuration, installs the application logger
// and wires every component
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(cfg, nil)
}

// New wires an application from cfg. A nil logger installs one built from
// cfg.Logging.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	if logger == nil {
		logCfg := cfg.Logging
		logCfg.FilePath = paths.LogFile
		if logger, err = infrastructure.InitializeLogger(logCfg); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("addr", cfg.Server.Addr()))
	paths.LogPathResolution(logger)

	telemetry, err := infrastructure.NewTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	metrics, err := infrastructure.NewMetrics(telemetry.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	a := &Application{
		Config:       cfg,
		Paths:        paths,
		Logger:       logger,
		Telemetry:    telemetry,
		Metrics:      metrics,
		errorHandler: apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		validator:    customMiddleware.NewValidator(logger),
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up routes: %w", err)
	}
	a.createServer()
	return a, nil
}

func (a *Application) initializeServices() error {
	dashboard, err := services.NewDashboardService(a.Config, a.Paths, a.Metrics, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dashboard service: %w", err)
	}
	a.Dashboard = dashboard

	a.WebSocketHub = ws.NewHub(a.Metrics, a.Logger)
	dashboard.OnSessionsExpired(a.closeExpiredSessions)
	a.Health = services.NewHealthService(config.AppVersion, a.Paths, dashboard, a.WebSocketHub, a.Logger)

	if rl := a.Config.Security.RateLimit; rl.Enabled {
		a.RateLimiter = customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger, a.errorHandler)
	}
	return nil
}

// closeExpiredSessions ends the live channel of every expired session
func (a *Application) closeExpiredSessions(ids []string) {
	for _, id := range ids {
		a.WebSocketHub.CloseSession(id, &events.ErrorPayload{
			Code:    apierrors.CodeSessionNotFound,
			Message: "Session expired",
			Fatal:   true,
		})
	}
}

// setupRouter configures the HTTP router with all routes.
// Order: RequestID, RealIP, OTel, Logger, Recoverer, headers, CORS, rate
// limit, then per-group timeouts.
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// The live channel hijacks the connection, so it skips every middleware
	// that wraps the response writer or bounds the request lifetime.
	wsHandler := ws.NewHandler(a.WebSocketHub, a.Dashboard, a.validator, a.Config.WebSocket,
		a.Config.Security.AllowedOrigins, a.errorHandler, a.Logger)
	r.With(customMiddleware.TraceWebSocket(a.Telemetry.Tracer, a.Logger)).Handle("/ws", wsHandler)

	page, err := handlers.ServeDashboard(handlers.PageData{Title: PageTitle, Version: config.AppVersion}, a.Logger)
	if err != nil {
		return err
	}

	var gatherer prometheus.Gatherer
	if a.Telemetry.Registry != nil {
		gatherer = a.Telemetry.Registry
	}
	metricsHandler := handlers.NewMetricsHandler(gatherer, a.WebSocketHub)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Tracing(a.Telemetry.Tracer, a.Metrics, a.Logger))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.errorHandler.Recoverer)

		secure := customMiddleware.DefaultSecureHeaders()
		secure.DevMode = a.Config.Logging.Development
		r.Use(secure.Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				ExposedHeaders: []string{"Content-Disposition", "X-Export-Rows", "X-Request-ID"},
				MaxAge:         300,
				Logger:         a.Logger,
			}))
		}
		if a.RateLimiter != nil {
			r.Use(a.RateLimiter.Handler)
		}
		r.Use(customMiddleware.WithMetrics(a.Metrics))

		a.setupAPIRoutes(r, metricsHandler)

		r.Get("/", page)
		r.Get("/metrics", metricsHandler.Prometheus)
	})

	a.Router = r
	return nil
}

func (a *Application) setupAPIRoutes(r chi.Router, metricsHandler *handlers.MetricsHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger, a.errorHandler))
		r.Use(customMiddleware.Compress(5))
		r.Use(customMiddleware.AuditLog(a.Logger))

		healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		dashboardHandler := handlers.NewDashboardHandler(a.Dashboard, a.WebSocketHub, a.validator,
			a.errorHandler, a.Config.Dataset.MaxUploadBytes, a.Logger)
		r.Mount("/sessions", dashboardHandler.Routes())
		r.Get("/metrics/options", dashboardHandler.MetricOptions)
		r.Get("/metrics/live", metricsHandler.LiveChannel)

		clientLogHandler := handlers.NewClientLogHandler(a.validator, a.errorHandler, a.Logger)
		r.With(customMiddleware.ContentTypeValidator(a.errorHandler, "application/json")).
			Post("/logs", clientLogHandler.Handle)
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}
}

// Run serves on the configured address until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server and the background workers on ln until ctx is
// done or one of them fails, then shuts everything down
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.WebSocketHub.Run(gctx)
	})

	if interval := a.Config.Sessions.SweepInterval; interval > 0 {
		g.Go(func() error {
			return a.Dashboard.Store().Run(gctx, interval, a.Logger)
		})
	}

	if a.RateLimiter != nil {
		g.Go(func() error {
			a.pruneRateLimiter(gctx)
			return nil
		})
	}

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Server listening",
			slog.String("address", "http://"+ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.performStartupCheck(gctx)
		<-gctx.Done()
		return a.Stop()
	})

	return g.Wait()
}

func (a *Application) pruneRateLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.RateLimiter.Prune(rateLimitIdle); n > 0 {
				a.Logger.Debug("Pruned idle rate limiters", slog.Int("removed", n))
			}
		}
	}
}

// performStartupCheck loads the default dataset ahead of the first session
// and logs the readiness report
func (a *Application) performStartupCheck(ctx context.Context) {
	ds, err := a.Dashboard.DefaultDataset(ctx)
	switch {
	case err != nil:
		a.Logger.WarnContext(ctx, "Default dataset could not be loaded",
			slog.String("default_file", a.Config.Dataset.DefaultFile),
			slog.String("error", err.Error()))
	case ds == nil:
		a.Logger.InfoContext(ctx, "No default dataset; sessions start empty",
			slog.String("default_file", a.Config.Dataset.DefaultFile))
	default:
		a.Logger.InfoContext(ctx, "Default dataset loaded",
			slog.String("source", ds.Source),
			slog.Int("rows", ds.Len()))
	}

	if status := a.Health.ReadinessCheck(ctx); status.Status != "ready" {
		a.Logger.WarnContext(ctx, "Startup readiness check failed", slog.String("status", status.Status))
	}
}

// Stop gracefully shuts down the server and flushes telemetry
func (a *Application) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Logger.InfoContext(ctx, "Shutting down application")

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.Telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		a.Logger.ErrorContext(ctx, "Shutdown finished with errors", slog.String("error", err.Error()))
		return err
	}
	a.Logger.InfoContext(ctx, "Application stopped")
	return nil
}
