package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"kpidash/internal/analytics"
	"kpidash/internal/config"
	"kpidash/internal/dataprocessing"
	"kpidash/internal/exporter"
	"kpidash/internal/infrastructure"
	"kpidash/internal/validation"
	api "kpidash/pkg/contracts/api/v1"
	"kpidash/pkg/contracts/domain"
)

// DashboardService owns sessions and runs the dashboard pipeline for them
type DashboardService struct {
	cfg      *config.Config
	paths    *config.Paths
	loader   *dataprocessing.Loader
	pipeline *analytics.Pipeline
	exporter *exporter.Exporter
	store    *SessionStore
	metrics  *infrastructure.Metrics
	logger   *slog.Logger
	closer   func(ids []string)

	group       singleflight.Group
	defaultMu   sync.RWMutex
	defaultData *domain.Dataset
}

// NewDashboardService wires the loader, pipeline and session store from cfg.
// metrics may be nil.
func NewDashboardService(cfg *config.Config, paths *config.Paths, metrics *infrastructure.Metrics, logger *slog.Logger) (*DashboardService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mode, err := dataprocessing.ParseDateMode(cfg.Dataset.DateMode)
	if err != nil {
		return nil, fmt.Errorf("dataset config: %w", err)
	}

	loader := dataprocessing.NewLoader(dataprocessing.Options{
		DateMode:           mode,
		RequireCoordinates: cfg.Dataset.RequireCoordinates,
		CollapseWhitespace: cfg.Dataset.CollapseWhitespace,
		MaxBadDateRatio:    cfg.Dataset.MaxBadDateRatio,
	}, logger)

	pipeline := analytics.NewPipeline(analytics.Config{
		Window:                cfg.Dashboard.RollingWindow,
		AvailabilityThreshold: cfg.Dashboard.AvailabilityThreshold,
		ShowThreshold:         cfg.Dashboard.ShowThreshold,
	})

	logger = logger.With(slog.String("component", "dashboard_service"))
	logger.Info("DashboardService initialized",
		slog.String("default_file", cfg.Dataset.DefaultFile),
		slog.String("date_mode", string(mode)),
		slog.Int("rolling_window", cfg.Dashboard.RollingWindow),
		slog.Int("max_sessions", cfg.Sessions.MaxSessions))

	svc := &DashboardService{
		cfg:      cfg,
		paths:    paths,
		loader:   loader,
		pipeline: pipeline,
		exporter: exporter.New(paths, logger),
		store:    NewSessionStore(cfg.Sessions.IdleTTL, cfg.Sessions.MaxSessions),
		metrics:  metrics,
		logger:   logger,
	}
	svc.store.OnExpire(svc.sessionsExpired)
	return svc, nil
}

// OnSessionsExpired sets the function that releases resources held by
// expired sessions, such as their live channel clients. Set it before
// serving.
func (s *DashboardService) OnSessionsExpired(fn func(ids []string)) {
	s.closer = fn
}

func (s *DashboardService) sessionsExpired(ids []string) {
	ctx := context.Background()
	s.metrics.RecordSessionChange(ctx, -int64(len(ids)))
	for _, id := range ids {
		s.logger.InfoContext(ctx, "Session expired", slog.String("session_id", id))
	}
	if s.closer != nil {
		s.closer(ids)
	}
}

// Store exposes the session store for the sweeper and health checks
func (s *DashboardService) Store() *SessionStore {
	return s.store
}

// Metrics lists the metric selector options
func (s *DashboardService) Metrics() api.MetricsResponse {
	return api.MetricsResponse{Metrics: domain.Metrics(), Default: domain.DefaultMetric}
}

// DefaultDataset returns the shared start-up dataset. It is loaded once;
// concurrent callers share one load. A missing file yields nil, nil.
func (s *DashboardService) DefaultDataset(ctx context.Context) (*domain.Dataset, error) {
	s.defaultMu.RLock()
	ds := s.defaultData
	s.defaultMu.RUnlock()
	if ds != nil {
		return ds, nil
	}

	v, err, _ := s.group.Do("default", func() (interface{}, error) {
		s.defaultMu.RLock()
		cached := s.defaultData
		s.defaultMu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		path, ok := s.findDefault()
		if !ok {
			s.logger.DebugContext(ctx, "No default dataset found",
				slog.String("default_file", s.cfg.Dataset.DefaultFile))
			return (*domain.Dataset)(nil), nil
		}

		loaded, err := s.loadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		s.defaultMu.Lock()
		s.defaultData = loaded
		s.defaultMu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Dataset), nil
}

func (s *DashboardService) findDefault() (string, bool) {
	if s.paths == nil {
		if config.FileExists(s.cfg.Dataset.DefaultFile) {
			return s.cfg.Dataset.DefaultFile, true
		}
		return "", false
	}
	return s.paths.FindDataset(s.cfg.Dataset.DefaultFile)
}

func (s *DashboardService) loadFile(ctx context.Context, path string) (*domain.Dataset, error) {
	start := time.Now()
	ds, err := s.loader.LoadFile(ctx, path)
	s.metrics.RecordDatasetLoad(ctx, time.Since(start), err, droppedRows(ds))
	return ds, err
}

// CreateSession starts a session on the default dataset, if any. A default
// dataset that fails to load is reported in DatasetError; the session is
// still created.
func (s *DashboardService) CreateSession(ctx context.Context) (*api.SessionResponse, error) {
	ds, loadErr := s.DefaultDataset(ctx)
	if loadErr != nil {
		s.logger.WarnContext(ctx, "Default dataset failed to load",
			slog.String("default_file", s.cfg.Dataset.DefaultFile),
			slog.String("error", loadErr.Error()))
		s.metrics.RecordSystemError(ctx, "dataset")
	}

	sess, err := s.store.Create(ds)
	if err != nil {
		s.logger.WarnContext(ctx, "Session rejected",
			slog.Int("sessions", s.store.Len()),
			slog.String("error", err.Error()))
		return nil, err
	}
	s.metrics.RecordSessionChange(ctx, 1)

	s.logger.InfoContext(ctx, "Session created",
		slog.String("session_id", sess.ID),
		slog.Bool("has_dataset", sess.Dataset != nil))

	resp := sessionResponse(sess)
	if loadErr != nil {
		resp.DatasetError = loadErr.Error()
	}
	return resp, nil
}

// Session returns the session description
func (s *DashboardService) Session(ctx context.Context, id string) (*api.SessionResponse, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return sessionResponse(sess), nil
}

// DeleteSession ends a session
func (s *DashboardService) DeleteSession(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.metrics.RecordSessionChange(ctx, -1)
	s.logger.InfoContext(ctx, "Session deleted", slog.String("session_id", id))
	return nil
}

// Upload replaces the session dataset with the uploaded file and resets the
// filter state to the new dataset's defaults
func (s *DashboardService) Upload(ctx context.Context, id, filename string, r io.Reader) (*api.SessionResponse, error) {
	if _, err := s.store.Get(id); err != nil {
		return nil, err
	}

	name := filepath.Base(filename)
	if err := validation.CheckName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileType, err)
	}

	limit := s.cfg.Dataset.MaxUploadBytes
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrUploadTooLarge, limit)
	}

	start := time.Now()
	ds, err := s.loader.Load(ctx, bytes.NewReader(data), name)
	s.metrics.RecordDatasetLoad(ctx, time.Since(start), err, droppedRows(ds))
	if err != nil {
		s.logger.WarnContext(ctx, "Upload rejected",
			slog.String("session_id", id),
			slog.String("file", name),
			slog.String("error", err.Error()))
		return nil, err
	}

	sess, err := s.store.Update(id, func(sess *Session) error {
		sess.Dataset = ds
		sess.State = domain.DefaultFilterState(ds)
		sess.Selected = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Dataset uploaded",
		slog.String("session_id", id),
		slog.String("file", name),
		slog.Int("rows", ds.Len()),
		slog.Int("bytes", len(data)))
	return sessionResponse(sess), nil
}

// View applies req to the session dataset and returns the render model.
// Fields left empty in req fall back to the full date range and wildcards.
func (s *DashboardService) View(ctx context.Context, id string, req api.FilterRequest) (*domain.RenderModel, error) {
	sess, err := s.sessionWithData(id)
	if err != nil {
		return nil, err
	}

	state, err := req.ToState(domain.DefaultFilterState(sess.Dataset))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	start := time.Now()
	model := s.pipeline.Build(ctx, sess.Dataset, state)
	s.metrics.RecordPipeline(ctx, "build", time.Since(start))

	if _, err := s.store.Update(id, func(sess *Session) error {
		sess.State = model.State
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "View rendered",
		slog.String("session_id", id),
		slog.String("site", model.State.Site),
		slog.String("sector", model.State.Sector),
		slog.String("cell", model.State.Cell),
		slog.String("metric", string(model.State.Metric)),
		slog.Int("rows", model.Rows))
	return &model, nil
}

// Drill resolves a trend click against the session's current view. An empty
// date yields the idle result.
func (s *DashboardService) Drill(ctx context.Context, id string, req api.ClickRequest) (*domain.DrillResult, error) {
	sess, err := s.sessionWithData(id)
	if err != nil {
		return nil, err
	}

	var clicked *time.Time
	if strings.TrimSpace(req.Date) != "" {
		day, err := analytics.ParseClick(req.Date)
		if err != nil {
			return nil, err
		}
		clicked = &day
	}

	start := time.Now()
	result := s.pipeline.Drill(ctx, sess.Dataset, sess.State, clicked)
	s.metrics.RecordPipeline(ctx, "drill", time.Since(start))
	s.metrics.RecordDrill(ctx, result.Idle, result.Count)

	if _, err := s.store.Update(id, func(sess *Session) error {
		sess.Selected = result.Date
		return nil
	}); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExportResult is a prepared download
type ExportResult struct {
	Filename    string
	ContentType string
	Format      string
	Scope       string
	Rows        int

	records  []domain.Record
	exporter *exporter.Exporter
}

// NewExportResult prepares records for download as format. source and date
// name the file.
func NewExportResult(exp *exporter.Exporter, source, format, scope string, date *time.Time, records []domain.Record) *ExportResult {
	return &ExportResult{
		Filename:    exporter.Filename(source, scope, date, format),
		ContentType: exporter.ContentType(format),
		Format:      format,
		Scope:       scope,
		Rows:        len(records),
		records:     records,
		exporter:    exp,
	}
}

// WriteTo encodes the prepared rows to w
func (e *ExportResult) WriteTo(w io.Writer) error {
	return e.exporter.Write(w, e.Format, e.records)
}

// Export prepares the rows of the current view, or of one drilled date, for
// download. A drill export without a date uses the last clicked date.
func (s *DashboardService) Export(ctx context.Context, id string, req api.ExportRequest) (*ExportResult, error) {
	req = req.WithDefaults()
	sess, err := s.sessionWithData(id)
	if err != nil {
		return nil, err
	}

	var records []domain.Record
	var date *time.Time
	switch req.Scope {
	case api.ScopeView:
		records = analytics.Filter(sess.Dataset, sess.State).View.Records()
	case api.ScopeDrill:
		date = sess.Selected
		if req.Date != "" {
			day, err := analytics.ParseClick(req.Date)
			if err != nil {
				return nil, err
			}
			date = &day
		}
		if date == nil {
			return nil, fmt.Errorf("%w: drill export needs a date", ErrInvalidExport)
		}
		records = s.pipeline.Drill(ctx, sess.Dataset, sess.State, date).Records
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidExport, req.Scope)
	}
	if req.Format != exporter.FormatCSV && req.Format != exporter.FormatXLSX {
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidExport, req.Format)
	}

	s.metrics.RecordExport(ctx, req.Format, req.Scope)
	s.logger.InfoContext(ctx, "Export prepared",
		slog.String("session_id", id),
		slog.String("format", req.Format),
		slog.String("scope", req.Scope),
		slog.Int("rows", len(records)))

	return NewExportResult(s.exporter, sess.Dataset.Source, req.Format, req.Scope, date, records), nil
}

func (s *DashboardService) sessionWithData(id string) (*Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Dataset == nil {
		return nil, ErrNoDataset
	}
	return sess, nil
}

func sessionResponse(sess *Session) *api.SessionResponse {
	return &api.SessionResponse{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		LastSeen:  sess.LastSeen,
		State:     sess.State,
		Dataset:   api.NewDatasetInfo(sess.Dataset),
	}
}

// droppedRows maps drop reasons to counts for the load metrics
func droppedRows(ds *domain.Dataset) map[string]int {
	if ds == nil {
		return nil
	}
	return map[string]int{
		"site":         ds.Stats.DroppedSite,
		"date":         ds.Stats.DroppedDate,
		"traffic":      ds.Stats.MissingTraffic,
		"availability": ds.Stats.MissingAvailability,
		"location":     ds.Stats.MissingLocation,
	}
}
