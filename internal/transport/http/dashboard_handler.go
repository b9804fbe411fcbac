package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "kpidash/internal/errors"
	"kpidash/internal/middleware"
	api "kpidash/pkg/contracts/api/v1"
	"kpidash/pkg/contracts/events"
)

// multipart framing allowance on top of the upload limit
const multipartOverhead = 1 << 20

// DashboardHandler serves the session API with RFC 7807 errors
type DashboardHandler struct {
	service      DashboardService
	notifier     SessionNotifier
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	maxUpload    int64
	logger       *slog.Logger
}

// NewDashboardHandler creates the session handler. notifier may be nil when
// the live channel is disabled.
func NewDashboardHandler(service DashboardService, notifier SessionNotifier, validator *middleware.Validator,
	errorHandler *apierrors.ErrorHandler, maxUpload int64, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		notifier:     notifier,
		validator:    validator,
		errorHandler: errorHandler,
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
	}
}

// Routes returns the session routes, mounted under /api/sessions
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSession)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/dataset", h.Upload)
		r.Get("/view", h.View)
		r.Get("/drill", h.Drill)
		r.Get("/export", h.Export)
	})

	return r
}

// SessionCtx rejects malformed session IDs before they reach the service
func (h *DashboardHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.validator.Var("id", chi.URLParam(r, "id"), "required,uuid"); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSession handles POST /api/sessions
func (h *DashboardHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.CreateSession(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sess)
}

// GetSession handles GET /api/sessions/{id}
func (h *DashboardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, sess)
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *DashboardHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteSession(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if h.notifier != nil {
		h.notifier.CloseSession(id, &events.ErrorPayload{
			Code:    apierrors.CodeSessionNotFound,
			Message: "Session was closed",
			Fatal:   true,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload handles POST /api/sessions/{id}/dataset. The multipart "file" part
// is streamed to the loader without buffering the whole form.
func (h *DashboardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	}

	part, err := filePart(r, "file")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer part.Close()

	sess, err := h.service.Upload(ctx, id, part.FileName(), part)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if h.notifier != nil {
		msg := events.NewServerMessage(events.MessageTypeDataset, "")
		msg.Dataset = sess.Dataset
		h.notifier.NotifySession(id, msg)
	}
	render.JSON(w, r, sess)
}

// filePart returns the first multipart part named field
func filePart(r *http.Request, field string) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, apierrors.ErrValidation(field, fmt.Sprintf("%s is required", field))
		}
		if err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				return nil, err
			}
			return nil, apierrors.InvalidRequestWithError(err)
		}
		if part.FormName() == field && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

// View handles GET /api/sessions/{id}/view
func (h *DashboardHandler) View(w http.ResponseWriter, r *http.Request) {
	req := api.FilterRequestFromQuery(r.URL.Query())
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	model, err := h.service.View(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, model)
}

// Drill handles GET /api/sessions/{id}/drill
func (h *DashboardHandler) Drill(w http.ResponseWriter, r *http.Request) {
	req := api.ClickRequest{Date: r.URL.Query().Get("date")}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Drill(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Export handles GET /api/sessions/{id}/export
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := api.ExportRequestFromQuery(r.URL.Query())
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.Export(ctx, chi.URLParam(r, "id"), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.Header().Set("X-Export-Rows", strconv.Itoa(res.Rows))
	w.WriteHeader(http.StatusOK)

	if err := res.WriteTo(w); err != nil {
		// headers are gone; the client sees a truncated file
		h.logger.ErrorContext(ctx, "export stream failed",
			slog.String("error", err.Error()),
			slog.String("filename", res.Filename))
		middleware.RecordSystemError(ctx, "export")
	}
}

// MetricOptions handles GET /api/metrics/options
func (h *DashboardHandler) MetricOptions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Metrics())
}
