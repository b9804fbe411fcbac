package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"kpidash/internal/dataprocessing"
	"kpidash/internal/infrastructure"
	"kpidash/internal/services"
)

// ErrorHandler renders every failure as an RFC 7807 problem
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler returns a handler logging through logger. includeStack
// adds goroutine stacks to 5xx problems and is meant for development.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// traceID prefers the ID set by the request middleware over chi's
func traceID(ctx context.Context) string {
	if id := infrastructure.GetTraceID(ctx); id != "" {
		return id
	}
	return middleware.GetReqID(ctx)
}

// respond stamps the trace id on problem and writes it
func (h *ErrorHandler) respond(w http.ResponseWriter, r *http.Request, problem *ProblemDetails) {
	problem.WithExtension("trace_id", traceID(r.Context()))
	if err := render.Render(w, r, problem); err != nil {
		h.logger.WarnContext(r.Context(), "problem response not written", slog.String("error", err.Error()))
	}
}

// HandleError logs err and answers with its problem. Server errors log at
// error level, everything else at warn. A nil err writes nothing.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
		if h.includeStack {
			problem.WithExtension("stack", string(debug.Stack()))
		}
	}
	h.logger.LogAttrs(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", traceID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))

	h.respond(w, r, problem)
}

// ErrorToProblem maps err to its problem without writing anything.
// Cancelled and timed out contexts become 504.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", r.URL.Path)
	}
	apiErr := ToAPIError(err)
	problem := NewProblemDetails(apiErr.StatusCode, problemTypeFor(apiErr.ErrorCode),
		http.StatusText(apiErr.StatusCode), apiErr.Message, r.URL.Path).
		WithExtension("error_code", apiErr.ErrorCode)
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// ToAPIError classifies err into the API error vocabulary. Unknown errors
// become a generic internal error so their text never reaches the client.
func ToAPIError(err error) *APIError {
	var (
		apiErr     *APIError
		missing    *dataprocessing.MissingColumnError
		dates      *dataprocessing.DateParseError
		loadErr    *dataprocessing.LoadError
		maxBytes   *http.MaxBytesError
		validation validator.ValidationErrors
	)

	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &validation):
		fields := make([]ValidationError, 0, len(validation))
		for _, fe := range validation {
			fields = append(fields, ValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on the %q rule", fe.Tag()),
			})
		}
		return NewValidationErrors(fields)
	case errors.As(err, &missing):
		return MissingColumn(missing.Column, missing.Present)
	case errors.As(err, &dates):
		return BadDates(DateDetails{
			Column:   dates.Column,
			Bad:      dates.Bad,
			Total:    dates.Total,
			MaxRatio: dates.MaxRatio,
			Sample:   dates.Sample,
		})
	case errors.Is(err, dataprocessing.ErrEmpty):
		return ErrDatasetEmpty
	case errors.Is(err, dataprocessing.ErrUnreadable):
		source := "file"
		if errors.As(err, &loadErr) && loadErr.Source != "" {
			source = loadErr.Source
		}
		return DatasetUnreadable(source)
	case errors.As(err, &maxBytes), errors.Is(err, services.ErrUploadTooLarge):
		return ErrPayloadTooLarge
	case errors.Is(err, services.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, services.ErrSessionLimit):
		return ErrSessionLimit
	case errors.Is(err, services.ErrNoDataset):
		return ErrNoDataset
	case errors.Is(err, services.ErrInvalidClick):
		return NewWithDetails(http.StatusBadRequest, CodeInvalidClick, ErrInvalidClick.Message, err.Error())
	case errors.Is(err, services.ErrInvalidFileType), errors.Is(err, services.ErrInvalidExport),
		errors.Is(err, services.ErrInvalidFilter):
		return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, msgValidation, err.Error())
	case errors.Is(err, services.ErrServiceUnavailable):
		return ErrServiceUnavailable
	default:
		return ErrInternalServer
	}
}

// Recoverer turns handler panics into 500 problems. http.ErrAbortHandler
// is re-raised so net/http can abort the connection.
func (h *ErrorHandler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.HandlePanic(w, r, rec)
		}()
		next.ServeHTTP(w, r)
	})
}

// HandlePanic answers a recovered panic. The panic value only reaches the
// client when stacks are enabled.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	stack := string(debug.Stack())
	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", traceID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", stack))

	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal,
		"Internal Server Error", "An unexpected error occurred", r.URL.Path)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprint(recovered)).WithExtension("stack", stack)
	}
	h.respond(w, r, problem)
}

// NotFound is the router's 404 handler
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, NewProblemDetails(http.StatusNotFound, TypeNotFound,
		"Not Found", "The requested resource was not found", r.URL.Path))
}

// MethodNotAllowed is the router's 405 handler
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, NewProblemDetails(http.StatusMethodNotAllowed, TypeMethodNotAllowed,
		"Method Not Allowed", fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path))
}
