package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Error codes carried in the error_code extension of problem responses
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeDatasetUnreadable = "DATASET_UNREADABLE"
	CodeDatasetEmpty      = "DATASET_EMPTY"
	CodeMissingColumn     = "MISSING_COLUMN"
	CodeBadDates          = "BAD_DATES"
	CodeSessionNotFound   = "SESSION_NOT_FOUND"
	CodeSessionLimit      = "SESSION_LIMIT"
	CodeNoDataset         = "NO_DATASET"
	CodeInvalidClick      = "INVALID_CLICK"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
	CodeServiceDown       = "SERVICE_UNAVAILABLE"
	CodeWebSocketUpgrade  = "WEBSOCKET_UPGRADE_FAILED"
)

// APIError is a classified failure. StatusCode picks the HTTP status and
// ErrorCode the problem type; Details becomes the "details" extension.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// Render lets an APIError be rendered directly with chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError names one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the details payload of a multi-field rejection
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ColumnDetails identifies the offending column of a rejected dataset
type ColumnDetails struct {
	Column  string   `json:"column"`
	Present []string `json:"present,omitempty"`
}

// DateDetails describes a dataset rejected for unparsable dates
type DateDetails struct {
	Column   string  `json:"column"`
	Bad      int     `json:"bad"`
	Total    int     `json:"total"`
	MaxRatio float64 `json:"max_ratio"`
	Sample   string  `json:"sample,omitempty"`
}

func New(status int, code, message string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message}
}

func NewWithDetails(status int, code, message string, details interface{}) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message, Details: details}
}

const msgValidation = "Request validation failed"

// Fixed errors, grouped by status
var (
	ErrInvalidRequest   = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, CodeValidationFailed, msgValidation)
	ErrInvalidClick     = New(http.StatusBadRequest, CodeInvalidClick, "Clicked point does not carry a date")

	ErrNotFound        = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrSessionNotFound = New(http.StatusNotFound, CodeSessionNotFound, "Session not found or expired")

	ErrNoDataset = New(http.StatusConflict, CodeNoDataset, "No dataset is loaded for this session")

	ErrPayloadTooLarge = New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Uploaded file exceeds the size limit")

	ErrDatasetEmpty = New(http.StatusUnprocessableEntity, CodeDatasetEmpty, "Dataset has a header but no data rows")

	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")

	ErrInternalServer   = New(http.StatusInternalServerError, CodeInternal, "Internal server error")
	ErrWebSocketUpgrade = New(http.StatusInternalServerError, CodeWebSocketUpgrade, "WebSocket upgrade failed")

	ErrServiceUnavailable = New(http.StatusServiceUnavailable, CodeServiceDown, "Service temporarily unavailable")
	ErrSessionLimit       = New(http.StatusServiceUnavailable, CodeSessionLimit, "Too many active sessions")
)

// InvalidRequestWithError carries err's text as details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation rejects a single field
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, msgValidation, ValidationError{
		Field:   field,
		Message: message,
	})
}

// NewValidationErrors rejects several fields at once
func NewValidationErrors(fields []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, msgValidation, ValidationErrors{Errors: fields})
}

// DatasetUnreadable reports a file that is not delimited tabular data
func DatasetUnreadable(source string) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, CodeDatasetUnreadable,
		fmt.Sprintf("%s could not be read as a delimited table or workbook", source), source)
}

// MissingColumn reports the first required column absent from the header
func MissingColumn(column string, present []string) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, CodeMissingColumn,
		fmt.Sprintf("Required column %q is missing", column),
		ColumnDetails{Column: column, Present: present})
}

// BadDates reports a dataset with too many unparsable dates
func BadDates(d DateDetails) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, CodeBadDates,
		fmt.Sprintf("%d of %d rows have unparsable %s values", d.Bad, d.Total, d.Column), d)
}
