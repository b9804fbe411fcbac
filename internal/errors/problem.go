package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// Problem types following RFC 7807
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeServiceDown      = "/errors/service-unavailable"
	TypeTimeout          = "/errors/timeout"
	TypeConflict         = "/errors/conflict"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeMethodNotAllowed = "/errors/method-not-allowed"
)

// Dashboard problem types
const (
	TypeDatasetUnreadable = "/errors/dataset/unreadable"
	TypeDatasetEmpty      = "/errors/dataset/empty"
	TypeMissingColumn     = "/errors/dataset/missing-column"
	TypeBadDates          = "/errors/dataset/bad-dates"
	TypeNoDataset         = "/errors/dataset/none"
	TypeSessionNotFound   = "/errors/session/not-found"
	TypeInvalidClick      = "/errors/drill/invalid-click"
	TypeWebSocketUpgrade  = "/errors/websocket/upgrade-failed"
)

// ProblemDetails is an RFC 7807 problem. Extensions are flattened into the
// top-level object but never override the standard members.
type ProblemDetails struct {
	Type       string                 `json:"type"`
	Title      string                 `json:"title"`
	Status     int                    `json:"status"`
	Detail     string                 `json:"detail,omitempty"`
	Instance   string                 `json:"instance,omitempty"`
	Extensions map[string]interface{} `json:"-"`
}

// Render sets the response status for chi/render
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		out[k] = v
	}
	out["type"], out["title"], out["status"] = pd.Type, pd.Title, pd.Status
	for k, v := range map[string]string{"detail": pd.Detail, "instance": pd.Instance} {
		if v != "" {
			out[k] = v
		} else {
			delete(out, k)
		}
	}
	return json.Marshal(out)
}

// NewProblemDetails builds a problem with an empty extension set
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension sets one extension member and returns pd for chaining
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = make(map[string]interface{})
	}
	pd.Extensions[key] = value
	return pd
}

var problemTypes = map[string]string{
	CodeValidationFailed:  TypeValidation,
	CodeInvalidRequest:    TypeValidation,
	CodeNotFound:          TypeNotFound,
	CodeSessionNotFound:   TypeSessionNotFound,
	CodeDatasetUnreadable: TypeDatasetUnreadable,
	CodeDatasetEmpty:      TypeDatasetEmpty,
	CodeMissingColumn:     TypeMissingColumn,
	CodeBadDates:          TypeBadDates,
	CodeNoDataset:         TypeNoDataset,
	CodeInvalidClick:      TypeInvalidClick,
	CodePayloadTooLarge:   TypePayloadTooLarge,
	CodeRateLimitExceeded: TypeRateLimit,
	CodeServiceDown:       TypeServiceDown,
	CodeSessionLimit:      TypeServiceDown,
	CodeWebSocketUpgrade:  TypeWebSocketUpgrade,
}

// problemTypeFor maps an error code to its problem type; unknown codes are
// internal errors
func problemTypeFor(code string) string {
	if t, ok := problemTypes[code]; ok {
		return t
	}
	return TypeInternal
}
