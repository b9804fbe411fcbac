package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Render(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	require.NoError(t, render.Render(rec, req, ErrNoDataset))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var got APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, CodeNoDataset, got.ErrorCode)
	assert.Equal(t, ErrNoDataset.Error(), got.Message)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err    *APIError
		status int
		code   string
	}{
		{ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
		{ErrValidationFailed, http.StatusBadRequest, CodeValidationFailed},
		{ErrInvalidClick, http.StatusBadRequest, CodeInvalidClick},
		{ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound},
		{ErrNoDataset, http.StatusConflict, CodeNoDataset},
		{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
		{ErrDatasetEmpty, http.StatusUnprocessableEntity, CodeDatasetEmpty},
		{ErrRateLimitExceeded, http.StatusTooManyRequests, CodeRateLimitExceeded},
		{ErrSessionLimit, http.StatusServiceUnavailable, CodeSessionLimit},
		{ErrInternalServer, http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.code, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestDatasetErrorConstructors(t *testing.T) {
	e := MissingColumn("traffic_gb", []string{"date", "site"})
	assert.Equal(t, CodeMissingColumn, e.ErrorCode)
	assert.Equal(t, ColumnDetails{Column: "traffic_gb", Present: []string{"date", "site"}}, e.Details)

	e = DatasetUnreadable("kpi.xlsx")
	assert.Equal(t, CodeDatasetUnreadable, e.ErrorCode)
	assert.Contains(t, e.Message, "kpi.xlsx")

	e = BadDates(DateDetails{Column: "date", Bad: 4, Total: 10})
	assert.Equal(t, "4 of 10 rows have unparsable date values", e.Message)
}

func TestValidationHelpers(t *testing.T) {
	e := ErrValidation("metric", "unknown metric")
	assert.Equal(t, ValidationError{Field: "metric", Message: "unknown metric"}, e.Details)

	multi := NewValidationErrors([]ValidationError{{Field: "start"}, {Field: "end"}})
	require.IsType(t, ValidationErrors{}, multi.Details)
	assert.Len(t, multi.Details.(ValidationErrors).Errors, 2)

	bad := InvalidRequestWithError(assert.AnError)
	assert.Equal(t, CodeInvalidRequest, bad.ErrorCode)
	assert.Equal(t, assert.AnError.Error(), bad.Details)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusUnprocessableEntity, TypeMissingColumn, "Unprocessable Entity", "Required column \"site\" is missing", "/api/x").
		WithExtension("error_code", CodeMissingColumn).
		WithExtension("status", 999)

	raw, err := json.Marshal(pd)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, TypeMissingColumn, got["type"])
	assert.Equal(t, float64(422), got["status"], "extensions never shadow standard members")
	assert.Equal(t, CodeMissingColumn, got["error_code"])
	assert.Equal(t, "/api/x", got["instance"])

	bare, err := json.Marshal(&ProblemDetails{Type: TypeInternal, Title: "x", Status: 500})
	require.NoError(t, err)
	assert.NotContains(t, string(bare), "detail")
	assert.NotContains(t, string(bare), "instance")
}

func TestProblemTypeFor(t *testing.T) {
	assert.Equal(t, TypeMissingColumn, problemTypeFor(CodeMissingColumn))
	assert.Equal(t, TypeBadDates, problemTypeFor(CodeBadDates))
	assert.Equal(t, TypeServiceDown, problemTypeFor(CodeSessionLimit))
	assert.Equal(t, TypeInternal, problemTypeFor("SOMETHING_ELSE"))
}
