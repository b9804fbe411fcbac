package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	apierrors "kpidash/internal/errors"
	"kpidash/internal/middleware"
	"kpidash/internal/shared/testutil"
)

func TestClientLogHandler_Handle(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		level  slog.Level
	}{
		{
			name:   "error with context",
			body:   `{"level":"error","message":"Plotly failed","context":{"line":12},"url":"http://localhost/"}`,
			status: http.StatusAccepted,
			level:  slog.LevelError,
		},
		{name: "warn", body: `{"level":"warn","message":"socket closed"}`, status: http.StatusAccepted, level: slog.LevelWarn},
		{name: "debug", body: `{"level":"debug","message":"render took 40ms"}`, status: http.StatusAccepted, level: slog.LevelDebug},
		{name: "info", body: `{"level":"info","message":"session started"}`, status: http.StatusAccepted, level: slog.LevelInfo},
		{name: "unknown level", body: `{"level":"fatal","message":"boom"}`, status: http.StatusBadRequest},
		{name: "missing message", body: `{"level":"info"}`, status: http.StatusBadRequest},
		{name: "invalid JSON", body: `{"level":`, status: http.StatusBadRequest},
		{name: "empty body", body: ``, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			h := NewClientLogHandler(middleware.NewValidator(logger), apierrors.NewErrorHandler(logger, false), logger)

			req := httptest.NewRequest(http.MethodPost, "/api/logs", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.Handle(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusAccepted {
				return
			}

			var resp map[string]interface{}
			assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, true, resp["success"])

			var payload map[string]interface{}
			assert.NoError(t, json.Unmarshal([]byte(tt.body), &payload))
			assert.True(t, logs.ContainsMessage(payload["message"].(string)))
			assert.True(t, logs.ContainsAttr("source", "browser"))
			assert.Len(t, logs.GetRecordsByLevel(tt.level), 1)
		})
	}
}
