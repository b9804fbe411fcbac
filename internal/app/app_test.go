package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/internal/config"
	"kpidash/internal/shared/testutil"
	api "kpidash/pkg/contracts/api/v1"
	"kpidash/pkg/contracts/domain"
	"kpidash/pkg/contracts/events"
)

type runningApp struct {
	app    *Application
	base   string
	client *http.Client
	cancel context.CancelFunc
	done   chan error
	logs   *testutil.BufferedSlogHandler
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func startApp(t *testing.T, cfg *config.Config, withDataset bool) *runningApp {
	t.Helper()
	if withDataset {
		_, err := testutil.NewKPIFixtures(filepath.Join(cfg.Paths.BaseDir, cfg.Paths.DataDir)).
			WriteSample(cfg.Dataset.DefaultFile)
		require.NoError(t, err)
	}

	logger, logs := testutil.NewTestLogger(t)
	a, err := New(cfg, logger)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ra := &runningApp{
		app:    a,
		base:   "http://" + ln.Addr().String(),
		client: &http.Client{Timeout: 5 * time.Second},
		cancel: cancel,
		done:   make(chan error, 1),
		logs:   logs,
	}
	go func() { ra.done <- a.Serve(ctx, ln) }()
	t.Cleanup(func() { ra.stop(t) })
	return ra
}

func (ra *runningApp) stop(t *testing.T) {
	t.Helper()
	if ra.cancel == nil {
		return
	}
	ra.cancel()
	ra.cancel = nil
	select {
	case err := <-ra.done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not stop")
	}
}

func (ra *runningApp) do(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ra.base+path, nil)
	require.NoError(t, err)
	resp, err := ra.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestNewRejectsInvalidDateMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dataset.DateMode = "dmy"
	logger, _ := testutil.NewTestLogger(t)

	_, err := New(cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard service")
}

func TestApplicationRoutes(t *testing.T) {
	ra := startApp(t, testConfig(t), true)

	t.Run("health", func(t *testing.T) {
		for _, path := range []string{"/api/health", "/api/health/live", "/api/health/ready", "/api/version"} {
			resp := ra.do(t, http.MethodGet, path)
			assert.Equal(t, http.StatusOK, resp.StatusCode, path)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"), path)
		}
	})

	t.Run("dashboard page", func(t *testing.T) {
		resp := ra.do(t, http.MethodGet, "/")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "cdn.plot.ly")
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), PageTitle)
	})

	t.Run("unknown route is a problem", func(t *testing.T) {
		resp := ra.do(t, http.MethodGet, "/api/nope")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var problem map[string]interface{}
		decode(t, resp, &problem)
		assert.Equal(t, float64(http.StatusNotFound), problem["status"])
		assert.Equal(t, "/api/nope", problem["instance"])
	})

	t.Run("prometheus", func(t *testing.T) {
		ra.do(t, http.MethodGet, "/api/metrics/options")
		resp := ra.do(t, http.MethodGet, "/metrics")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "go_goroutines")
	})

	t.Run("session flow", func(t *testing.T) {
		resp := ra.do(t, http.MethodPost, "/api/sessions")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var sess api.SessionResponse
		decode(t, resp, &sess)
		require.NotEmpty(t, sess.ID)
		require.NotNil(t, sess.Dataset)
		assert.Equal(t, config.DefaultDatasetFile, sess.Dataset.Source)

		resp = ra.do(t, http.MethodGet, "/api/sessions/"+sess.ID+"/view?metric=availability")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var model domain.RenderModel
		decode(t, resp, &model)
		assert.Equal(t, domain.MetricAvailability, model.State.Metric)
		assert.Positive(t, model.Rows)
		assert.NotEmpty(t, model.Trend)

		resp = ra.do(t, http.MethodGet, "/api/sessions/"+sess.ID+"/export?format=csv")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "kpi_data_view.csv")

		resp = ra.do(t, http.MethodDelete, "/api/sessions/"+sess.ID)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = ra.do(t, http.MethodGet, "/api/sessions/"+sess.ID)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestApplicationLiveChannel(t *testing.T) {
	ra := startApp(t, testConfig(t), true)

	resp := ra.do(t, http.MethodPost, "/api/sessions")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sess api.SessionResponse
	decode(t, resp, &sess)

	wsURL := "ws" + strings.TrimPrefix(ra.base, "http") + "/ws?session=" + sess.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg events.ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeConnected, msg.Type)
	require.NotNil(t, msg.Dataset)

	require.NoError(t, conn.WriteJSON(events.ClientMessage{ID: "1", Type: events.MessageTypeFilter, Filter: &api.FilterRequest{}}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeRender, msg.Type)
	assert.Equal(t, "1", msg.ID)
	require.NotNil(t, msg.Render)

	assert.Eventually(t, func() bool { return ra.app.WebSocketHub.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	resp = ra.do(t, http.MethodDelete, "/api/sessions/"+sess.ID)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeError, msg.Type)
	require.NotNil(t, msg.Error)
	assert.True(t, msg.Error.Fatal)

	ra.stop(t)
	assert.True(t, ra.logs.ContainsMessage("Application stopped"))
}

func TestApplicationExpiredSessionClosesLiveChannel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sessions.IdleTTL = 300 * time.Millisecond
	cfg.Sessions.SweepInterval = 20 * time.Millisecond
	ra := startApp(t, cfg, true)

	resp := ra.do(t, http.MethodPost, "/api/sessions")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sess api.SessionResponse
	decode(t, resp, &sess)

	wsURL := "ws" + strings.TrimPrefix(ra.base, "http") + "/ws?session=" + sess.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg events.ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, events.MessageTypeConnected, msg.Type)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeError, msg.Type)
	require.NotNil(t, msg.Error)
	assert.True(t, msg.Error.Fatal)
	assert.Equal(t, "Session expired", msg.Error.Message)

	assert.Eventually(t, func() bool { return ra.app.WebSocketHub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
	assert.Zero(t, ra.app.Dashboard.Store().Len())
	assert.True(t, ra.logs.ContainsMessage("Session expired"))
}

func TestApplicationWithoutDataset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.MetricsEnabled = false
	cfg.Security.RateLimit.Enabled = false
	ra := startApp(t, cfg, false)

	resp := ra.do(t, http.MethodPost, "/api/sessions")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sess api.SessionResponse
	decode(t, resp, &sess)
	assert.Nil(t, sess.Dataset)

	resp = ra.do(t, http.MethodGet, "/api/sessions/"+sess.ID+"/view")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ra.do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Nil(t, ra.app.RateLimiter)
}
