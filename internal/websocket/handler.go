package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"kpidash/internal/config"
	apierrors "kpidash/internal/errors"
	"kpidash/internal/infrastructure"
)

// Handler upgrades /ws?session=<id> requests into live dashboard clients
type Handler struct {
	hub       *Hub
	service   DashboardService
	validator RequestValidator
	errors    *apierrors.ErrorHandler
	upgrader  websocket.Upgrader
	opts      Options
	logger    *slog.Logger
}

// NewHandler creates the upgrade handler. allowedOrigins lists the
// cross-origin pages that may connect; same-host pages always may.
func NewHandler(hub *Hub, service DashboardService, validator RequestValidator, cfg config.WebSocketConfig,
	allowedOrigins []string, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.handler"))

	h := &Handler{
		hub:       hub,
		service:   service,
		validator: validator,
		errors:    errorHandler,
		opts: Options{
			PingPeriod:      cfg.PingPeriod,
			PongWait:        cfg.PongWait,
			MaxMessageBytes: cfg.MaxMessageBytes,
		},
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     originChecker(allowedOrigins, logger),
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			errorHandler.HandleError(w, r, apierrors.NewWithDetails(status,
				apierrors.CodeWebSocketUpgrade, apierrors.ErrWebSocketUpgrade.Message, reason.Error()))
		},
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		h.errors.HandleError(w, r, apierrors.ErrValidation("session", "session is required"))
		return
	}

	sess, err := h.service.Session(ctx, sessionID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered
		return
	}

	client := NewClient(h.hub, wrapConn(conn), h.service, h.validator,
		sessionID, infrastructure.GetTraceID(ctx), h.opts, h.logger)
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	client.Greet(sess)

	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("session_id", sessionID),
		slog.String("remote_addr", r.RemoteAddr))

	go client.WritePump()
	go client.ReadPump()
}

// originChecker allows requests without an Origin, from the serving host,
// or from a listed origin
func originChecker(allowed []string, logger *slog.Logger) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		logger.WarnContext(r.Context(), "WebSocket origin check - origin not allowed",
			slog.String("origin", origin),
			slog.Any("allowed_origins", allowed))
		return false
	}
}
