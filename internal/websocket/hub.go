package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"kpidash/internal/infrastructure"
	"kpidash/pkg/contracts/events"
)

// how often the hub logs its counters
const reportInterval = 30 * time.Second

// Hub tracks the live clients of every dashboard session
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	logger   *slog.Logger
	metrics  *infrastructure.Metrics
	counters *Metrics

	done chan struct{}
}

// NewHub creates a hub. Call Run to start it. metrics may be nil.
func NewHub(metrics *infrastructure.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		counters:   NewMetrics(),
		done:       make(chan struct{}),
	}
}

// Run serves registrations until ctx ends, then closes every client
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("Hub shutting down")
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			h.counters.RecordConnection()
			h.metrics.RecordWebSocketClient(client.ctx, 1)
			h.logger.InfoContext(client.ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("session_id", client.sessionID),
				slog.String("remote_addr", client.remoteAddr))

		case client := <-h.unregister:
			h.remove(client)

		case <-ticker.C:
			stats := h.counters.Snapshot()
			h.logger.Info("WebSocket hub metrics",
				slog.Int("active_clients", h.ClientCount()),
				slog.Int64("total_connections", stats.TotalConnections),
				slog.Int64("messages_sent", stats.MessagesSent),
				slog.Int64("messages_received", stats.MessagesReceived),
				slog.Int64("dropped_messages", stats.DroppedMessages))
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	client.closeSend()

	lifetime := time.Since(client.connectedAt)
	h.counters.RecordDisconnection(lifetime)
	h.metrics.RecordWebSocketClient(client.ctx, -1)
	h.logger.InfoContext(client.ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", lifetime))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for client := range clients {
		client.closeSend()
		h.counters.RecordDisconnection(time.Since(client.connectedAt))
		h.metrics.RecordWebSocketClient(client.ctx, -1)
	}
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its outbound queue
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the hub's counters
func (h *Hub) Stats() Stats {
	return h.counters.Snapshot()
}

func (h *Hub) sessionClients(sessionID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var clients []*Client
	for client := range h.clients {
		if client.sessionID == sessionID {
			clients = append(clients, client)
		}
	}
	return clients
}

// NotifySession pushes msg to every client of the session and returns how
// many accepted it
func (h *Hub) NotifySession(sessionID string, msg events.ServerMessage) int {
	msg.SessionID = sessionID
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling session notification",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return 0
	}

	delivered := 0
	for _, client := range h.sessionClients(sessionID) {
		if client.enqueue(data) {
			delivered++
		}
	}
	h.logger.Debug("Session notified",
		slog.String("session_id", sessionID),
		slog.String("message_type", string(msg.Type)),
		slog.Int("delivered", delivered))
	return delivered
}

// CloseSession sends a final error to the session's clients and
// disconnects them
func (h *Hub) CloseSession(sessionID string, reason *events.ErrorPayload) {
	msg := events.NewServerMessage(events.MessageTypeError, "")
	msg.Error = reason
	h.NotifySession(sessionID, msg)

	for _, client := range h.sessionClients(sessionID) {
		h.Unregister(client)
	}
}
