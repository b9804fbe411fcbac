package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apierrors "kpidash/internal/errors"
	"kpidash/internal/infrastructure"
	api "kpidash/pkg/contracts/api/v1"
	"kpidash/pkg/contracts/domain"
	"kpidash/pkg/contracts/events"
)

// Time allowed to write a message to the peer
const writeWait = 10 * time.Second

// size of each client's outbound queue
const sendBuffer = 64

// DashboardService answers the requests a live client sends
type DashboardService interface {
	Session(ctx context.Context, id string) (*api.SessionResponse, error)
	View(ctx context.Context, id string, req api.FilterRequest) (*domain.RenderModel, error)
	Drill(ctx context.Context, id string, req api.ClickRequest) (*domain.DrillResult, error)
}

// RequestValidator checks decoded filter requests
type RequestValidator interface {
	Struct(v interface{}) error
}

// Options tunes the client pumps
type Options struct {
	PingPeriod      time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
}

// Client is a middleman between one websocket connection and the
// dashboard session it is bound to
type Client struct {
	hub       *Hub
	conn      Connection
	service   DashboardService
	validator RequestValidator
	opts      Options

	send     chan []byte
	sendMu   sync.Mutex
	sendDone bool

	id          string
	sessionID   string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	// ctx carries the trace ID for logs and service calls
	ctx    context.Context
	logger *slog.Logger
}

// NewClient binds conn to sessionID. validator may be nil.
func NewClient(hub *Hub, conn Connection, service DashboardService, validator RequestValidator,
	sessionID, traceID string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if traceID == "" {
		traceID = uuid.New().String()
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	id := uuid.New().String()

	return &Client{
		hub:         hub,
		conn:        conn,
		service:     service,
		validator:   validator,
		opts:        opts,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		sessionID:   sessionID,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		ctx:         infrastructure.WithSessionID(infrastructure.WithTraceID(context.Background(), traceID), sessionID),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
			slog.String("session_id", sessionID),
			slog.String("trace_id", traceID)),
	}
}

// ID returns the client identifier
func (c *Client) ID() string { return c.id }

// enqueue queues data for the write pump. A full or closed queue drops it.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendDone {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.hub.counters.RecordDroppedMessage()
		c.logger.Warn("Client send buffer full, dropping message")
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendDone {
		c.sendDone = true
		close(c.send)
	}
}

// reply marshals msg and queues it
func (c *Client) reply(msg events.ServerMessage) {
	msg.TraceID = c.traceID
	msg.SessionID = c.sessionID
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Error marshaling server message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return
	}
	c.enqueue(data)
}

// Greet queues the connected message carrying the session snapshot
func (c *Client) Greet(sess *api.SessionResponse) {
	msg := events.NewServerMessage(events.MessageTypeConnected, "")
	if sess != nil {
		msg.Dataset = sess.Dataset
	}
	c.reply(msg)
}

// ReadPump decodes client requests and answers them until the connection
// fails or the session disappears
func (c *Client) ReadPump() {
	defer func() {
		c.logger.InfoContext(c.ctx, "WebSocket client disconnected (readPump)",
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if c.opts.MaxMessageBytes > 0 {
		c.conn.SetReadLimit(c.opts.MaxMessageBytes)
	}
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				c.fail("", &events.ErrorPayload{
					Code:    events.ErrCodeMessageTooLarge,
					Message: "Message exceeds the size limit",
					Fatal:   true,
				})
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.ErrorContext(c.ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		c.hub.counters.RecordMessage("received", len(message))

		if fatal := c.handle(message); fatal {
			return
		}
	}
}

// handle answers one frame and reports whether the connection must close
func (c *Client) handle(frame []byte) bool {
	var msg events.ClientMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		c.fail("", &events.ErrorPayload{
			Code:    events.ErrCodeInvalidFrame,
			Message: "Message is not valid JSON",
			Details: err.Error(),
		})
		return false
	}

	switch msg.Type {
	case events.MessageTypePing:
		c.reply(events.NewServerMessage(events.MessageTypePong, msg.ID))

	case events.MessageTypeFilter:
		var req api.FilterRequest
		if msg.Filter != nil {
			req = *msg.Filter
		}
		if c.validator != nil {
			if err := c.validator.Struct(req); err != nil {
				return c.failWith(msg.ID, err)
			}
		}
		model, err := c.service.View(c.ctx, c.sessionID, req)
		if err != nil {
			return c.failWith(msg.ID, err)
		}
		out := events.NewServerMessage(events.MessageTypeRender, msg.ID)
		out.Render = model
		c.reply(out)

	case events.MessageTypeClick:
		result, err := c.service.Drill(c.ctx, c.sessionID, api.ClickRequest{Date: msg.Date})
		if err != nil {
			return c.failWith(msg.ID, err)
		}
		out := events.NewServerMessage(events.MessageTypeDrill, msg.ID)
		out.Drill = result
		c.reply(out)

	default:
		c.fail(msg.ID, &events.ErrorPayload{
			Code:    events.ErrCodeUnsupportedType,
			Message: "Unsupported message type",
			Details: string(msg.Type),
		})
	}
	return false
}

// failWith converts err to an error reply. A vanished session is fatal.
func (c *Client) failWith(replyTo string, err error) bool {
	apiErr := apierrors.ToAPIError(err)
	payload := &events.ErrorPayload{
		Code:    apiErr.ErrorCode,
		Message: apiErr.Message,
		Details: apiErr.Details,
		Fatal:   apiErr.ErrorCode == apierrors.CodeSessionNotFound,
	}
	level := slog.LevelWarn
	if apiErr.StatusCode >= 500 {
		level = slog.LevelError
	}
	c.logger.Log(c.ctx, level, "Live request failed",
		slog.String("error", err.Error()),
		slog.String("code", apiErr.ErrorCode))
	c.fail(replyTo, payload)
	return payload.Fatal
}

func (c *Client) fail(replyTo string, payload *events.ErrorPayload) {
	c.hub.counters.RecordError(payload.Code)
	msg := events.NewServerMessage(events.MessageTypeError, replyTo)
	msg.Error = payload
	c.reply(msg)
}

// WritePump writes queued messages and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(c.ctx, "WebSocket write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(c.ctx, "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}
			c.hub.counters.RecordMessage("sent", len(message))

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.ctx, "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
