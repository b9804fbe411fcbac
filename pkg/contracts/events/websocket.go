// Package events contains the message contracts of the dashboard live channel.
package events

import (
	"time"

	api "kpidash/pkg/contracts/api/v1"
	"kpidash/pkg/contracts/domain"
)

// Protocol version
const (
	ProtocolVersion = "1.0"
	ProtocolName    = "kpidash-live"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client to server
	MessageTypeFilter MessageType = "filter"
	MessageTypeClick  MessageType = "click"
	MessageTypePing   MessageType = "ping"

	// Server to client
	MessageTypeConnected MessageType = "connected"
	MessageTypeRender    MessageType = "render"
	MessageTypeDrill     MessageType = "drill"
	MessageTypeDataset   MessageType = "dataset"
	MessageTypePong      MessageType = "pong"
	MessageTypeError     MessageType = "error"
)

// ClientMessage is a request sent by the dashboard page.
// Filter is set for filter messages, Date for click messages; an empty
// Date clears the selection.
type ClientMessage struct {
	ID     string             `json:"id,omitempty"`
	Type   MessageType        `json:"type"`
	Filter *api.FilterRequest `json:"filter,omitempty"`
	Date   string             `json:"date,omitempty"`
}

// ServerMessage is pushed to the dashboard page. Exactly one payload field
// is set, according to Type.
type ServerMessage struct {
	ID        string              `json:"id,omitempty"`
	Type      MessageType         `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	TraceID   string              `json:"trace_id,omitempty"`
	SessionID string              `json:"session_id,omitempty"`
	Render    *domain.RenderModel `json:"render,omitempty"`
	Drill     *domain.DrillResult `json:"drill,omitempty"`
	Dataset   *api.DatasetInfo    `json:"dataset,omitempty"`
	Error     *ErrorPayload       `json:"error,omitempty"`
}

// ErrorPayload describes a failed request on the live channel
type ErrorPayload struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Fatal   bool        `json:"fatal"`
}

// Protocol error codes used in addition to the API error codes
const (
	ErrCodeInvalidFrame    = "INVALID_FRAME"
	ErrCodeUnsupportedType = "UNSUPPORTED_TYPE"
	ErrCodeMessageTooLarge = "MESSAGE_TOO_LARGE"
)

// NewServerMessage stamps a message of type t with the current time
func NewServerMessage(t MessageType, replyTo string) ServerMessage {
	return ServerMessage{ID: replyTo, Type: t, Timestamp: time.Now().UTC()}
}
