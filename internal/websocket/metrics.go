package websocket

import (
	"sync"
	"time"
)

// Metrics tracks live channel counters for the hub's periodic report
type Metrics struct {
	mu sync.Mutex

	totalConnections  int64
	activeConnections int64
	maxConcurrent     int64

	messagesSent     int64
	messagesReceived int64
	bytesSent        int64
	bytesReceived    int64
	droppedMessages  int64

	errorsByCode map[string]int64

	connectionTimes []time.Duration
	started         time.Time
}

// Stats is a point-in-time copy of Metrics
type Stats struct {
	TotalConnections  int64            `json:"total_connections"`
	ActiveConnections int64            `json:"active_connections"`
	MaxConcurrent     int64            `json:"max_concurrent"`
	AvgConnectionTime time.Duration    `json:"avg_connection_time"`
	MessagesSent      int64            `json:"messages_sent"`
	MessagesReceived  int64            `json:"messages_received"`
	BytesSent         int64            `json:"bytes_sent"`
	BytesReceived     int64            `json:"bytes_received"`
	DroppedMessages   int64            `json:"dropped_messages"`
	ErrorsByCode      map[string]int64 `json:"errors_by_code"`
	Uptime            time.Duration    `json:"uptime"`
}

// keep the last connections only
const connectionSampleSize = 100

// NewMetrics creates an empty metrics set
func NewMetrics() *Metrics {
	return &Metrics{
		errorsByCode:    make(map[string]int64),
		connectionTimes: make([]time.Duration, 0, connectionSampleSize),
		started:         time.Now(),
	}
}

func (m *Metrics) RecordConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalConnections++
	m.activeConnections++
	if m.activeConnections > m.maxConcurrent {
		m.maxConcurrent = m.activeConnections
	}
}

func (m *Metrics) RecordDisconnection(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeConnections > 0 {
		m.activeConnections--
	}
	m.connectionTimes = append(m.connectionTimes, duration)
	if len(m.connectionTimes) > connectionSampleSize {
		m.connectionTimes = m.connectionTimes[1:]
	}
}

// RecordMessage counts one frame in direction "sent" or "received"
func (m *Metrics) RecordMessage(direction string, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch direction {
	case "sent":
		m.messagesSent++
		m.bytesSent += int64(size)
	case "received":
		m.messagesReceived++
		m.bytesReceived += int64(size)
	}
}

// RecordError counts an error reply by its code
func (m *Metrics) RecordError(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorsByCode[code]++
}

func (m *Metrics) RecordDroppedMessage() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.droppedMessages++
}

// Snapshot copies the current counters
func (m *Metrics) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	errs := make(map[string]int64, len(m.errorsByCode))
	for k, v := range m.errorsByCode {
		errs[k] = v
	}

	var avg time.Duration
	if n := len(m.connectionTimes); n > 0 {
		var total time.Duration
		for _, d := range m.connectionTimes {
			total += d
		}
		avg = total / time.Duration(n)
	}

	return Stats{
		TotalConnections:  m.totalConnections,
		ActiveConnections: m.activeConnections,
		MaxConcurrent:     m.maxConcurrent,
		AvgConnectionTime: avg,
		MessagesSent:      m.messagesSent,
		MessagesReceived:  m.messagesReceived,
		BytesSent:         m.bytesSent,
		BytesReceived:     m.bytesReceived,
		DroppedMessages:   m.droppedMessages,
		ErrorsByCode:      errs,
		Uptime:            time.Since(m.started),
	}
}
