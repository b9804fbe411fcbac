package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "kpidash"
	AppVersion = "1.0.0"

	// Environment
	EnvPrefix     = "KPI"
	ConfigFileEnv = "KPI_CONFIG_FILE"

	// Server
	DefaultPort = 8080

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// WebSocket
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// File Paths (relative to the base directory)
	DefaultDataDir     = "data"
	DefaultExportsDir  = "data/exports"
	DefaultLogsDir     = "logs"
	DefaultLogFile     = "logs/kpidash.log"
	DefaultDatasetFile = "kpi_data.csv"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
