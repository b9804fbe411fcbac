// Package config provides centralized configuration management for kpidash.
//
// # Configuration Sources
//
// Configuration is layered, later sources winning:
//
//	1. Default values (Default)
//	2. YAML file: $KPI_CONFIG_FILE, else ./kpidash.yaml or ./configs/kpidash.yaml
//	3. Environment variables with the KPI_ prefix
//
// # Environment Variables
//
// Variables are named after the section and field:
//
//	KPI_SERVER_PORT=8080
//	KPI_DATASET_DEFAULT_FILE=kpi_data.csv
//	KPI_DATASET_DATE_MODE=mdy
//	KPI_DASHBOARD_ROLLING_WINDOW=7
//	KPI_SESSIONS_IDLE_TTL=30m
//
// # Path Management
//
// Relative paths resolve against Paths.BaseDir (the working directory by
// default):
//
//	paths, err := cfg.ResolvePaths()
//	file, ok := paths.FindDataset(cfg.Dataset.DefaultFile)
//
// # Validation
//
// Load validates ranges and enumerations (ports, timeouts, date mode, bad
// date ratio, rolling window, exporters) before returning.
package config
