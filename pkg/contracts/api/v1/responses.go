package api

import (
	"time"

	"kpidash/pkg/contracts/domain"
)

// DatasetInfo describes the dataset bound to a session
type DatasetInfo struct {
	Source     string            `json:"source"`
	Rows       int               `json:"rows"`
	Columns    []string          `json:"columns"`
	DateLayout string            `json:"date_layout"`
	Bounds     *domain.DateRange `json:"bounds,omitempty"`
	Stats      domain.CleanStats `json:"stats"`
	LoadedAt   time.Time         `json:"loaded_at"`
	Checksum   string            `json:"checksum,omitempty"`
}

// NewDatasetInfo summarizes ds; nil yields nil
func NewDatasetInfo(ds *domain.Dataset) *DatasetInfo {
	if ds == nil {
		return nil
	}
	info := &DatasetInfo{
		Source:     ds.Source,
		Rows:       ds.Len(),
		Columns:    ds.Columns,
		DateLayout: ds.DateLayout,
		Stats:      ds.Stats,
		LoadedAt:   ds.LoadedAt,
		Checksum:   ds.Checksum,
	}
	if bounds, ok := ds.DateBounds(); ok {
		info.Bounds = &bounds
	}
	return info
}

// SessionResponse is returned by session creation, lookup and upload
type SessionResponse struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	LastSeen  time.Time          `json:"last_seen"`
	State     domain.FilterState `json:"state"`
	Dataset   *DatasetInfo       `json:"dataset,omitempty"`
	// DatasetError explains why the default dataset could not be bound
	DatasetError string `json:"dataset_error,omitempty"`
}

// MetricsResponse lists the metric selector options
type MetricsResponse struct {
	Metrics []domain.MetricOption `json:"metrics"`
	Default domain.Metric         `json:"default"`
}
