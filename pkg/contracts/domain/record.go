package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// Wildcard is the categorical filter value that matches everything
	Wildcard = "All"

	// Unassigned is the sector/cell value used when the source has none
	Unassigned = "N/A"

	// WildcardValue replaces a source value spelled like Wildcard so it
	// stays selectable
	WildcardValue = "All (value)"
)

// Record is one cleaned observation row.
//
// Every Record carries a date truncated to the calendar day (UTC) and a
// non-empty Site. Sector and Cell are always populated, either with a real
// value or with Unassigned. Numeric fields use Measure so that a value that
// could not be parsed stays distinguishable from a real zero.
type Record struct {
	Date         time.Time `json:"date"`
	Site         string    `json:"site"`
	Sector       string    `json:"sector"`
	Cell         string    `json:"cell"`
	TrafficGB    Measure   `json:"traffic_gb"`
	Availability Measure   `json:"availability"`
	Lat          Measure   `json:"lat"`
	Lon          Measure   `json:"lon"`
}

// HasLocation reports whether both coordinates are present
func (r Record) HasLocation() bool {
	return r.Lat.Valid && r.Lon.Valid
}

// Value returns the field selected by metric
func (r Record) Value(m Metric) Measure {
	switch m {
	case MetricTraffic:
		return r.TrafficGB
	case MetricAvailability:
		return r.Availability
	default:
		return Measure{}
	}
}

// Metric names a numeric column that can drive the trend chart
type Metric string

const (
	MetricTraffic      Metric = "traffic_gb"
	MetricAvailability Metric = "availability"
)

// DefaultMetric is selected when the caller does not choose one
const DefaultMetric = MetricTraffic

// MetricOption pairs a metric with its display label
type MetricOption struct {
	Label  string `json:"label"`
	Metric Metric `json:"metric"`
}

var metricOptions = []MetricOption{
	{Label: "Traffic (GB)", Metric: MetricTraffic},
	{Label: "Availability (%)", Metric: MetricAvailability},
}

// Metrics returns the fixed metric selector options in display order
func Metrics() []MetricOption {
	out := make([]MetricOption, len(metricOptions))
	copy(out, metricOptions)
	return out
}

// Label returns the display label of the metric
func (m Metric) Label() string {
	for _, opt := range metricOptions {
		if opt.Metric == m {
			return opt.Label
		}
	}
	return string(m)
}

// Valid reports whether m is one of the selectable metrics
func (m Metric) Valid() bool {
	for _, opt := range metricOptions {
		if opt.Metric == m {
			return true
		}
	}
	return false
}

// ParseMetric accepts either a column name or a display label
func ParseMetric(s string) (Metric, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultMetric, nil
	}
	for _, opt := range metricOptions {
		if strings.EqualFold(s, string(opt.Metric)) || strings.EqualFold(s, opt.Label) {
			return opt.Metric, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// TruncateDay strips the time of day and normalizes to UTC
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
