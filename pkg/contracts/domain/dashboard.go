package domain

import (
	"time"
)

// FilterState is the user's current selection on the dashboard.
// Site, Sector and Cell hold either a concrete value or Wildcard.
// A zero Start or End leaves that side of the date range unbounded.
type FilterState struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Site   string    `json:"site"`
	Sector string    `json:"sector"`
	Cell   string    `json:"cell"`
	Metric Metric    `json:"metric"`
}

// DefaultFilterState selects the full date range of ds, all categories and
// the default metric
func DefaultFilterState(ds *Dataset) FilterState {
	state := FilterState{
		Site:   Wildcard,
		Sector: Wildcard,
		Cell:   Wildcard,
		Metric: DefaultMetric,
	}
	if bounds, ok := ds.DateBounds(); ok {
		state.Start = bounds.Start
		state.End = bounds.End
	}
	return state
}

// Normalize fills empty selections with their defaults and truncates the
// range to calendar days
func (s FilterState) Normalize() FilterState {
	if s.Site == "" {
		s.Site = Wildcard
	}
	if s.Sector == "" {
		s.Sector = Wildcard
	}
	if s.Cell == "" {
		s.Cell = Wildcard
	}
	if !s.Metric.Valid() {
		s.Metric = DefaultMetric
	}
	if !s.Start.IsZero() {
		s.Start = TruncateDay(s.Start)
	}
	if !s.End.IsZero() {
		s.End = TruncateDay(s.End)
	}
	return s
}

// FilterOptions holds the option list of each cascading dropdown.
// Every list starts with Wildcard followed by sorted distinct values.
type FilterOptions struct {
	Sites   []string `json:"sites"`
	Sectors []string `json:"sectors"`
	Cells   []string `json:"cells"`
}

// TrendPoint is one aggregated date of the trend series.
// Rows counts the records behind the point, Samples the ones with a value.
type TrendPoint struct {
	Date    time.Time `json:"date"`
	Value   Measure   `json:"value"`
	Rolling Measure   `json:"rolling"`
	Rows    int       `json:"rows"`
	Samples int       `json:"samples"`
}

// Summary holds the scalar headline metrics of a view
type Summary struct {
	SiteCount        int     `json:"site_count"`
	MeanAvailability Measure `json:"mean_availability"`
	TotalTraffic     Measure `json:"total_traffic"`
}

// MapPoint is one record on the geographic layer
type MapPoint struct {
	Date         time.Time `json:"date"`
	Site         string    `json:"site"`
	Sector       string    `json:"sector"`
	Cell         string    `json:"cell"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	TrafficGB    Measure   `json:"traffic_gb"`
	Availability Measure   `json:"availability"`
}

// Threshold is a fixed horizontal annotation on the trend chart
type Threshold struct {
	Metric Metric  `json:"metric"`
	Value  float64 `json:"value"`
	Label  string  `json:"label"`
}

// RenderModel is everything the dashboard page needs for one interaction
type RenderModel struct {
	State     FilterState    `json:"state"`
	Bounds    *DateRange     `json:"bounds,omitempty"`
	Options   FilterOptions  `json:"options"`
	Metrics   []MetricOption `json:"metrics"`
	Summary   Summary        `json:"summary"`
	Trend     []TrendPoint   `json:"trend"`
	Threshold *Threshold     `json:"threshold,omitempty"`
	Map       []MapPoint     `json:"map"`
	Rows      int            `json:"rows"`
	Empty     bool           `json:"empty"`
}

// DrillResult is the detail table behind one clicked trend point.
// Idle is set when no point has been selected.
type DrillResult struct {
	Idle    bool       `json:"idle"`
	Date    *time.Time `json:"date,omitempty"`
	Records []Record   `json:"records"`
	Count   int        `json:"count"`
}
