// Package api contains API contract definitions for the KPI dashboard.
// Version v1 represents the current stable API version.
package api

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"kpidash/pkg/contracts/domain"
)

// DateLayout is the wire format of calendar dates in requests
const DateLayout = "2006-01-02"

// Export formats and scopes
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ScopeView  = "view"
	ScopeDrill = "drill"
)

// FilterRequest carries the dashboard controls. Empty fields take their
// defaults: the full date range, "All" for each dropdown and traffic.
type FilterRequest struct {
	Start  string `json:"start,omitempty" query:"start" validate:"omitempty,datetime=2006-01-02"`
	End    string `json:"end,omitempty" query:"end" validate:"omitempty,datetime=2006-01-02"`
	Site   string `json:"site,omitempty" query:"site" validate:"omitempty,max=128"`
	Sector string `json:"sector,omitempty" query:"sector" validate:"omitempty,max=128"`
	Cell   string `json:"cell,omitempty" query:"cell" validate:"omitempty,max=128"`
	Metric string `json:"metric,omitempty" query:"metric" validate:"omitempty,oneof=traffic_gb availability"`
}

// FilterRequestFromQuery reads a FilterRequest from URL query parameters
func FilterRequestFromQuery(q url.Values) FilterRequest {
	return FilterRequest{
		Start:  strings.TrimSpace(q.Get("start")),
		End:    strings.TrimSpace(q.Get("end")),
		Site:   strings.TrimSpace(q.Get("site")),
		Sector: strings.TrimSpace(q.Get("sector")),
		Cell:   strings.TrimSpace(q.Get("cell")),
		Metric: strings.TrimSpace(q.Get("metric")),
	}
}

// HasDates reports whether either side of the date range was given
func (r FilterRequest) HasDates() bool {
	return r.Start != "" || r.End != ""
}

// ToState converts a validated request into a FilterState. Missing dates
// are taken from defaults, which is normally the dataset's full range.
func (r FilterRequest) ToState(defaults domain.FilterState) (domain.FilterState, error) {
	state := domain.FilterState{
		Start:  defaults.Start,
		End:    defaults.End,
		Site:   r.Site,
		Sector: r.Sector,
		Cell:   r.Cell,
		Metric: domain.Metric(r.Metric),
	}

	if r.Start != "" {
		t, err := time.Parse(DateLayout, r.Start)
		if err != nil {
			return domain.FilterState{}, fmt.Errorf("start: %w", err)
		}
		state.Start = t
	}
	if r.End != "" {
		t, err := time.Parse(DateLayout, r.End)
		if err != nil {
			return domain.FilterState{}, fmt.Errorf("end: %w", err)
		}
		state.End = t
	}
	if !state.Start.IsZero() && !state.End.IsZero() && state.Start.After(state.End) {
		return domain.FilterState{}, fmt.Errorf("start %s is after end %s",
			state.Start.Format(DateLayout), state.End.Format(DateLayout))
	}
	return state.Normalize(), nil
}

// ClickRequest carries the x coordinate of a clicked trend point.
// An empty Date means nothing is selected.
type ClickRequest struct {
	Date string `json:"date,omitempty" query:"date" validate:"omitempty,max=64"`
}

// ExportRequest selects what to download
type ExportRequest struct {
	Format string `json:"format" query:"format" validate:"omitempty,oneof=csv xlsx"`
	Scope  string `json:"scope" query:"scope" validate:"omitempty,oneof=view drill"`
	Date   string `json:"date,omitempty" query:"date" validate:"omitempty,max=64"`
}

// ExportRequestFromQuery reads an ExportRequest from URL query parameters
func ExportRequestFromQuery(q url.Values) ExportRequest {
	return ExportRequest{
		Format: strings.ToLower(strings.TrimSpace(q.Get("format"))),
		Scope:  strings.ToLower(strings.TrimSpace(q.Get("scope"))),
		Date:   strings.TrimSpace(q.Get("date")),
	}
}

// WithDefaults fills an empty format and scope
func (r ExportRequest) WithDefaults() ExportRequest {
	if r.Format == "" {
		r.Format = FormatCSV
	}
	if r.Scope == "" {
		r.Scope = ScopeView
	}
	return r
}

// ClientLogRequest is a log line posted by the dashboard page
type ClientLogRequest struct {
	Level   string                 `json:"level" validate:"required,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,max=2000"`
	Context map[string]interface{} `json:"context,omitempty"`
	URL     string                 `json:"url,omitempty" validate:"omitempty,max=2048"`
}
