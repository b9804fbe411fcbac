package api

import (
	"net/url"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFilterRequestValidation(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name    string
		req     FilterRequest
		wantErr bool
	}{
		{"empty", FilterRequest{}, false},
		{"full", FilterRequest{Start: "2024-01-01", End: "2024-01-31", Site: "S1", Metric: "availability"}, false},
		{"bad start", FilterRequest{Start: "01/01/2024"}, true},
		{"bad metric", FilterRequest{Metric: "latency"}, true},
		{"label is not a column", FilterRequest{Metric: "Traffic (GB)"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFilterRequestToState(t *testing.T) {
	defaults := domain.FilterState{Start: day("2024-01-01"), End: day("2024-01-10")}

	t.Run("defaults fill gaps", func(t *testing.T) {
		state, err := FilterRequest{Site: "S1"}.ToState(defaults)
		require.NoError(t, err)
		assert.Equal(t, day("2024-01-01"), state.Start)
		assert.Equal(t, day("2024-01-10"), state.End)
		assert.Equal(t, "S1", state.Site)
		assert.Equal(t, domain.Wildcard, state.Sector)
		assert.Equal(t, domain.Wildcard, state.Cell)
		assert.Equal(t, domain.DefaultMetric, state.Metric)
	})

	t.Run("explicit range", func(t *testing.T) {
		state, err := FilterRequest{Start: "2024-01-03", End: "2024-01-03", Metric: "availability"}.ToState(defaults)
		require.NoError(t, err)
		assert.Equal(t, day("2024-01-03"), state.Start)
		assert.Equal(t, day("2024-01-03"), state.End)
		assert.Equal(t, domain.MetricAvailability, state.Metric)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := FilterRequest{Start: "2024-01-05", End: "2024-01-02"}.ToState(defaults)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after end")
	})

	t.Run("unparsable date", func(t *testing.T) {
		_, err := FilterRequest{End: "tomorrow"}.ToState(defaults)
		assert.Error(t, err)
	})
}

func TestFilterRequestFromQuery(t *testing.T) {
	q := url.Values{
		"start":  {" 2024-01-01 "},
		"site":   {"S2"},
		"metric": {"availability"},
	}
	req := FilterRequestFromQuery(q)
	assert.Equal(t, FilterRequest{Start: "2024-01-01", Site: "S2", Metric: "availability"}, req)
	assert.True(t, req.HasDates())
	assert.False(t, FilterRequest{Site: "x"}.HasDates())
}

func TestExportRequest(t *testing.T) {
	v := validator.New()

	assert.NoError(t, v.Struct(ExportRequest{}))
	assert.NoError(t, v.Struct(ExportRequest{Format: "xlsx", Scope: "drill", Date: "2024-01-02"}))
	assert.NoError(t, v.Struct(ExportRequest{Scope: "drill"}), "drill export falls back to the selected date")
	assert.Error(t, v.Struct(ExportRequest{Format: "pdf"}))

	req := ExportRequestFromQuery(url.Values{"format": {"XLSX"}}).WithDefaults()
	assert.Equal(t, FormatXLSX, req.Format)
	assert.Equal(t, ScopeView, req.Scope)
}

func TestNewDatasetInfo(t *testing.T) {
	assert.Nil(t, NewDatasetInfo(nil))

	ds := domain.NewDataset("kpi.csv", []string{"date", "site"}, "01/02/2006", []domain.Record{
		{Date: day("2024-01-02"), Site: "S1"},
		{Date: day("2024-01-01"), Site: "S2"},
	}, domain.CleanStats{RowsRead: 3, RowsKept: 2, DroppedSite: 1})

	info := NewDatasetInfo(ds)
	require.NotNil(t, info)
	assert.Equal(t, 2, info.Rows)
	assert.Equal(t, "kpi.csv", info.Source)
	require.NotNil(t, info.Bounds)
	assert.Equal(t, day("2024-01-01"), info.Bounds.Start)
	assert.Equal(t, day("2024-01-02"), info.Bounds.End)
	assert.Equal(t, 1, info.Stats.DroppedSite)
}
