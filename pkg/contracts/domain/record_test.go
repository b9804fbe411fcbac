package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasure_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   Measure
		want string
	}{
		{name: "missing is null", in: Missing(), want: "null"},
		{name: "zero is a value", in: Some(0), want: "0"},
		{name: "fraction", in: Some(97.25), want: "97.25"},
		{name: "NaN becomes missing", in: Some(math.NaN()), want: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestMeasure_UnmarshalNull(t *testing.T) {
	var payload struct {
		A Measure `json:"a"`
		B Measure `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":12.5}`), &payload))

	assert.False(t, payload.A.Valid)
	assert.True(t, payload.B.Valid)
	assert.Equal(t, 12.5, payload.B.Value)
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{in: "", want: MetricTraffic},
		{in: "traffic_gb", want: MetricTraffic},
		{in: "Availability (%)", want: MetricAvailability},
		{in: " AVAILABILITY ", want: MetricAvailability},
		{in: "latency", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMetric(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_Value(t *testing.T) {
	r := Record{TrafficGB: Some(4), Availability: Some(99)}

	assert.Equal(t, Some(4), r.Value(MetricTraffic))
	assert.Equal(t, Some(99), r.Value(MetricAvailability))
	assert.False(t, r.Value(Metric("other")).Valid)
	assert.False(t, r.HasLocation())
}

func TestDataset_DateBoundsAndViews(t *testing.T) {
	d1 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	ds := NewDataset("kpi.csv", []string{"date", "site"}, "2006-01-02", []Record{
		{Date: d2, Site: "A"},
		{Date: d1, Site: "B"},
	}, CleanStats{RowsRead: 2, RowsKept: 2})

	bounds, ok := ds.DateBounds()
	require.True(t, ok)
	assert.Equal(t, d1, bounds.Start)
	assert.Equal(t, d2, bounds.End)

	view := ds.WithRecords(ds.Records()[:1])
	assert.Equal(t, 1, view.Len())
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, "kpi.csv", view.Source)

	records := ds.Records()
	records[0].Site = "changed"
	assert.Equal(t, "A", ds.At(0).Site)

	_, ok = ds.WithRecords(nil).DateBounds()
	assert.False(t, ok)
}

func TestFilterState_Normalize(t *testing.T) {
	s := FilterState{
		Start:  time.Date(2024, 1, 1, 13, 45, 0, 0, time.UTC),
		Metric: "bogus",
	}.Normalize()

	assert.Equal(t, Wildcard, s.Site)
	assert.Equal(t, Wildcard, s.Sector)
	assert.Equal(t, Wildcard, s.Cell)
	assert.Equal(t, DefaultMetric, s.Metric)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s.Start)
	assert.True(t, s.End.IsZero())
}
