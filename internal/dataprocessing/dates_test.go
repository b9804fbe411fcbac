package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDetectLayout(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		mode    DateMode
		serials bool
		want    string
	}{
		{"iso", []string{"2024-01-15", "2024-01-16"}, DateModeAuto, false, LayoutISO},
		{"mdy", []string{"1/15/2024", "1/16/2024"}, DateModeAuto, false, LayoutMDY},
		{"ambiguous prefers mdy", []string{"01/02/2024", "02/03/2024"}, DateModeAuto, false, LayoutMDY},
		{"dmy when days exceed 12", []string{"25/12/2024", "26/12/2024", "01/12/2024"}, DateModeAuto, false, "2/1/2006"},
		{"datetime", []string{"2024-01-15 10:30:00"}, DateModeAuto, false, "2006-01-02 15:04:05"},
		{"blanks ignored", []string{"", "  ", "2024-01-15"}, DateModeAuto, false, LayoutISO},
		{"nothing parses", []string{"soon", "later"}, DateModeAuto, false, ""},
		{"mdy mode is fixed", []string{"2024-01-15"}, DateModeMDY, false, LayoutMDY},
		{"serial numbers", []string{"45292", "45293"}, DateModeAuto, true, LayoutExcelSerial},
		{"serials need workbook input", []string{"45292", "45293"}, DateModeAuto, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLayout(tt.values, tt.mode, tt.serials))
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		layout  string
		mode    DateMode
		serials bool
		want    time.Time
		ok      bool
	}{
		{"layout match", "1/15/2024", LayoutMDY, DateModeAuto, false, day(2024, 1, 15), true},
		{"time of day dropped", "2024-01-15 23:59:59", LayoutISO, DateModeAuto, false, day(2024, 1, 15), true},
		{"auto falls back per row", "2024-01-15", LayoutMDY, DateModeAuto, false, day(2024, 1, 15), true},
		{"mdy mode has no fallback", "2024-01-15", LayoutMDY, DateModeMDY, false, time.Time{}, false},
		{"mdy mode rejects day first", "25/12/2024", LayoutMDY, DateModeMDY, false, time.Time{}, false},
		{"blank", "  ", LayoutISO, DateModeAuto, false, time.Time{}, false},
		{"garbage", "not-a-date", LayoutISO, DateModeAuto, false, time.Time{}, false},
		{"serial", "45292", LayoutExcelSerial, DateModeAuto, true, day(2024, 1, 1), true},
		{"fractional serial", "45292.75", LayoutExcelSerial, DateModeAuto, true, day(2024, 1, 1), true},
		{"serial out of range", "-3", LayoutExcelSerial, DateModeAuto, true, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.value, tt.layout, tt.mode, tt.serials)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestParseDateMode(t *testing.T) {
	mode, err := ParseDateMode("")
	require.NoError(t, err)
	assert.Equal(t, DateModeAuto, mode)

	mode, err = ParseDateMode(" MDY ")
	require.NoError(t, err)
	assert.Equal(t, DateModeMDY, mode)

	_, err = ParseDateMode("dmy")
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	d := day(2024, 3, 7)
	assert.Equal(t, "3/7/2024", FormatDate(d, LayoutMDY))
	assert.Equal(t, "2024-03-07", FormatDate(d, LayoutExcelSerial))
	assert.Equal(t, "2024-03-07", FormatDate(d, ""))
}
