package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/internal/shared/testutil"
)

func TestLoaderLoadFile(t *testing.T) {
	fixtures := testutil.NewKPIFixtures(t.TempDir())
	path, err := fixtures.WriteSample("kpi_data.csv")
	require.NoError(t, err)

	logger, handler := testutil.NewTestLogger(t)
	ds, err := NewLoader(DefaultOptions(), logger).LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "kpi_data.csv", ds.Source)
	assert.Equal(t, LayoutMDY, ds.DateLayout)
	assert.Equal(t, 8, ds.Len())
	assert.True(t, ds.HasColumn("traffic_gb"))
	assert.Equal(t, 1, ds.Stats.MissingLocation)

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "dataset loaded")
	testutil.AssertLogAttr(t, handler, "component", "loader")
	testutil.AssertNoErrors(t, handler)
}

func TestLoaderChecksum(t *testing.T) {
	loader := NewLoader(DefaultOptions(), nil)
	ctx := context.Background()

	first, err := loader.LoadBytes(ctx, []byte(testutil.SampleCSV), "a.csv")
	require.NoError(t, err)
	second, err := loader.LoadBytes(ctx, []byte(testutil.SampleCSV), "b.csv")
	require.NoError(t, err)
	changed, err := loader.LoadBytes(ctx, []byte(testutil.SampleCSV+"\n"), "a.csv")
	require.NoError(t, err)

	assert.Len(t, first.Checksum, 64)
	assert.Equal(t, first.Checksum, second.Checksum, "checksum ignores the file name")
	assert.NotEqual(t, first.Checksum, changed.Checksum)
}

func TestLoaderFatalErrors(t *testing.T) {
	fixtures := testutil.NewKPIFixtures(t.TempDir())

	tests := []struct {
		corruption string
		want       error
		contains   string
	}{
		{"binary", ErrUnreadable, "binary"},
		{"empty", ErrUnreadable, "no header row"},
		{"header_only", ErrEmpty, "no data rows"},
		{"missing_site", ErrMissingColumn, `"site"`},
	}

	for _, tt := range tests {
		t.Run(tt.corruption, func(t *testing.T) {
			path, err := fixtures.CreateCorruptedFile(tt.corruption+".csv", tt.corruption)
			require.NoError(t, err)

			logger, handler := testutil.NewTestLogger(t)
			ds, err := NewLoader(DefaultOptions(), logger).LoadFile(context.Background(), path)
			assert.Nil(t, ds)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, err.Error(), tt.contains)
			testutil.AssertLogContains(t, handler, slog.LevelWarn, "dataset rejected")
		})
	}
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(DefaultOptions(), nil).LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, errors.Is(err, ErrUnreadable))
}

func TestLoaderRequireCoordinates(t *testing.T) {
	content := testutil.CSV("date,site,traffic_gb,availability,lat", "2024-01-01,S1,1,99,33")

	_, err := NewLoader(DefaultOptions(), nil).LoadBytes(context.Background(), []byte(content), "kpi.csv")
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.RequireCoordinates = true
	_, err = NewLoader(opts, nil).LoadBytes(context.Background(), []byte(content), "kpi.csv")

	var mc *MissingColumnError
	require.True(t, errors.As(err, &mc))
	assert.Equal(t, "lon", mc.Column)
}

func TestLoaderBadDateRatio(t *testing.T) {
	build := func(bad int) []byte {
		rows := make([]string, 0, 10)
		for i := 0; i < 10; i++ {
			date := fmt.Sprintf("2024-01-%02d", i+1)
			if i < bad {
				date = "garbage"
			}
			rows = append(rows, date+",S1,1,99")
		}
		// siteless rows do not count towards the ratio
		rows = append(rows, "garbage,,1,99", "garbage,,1,99")
		return []byte(testutil.CSV("date,site,traffic_gb,availability", rows...))
	}

	tests := []struct {
		name    string
		bad     int
		ratio   float64
		wantErr bool
	}{
		{"clean", 0, 0.1, false},
		{"at the limit", 1, 0.1, false},
		{"over the limit", 2, 0.1, true},
		{"relaxed limit", 5, 0.5, false},
		{"zero tolerance", 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.MaxBadDateRatio = tt.ratio

			ds, err := NewLoader(opts, nil).LoadBytes(context.Background(), build(tt.bad), "kpi.csv")
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, 10-tt.bad, ds.Len())
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTooManyBadDates))

			var de *DateParseError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, ColumnDate, de.Column)
			assert.Equal(t, tt.bad, de.Bad)
			assert.Equal(t, 10, de.Total)
			assert.Equal(t, "garbage", de.Sample)
		})
	}
}

func TestLoaderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(DefaultOptions(), nil).Load(ctx, strings.NewReader(testutil.SampleCSV), "kpi.csv")
	assert.ErrorIs(t, err, context.Canceled)
}
