package dataprocessing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidate(t *testing.T) {
	full := []string{"date", "site", "sector", "cell", "traffic_gb", "availability", "lat", "lon"}

	t.Run("each missing required column is named", func(t *testing.T) {
		for _, missing := range NewSchema(false).Required() {
			t.Run(missing, func(t *testing.T) {
				var cols []string
				for _, c := range full {
					if c != missing {
						cols = append(cols, c)
					}
				}

				err := NewSchema(false).Validate(cols)
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMissingColumn))

				var mc *MissingColumnError
				require.True(t, errors.As(err, &mc))
				assert.Equal(t, missing, mc.Column)
				assert.Contains(t, err.Error(), missing)
			})
		}
	})

	tests := []struct {
		name    string
		header  []string
		coords  bool
		wantErr string
	}{
		{
			name:   "required only",
			header: []string{"date", "site", "traffic_gb", "availability"},
		},
		{
			name:   "any order and case",
			header: []string{" Availability", "TRAFFIC_GB", "Site ", "date"},
		},
		{
			name:   "spaced header collapses",
			header: []string{"Date", "Site", "Traffic  GB", "Availability"},
		},
		{
			name:    "coordinates required in strict mode",
			header:  []string{"date", "site", "traffic_gb", "availability", "lat"},
			coords:  true,
			wantErr: "lon",
		},
		{
			name:    "first missing in declaration order",
			header:  []string{"availability", "traffic_gb"},
			wantErr: "date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSchema(tt.coords).Validate(NormalizeColumns(tt.header, true))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var mc *MissingColumnError
			require.True(t, errors.As(err, &mc))
			assert.Equal(t, tt.wantErr, mc.Column)
		})
	}
}

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		in       string
		collapse bool
		want     string
	}{
		{"Date", true, "date"},
		{"  Traffic GB ", true, "traffic_gb"},
		{"Traffic \t GB", true, "traffic_gb"},
		{"Traffic GB", false, "traffic gb"},
		{"\ufeffdate", true, "date"},
		{"", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColumn(tt.in, tt.collapse))
		})
	}
}
