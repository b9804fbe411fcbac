package dataprocessing

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadTableDelimited(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCols []string
		wantRows int
	}{
		{
			name:     "comma",
			input:    "Date,Site,Traffic GB,Availability\n2024-01-01,S1,1,99\n",
			wantCols: []string{"date", "site", "traffic_gb", "availability"},
			wantRows: 1,
		},
		{
			name:     "semicolon with decimal commas quoted",
			input:    "date;site;traffic_gb;availability\n2024-01-01;S1;\"1,5\";99\n",
			wantCols: []string{"date", "site", "traffic_gb", "availability"},
			wantRows: 1,
		},
		{
			name:     "tab",
			input:    "date\tsite\ttraffic_gb\tavailability\n2024-01-01\tS1\t1\t99\n2024-01-02\tS1\t2\t98\n",
			wantCols: []string{"date", "site", "traffic_gb", "availability"},
			wantRows: 2,
		},
		{
			name:     "bom and blank lines",
			input:    "\xef\xbb\xbfdate,site,traffic_gb,availability\n\n2024-01-01,S1,1,99\n,,,\n",
			wantCols: []string{"date", "site", "traffic_gb", "availability"},
			wantRows: 1,
		},
		{
			name:     "ragged rows padded",
			input:    "date,site,traffic_gb,availability\n2024-01-01,S1\n",
			wantCols: []string{"date", "site", "traffic_gb", "availability"},
			wantRows: 1,
		},
		{
			name:     "header only",
			input:    "date,site,traffic_gb,availability\n",
			wantCols: []string{"date", "site", "traffic_gb", "availability"},
			wantRows: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadTable(strings.NewReader(tt.input), "kpi.csv", true)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, table.Columns)
			assert.Len(t, table.Rows, tt.wantRows)
			for _, row := range table.Rows {
				assert.Len(t, row, len(table.Columns))
			}
			assert.False(t, table.SerialDates)
		})
	}
}

func TestReadTableUnreadable(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"whitespace", []byte("  \n\n")},
		{"binary", []byte{0x89, 'P', 'N', 'G', 0x00, 0x1a}},
		{"invalid utf8", []byte("date,site\n\xff\xfe,x\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(bytes.NewReader(tt.input), "kpi.csv", true)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnreadable))

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, "kpi.csv", le.Source)
		})
	}
}

func TestReadTableWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Date", "Site", "Traffic GB", "Availability"},
		{45292, "S1", 12.5, 99},
		{45293, "S2", 7, 98.5},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ReadTable(bytes.NewReader(buf.Bytes()), "kpi.xlsx", true)
	require.NoError(t, err)

	assert.True(t, table.SerialDates)
	assert.Equal(t, []string{"date", "site", "traffic_gb", "availability"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "45292", table.Rows[0][0])
	assert.Equal(t, "S1", table.Rows[0][1])
	assert.Equal(t, "12.5", table.Rows[0][2])
}

func TestReadTableCorruptWorkbook(t *testing.T) {
	_, err := ReadTable(strings.NewReader("not a zip"), "kpi.xlsx", true)
	assert.True(t, errors.Is(err, ErrUnreadable))
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b,c\n1,2,3")))
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\n")))
	assert.Equal(t, '|', sniffDelimiter([]byte("a|b|c")))
	assert.Equal(t, ';', sniffDelimiter([]byte(`"x,y";b;c`)))
	assert.Equal(t, ',', sniffDelimiter([]byte("single")))
}
