package dataprocessing

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// RawTable is the header-normalized, untyped content of one tabular file
type RawTable struct {
	Source  string
	Columns []string
	Rows    [][]string
	// SerialDates is set when cells may carry spreadsheet serial dates
	SerialDates bool
}

// Index returns the position of the first column with the given name, or -1
func (t *RawTable) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// candidate field separators, in preference order for ties
var delimiters = []rune{',', ';', '\t', '|'}

// ReadTable reads a delimited text file or an .xlsx workbook from r.
// name is used for error messages and to pick the format by extension.
func ReadTable(r io.Reader, name string, collapse bool) (*RawTable, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(r, name, collapse)
	default:
		return readDelimited(r, name, collapse)
	}
}

func readDelimited(r io.Reader, name string, collapse bool) (*RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, unreadable(name, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, unreadable(name, errors.New("no header row"))
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return nil, unreadable(name, errors.New("content is binary, not text"))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, unreadable(name, err)
	}
	return buildTable(name, records, collapse, false), nil
}

// sniffDelimiter counts candidate separators outside quotes on the header line
func sniffDelimiter(data []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')

	counts := make(map[rune]int, len(delimiters))
	inQuotes := false
	for _, ch := range line {
		if ch == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[ch]++
		}
	}

	best := delimiters[0]
	for _, d := range delimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

func readWorkbook(r io.Reader, name string, collapse bool) (*RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, unreadable(name, err)
	}
	defer f.Close()

	// First sheet with any content wins
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, unreadable(name, fmt.Errorf("sheet %q: %w", sheet, err))
		}
		if len(rows) > 0 {
			return buildTable(name, rows, collapse, true), nil
		}
	}
	return nil, unreadable(name, errors.New("workbook has no non-empty sheet"))
}

// buildTable normalizes the header and pads every row to the header width
func buildTable(name string, records [][]string, collapse, serials bool) *RawTable {
	table := &RawTable{
		Source:      name,
		Columns:     NormalizeColumns(records[0], collapse),
		SerialDates: serials,
	}
	width := len(table.Columns)
	for _, rec := range records[1:] {
		if isBlankRow(rec) {
			continue
		}
		row := make([]string, width)
		copy(row, rec)
		table.Rows = append(table.Rows, row)
	}
	return table
}

func isBlankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
