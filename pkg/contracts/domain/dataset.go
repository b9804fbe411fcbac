package domain

import (
	"slices"
	"time"
)

// CleanStats counts what the cleaner did to the raw rows of one load
type CleanStats struct {
	RowsRead            int `json:"rows_read"`
	RowsKept            int `json:"rows_kept"`
	DroppedSite         int `json:"dropped_site"`
	DroppedDate         int `json:"dropped_date"`
	MissingTraffic      int `json:"missing_traffic"`
	MissingAvailability int `json:"missing_availability"`
	MissingLocation     int `json:"missing_location"`
}

// Dataset is the immutable cleaned record set of one loaded file.
//
// A Dataset is never modified after construction. Filtering derives views
// through WithRecords, which share the metadata but own their record slice.
type Dataset struct {
	Source     string     `json:"source"`
	Columns    []string   `json:"columns"`
	DateLayout string     `json:"date_layout"`
	LoadedAt   time.Time  `json:"loaded_at"`
	Stats      CleanStats `json:"stats"`
	// Checksum is the hex BLAKE2b-256 of the file bytes the dataset was
	// loaded from
	Checksum string `json:"checksum,omitempty"`

	records []Record
}

// NewDataset builds a Dataset that takes ownership of records
func NewDataset(source string, columns []string, dateLayout string, records []Record, stats CleanStats) *Dataset {
	return &Dataset{
		Source:     source,
		Columns:    slices.Clone(columns),
		DateLayout: dateLayout,
		LoadedAt:   time.Now().UTC(),
		Stats:      stats,
		records:    records,
	}
}

// Len returns the number of records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// At returns the i-th record by value
func (d *Dataset) At(i int) Record {
	return d.records[i]
}

// Records returns a copy of the records in source order
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return slices.Clone(d.records)
}

// WithRecords derives a view over records that keeps this dataset's metadata
func (d *Dataset) WithRecords(records []Record) *Dataset {
	return &Dataset{
		Source:     d.Source,
		Columns:    d.Columns,
		DateLayout: d.DateLayout,
		LoadedAt:   d.LoadedAt,
		Stats:      d.Stats,
		records:    records,
	}
}

// HasColumn reports whether the source file carried the named column
func (d *Dataset) HasColumn(name string) bool {
	return slices.Contains(d.Columns, name)
}

// DateBounds returns the earliest and latest record dates
func (d *Dataset) DateBounds() (DateRange, bool) {
	if d.Len() == 0 {
		return DateRange{}, false
	}
	bounds := DateRange{Start: d.records[0].Date, End: d.records[0].Date}
	for _, r := range d.records[1:] {
		if r.Date.Before(bounds.Start) {
			bounds.Start = r.Date
		}
		if r.Date.After(bounds.End) {
			bounds.End = r.Date
		}
	}
	return bounds, true
}

// DateRange is an inclusive calendar-day interval
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the inclusive range
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}
