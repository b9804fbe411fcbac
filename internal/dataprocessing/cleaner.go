package dataprocessing

import (
	"log/slog"
	"strconv"
	"strings"

	"kpidash/pkg/contracts/domain"
)

// placeholder tokens that mean "no value" in exported spreadsheets
var blankTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"none": {},
	"null": {},
	"<na>": {},
}

func isBlank(v string) bool {
	_, ok := blankTokens[strings.ToLower(v)]
	return ok
}

// Cleaner turns a validated RawTable into a Dataset. It never fails: bad rows
// are dropped and bad numeric fields become missing.
type Cleaner struct {
	mode   DateMode
	logger *slog.Logger
}

// NewCleaner creates a cleaner for the given date mode
func NewCleaner(mode DateMode, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		mode:   mode,
		logger: logger.With(slog.String("component", "cleaner")),
	}
}

type columnIndex struct {
	date, site, sector, cell, traffic, availability, lat, lon int
}

func (t *RawTable) columnIndex() columnIndex {
	return columnIndex{
		date:         t.Index(ColumnDate),
		site:         t.Index(ColumnSite),
		sector:       t.Index(ColumnSector),
		cell:         t.Index(ColumnCell),
		traffic:      t.Index(ColumnTraffic),
		availability: t.Index(ColumnAvailability),
		lat:          t.Index(ColumnLat),
		lon:          t.Index(ColumnLon),
	}
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Clean applies, in order: string trimming, site filtering, date parsing and
// numeric coercion.
func (c *Cleaner) Clean(table *RawTable) *domain.Dataset {
	idx := table.columnIndex()
	stats := domain.CleanStats{RowsRead: len(table.Rows)}

	// Steps 1-2: identity columns, rows without a usable site are dropped
	type candidate struct {
		row                []string
		site, sector, cell string
	}
	candidates := make([]candidate, 0, len(table.Rows))
	for _, row := range table.Rows {
		site := identity(field(row, idx.site))
		if isBlank(site) {
			stats.DroppedSite++
			continue
		}
		candidates = append(candidates, candidate{
			row:    row,
			site:   site,
			sector: categorical(row, idx.sector),
			cell:   categorical(row, idx.cell),
		})
	}

	// Step 3: dates, detected over the surviving rows
	dateValues := make([]string, len(candidates))
	for i, cand := range candidates {
		dateValues[i] = field(cand.row, idx.date)
	}
	layout := DetectLayout(dateValues, c.mode, table.SerialDates)

	records := make([]domain.Record, 0, len(candidates))
	for i, cand := range candidates {
		date, ok := ParseDate(dateValues[i], layout, c.mode, table.SerialDates)
		if !ok {
			stats.DroppedDate++
			continue
		}

		// Step 4: numerics, failures become missing
		rec := domain.Record{
			Date:         date,
			Site:         cand.site,
			Sector:       cand.sector,
			Cell:         cand.cell,
			TrafficGB:    parseTraffic(field(cand.row, idx.traffic)),
			Availability: parseNumber(field(cand.row, idx.availability)),
			Lat:          parseCoordinate(field(cand.row, idx.lat), 90),
			Lon:          parseCoordinate(field(cand.row, idx.lon), 180),
		}
		if !rec.TrafficGB.Valid {
			stats.MissingTraffic++
		}
		if !rec.Availability.Valid {
			stats.MissingAvailability++
		}
		if !rec.HasLocation() {
			stats.MissingLocation++
		}
		records = append(records, rec)
	}
	stats.RowsKept = len(records)

	c.logger.Debug("dataset cleaned",
		slog.String("source", table.Source),
		slog.String("date_layout", layout),
		slog.Int("rows_read", stats.RowsRead),
		slog.Int("rows_kept", stats.RowsKept),
		slog.Int("dropped_site", stats.DroppedSite),
		slog.Int("dropped_date", stats.DroppedDate))

	return domain.NewDataset(table.Source, table.Columns, layout, records, stats)
}

// categorical returns the trimmed value or the Unassigned sentinel
func categorical(row []string, idx int) string {
	v := field(row, idx)
	if isBlank(v) {
		return domain.Unassigned
	}
	return identity(v)
}

// identity keeps a literal "All" apart from the filter wildcard
func identity(v string) string {
	if v == domain.Wildcard {
		return domain.WildcardValue
	}
	return v
}

func parseNumber(v string) domain.Measure {
	if isBlank(v) {
		return domain.Missing()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return domain.Missing()
	}
	return domain.Some(f)
}

// parseTraffic rejects negative volumes
func parseTraffic(v string) domain.Measure {
	m := parseNumber(v)
	if m.Valid && m.Value < 0 {
		return domain.Missing()
	}
	return m
}

// parseCoordinate rejects values outside [-limit, limit]
func parseCoordinate(v string, limit float64) domain.Measure {
	m := parseNumber(v)
	if m.Valid && (m.Value < -limit || m.Value > limit) {
		return domain.Missing()
	}
	return m
}

// TableFromDataset renders a dataset back into a RawTable with its original
// columns, so that cleaning the result reproduces the dataset.
func TableFromDataset(ds *domain.Dataset) *RawTable {
	table := &RawTable{
		Source:  ds.Source,
		Columns: append([]string(nil), ds.Columns...),
		Rows:    make([][]string, 0, ds.Len()),
	}
	for i := 0; i < ds.Len(); i++ {
		r := ds.At(i)
		row := make([]string, len(table.Columns))
		for j, col := range table.Columns {
			switch col {
			case ColumnDate:
				row[j] = FormatDate(r.Date, ds.DateLayout)
			case ColumnSite:
				row[j] = r.Site
			case ColumnSector:
				row[j] = r.Sector
			case ColumnCell:
				row[j] = r.Cell
			case ColumnTraffic:
				row[j] = r.TrafficGB.String()
			case ColumnAvailability:
				row[j] = r.Availability.String()
			case ColumnLat:
				row[j] = r.Lat.String()
			case ColumnLon:
				row[j] = r.Lon.String()
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
