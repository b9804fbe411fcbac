package analytics

import (
	"slices"
	"time"

	"kpidash/pkg/contracts/domain"
)

// FilterResult is a filtered view together with the state that produced it.
// State is the effective selection: stale categorical values have already
// fallen back to the wildcard.
type FilterResult struct {
	View    *domain.Dataset
	State   domain.FilterState
	Options domain.FilterOptions
}

// Filter applies the date range and then the site, sector and cell selections
// in sequence. Each stage's options come from the output of the previous
// stage, so a site narrows the sectors and a sector narrows the cells.
// The base dataset is never modified.
func Filter(ds *domain.Dataset, state domain.FilterState) FilterResult {
	state = state.Normalize()
	if ds == nil {
		ds = domain.NewDataset("", nil, "", nil, domain.CleanStats{})
	}
	records := ds.Records()

	records = filterDates(records, state.Start, state.End)

	var opts domain.FilterOptions
	opts.Sites = Options(records, siteOf)
	state.Site = selectOption(opts.Sites, state.Site)
	records = keep(records, state.Site, siteOf)

	opts.Sectors = Options(records, sectorOf)
	state.Sector = selectOption(opts.Sectors, state.Sector)
	records = keep(records, state.Sector, sectorOf)

	opts.Cells = Options(records, cellOf)
	state.Cell = selectOption(opts.Cells, state.Cell)
	records = keep(records, state.Cell, cellOf)

	return FilterResult{View: ds.WithRecords(records), State: state, Options: opts}
}

func siteOf(r domain.Record) string   { return r.Site }
func sectorOf(r domain.Record) string { return r.Sector }
func cellOf(r domain.Record) string   { return r.Cell }

// Options returns Wildcard followed by the sorted distinct values of field
func Options(records []domain.Record, field func(domain.Record) string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, r := range records {
		v := field(r)
		if v == domain.Wildcard {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	slices.Sort(values)
	return append([]string{domain.Wildcard}, values...)
}

// selectOption keeps selected when it is still offered, otherwise Wildcard
func selectOption(options []string, selected string) string {
	if slices.Contains(options, selected) {
		return selected
	}
	return domain.Wildcard
}

// filterDates keeps start <= date <= end; a zero bound is open
func filterDates(records []domain.Record, start, end time.Time) []domain.Record {
	if len(records) == 0 || (start.IsZero() && end.IsZero()) {
		return records
	}
	out := records[:0]
	for _, r := range records {
		if !start.IsZero() && r.Date.Before(start) {
			continue
		}
		if !end.IsZero() && r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func keep(records []domain.Record, selected string, field func(domain.Record) string) []domain.Record {
	if len(records) == 0 || selected == domain.Wildcard {
		return records
	}
	out := records[:0]
	for _, r := range records {
		if field(r) == selected {
			out = append(out, r)
		}
	}
	return out
}
