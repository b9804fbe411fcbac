package dataprocessing

import (
	"strings"
	"unicode"
)

// Canonical column names after header normalization
const (
	ColumnDate         = "date"
	ColumnSite         = "site"
	ColumnSector       = "sector"
	ColumnCell         = "cell"
	ColumnTraffic      = "traffic_gb"
	ColumnAvailability = "availability"
	ColumnLat          = "lat"
	ColumnLon          = "lon"
)

// FieldKind is the type a column is coerced to
type FieldKind int

const (
	KindString FieldKind = iota
	KindDate
	KindNumber
)

// Field declares one column of the KPI schema
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
}

// Schema is the declared set of KPI columns
type Schema struct {
	Fields []Field
}

// NewSchema returns the KPI schema. With requireCoordinates, lat and lon
// become required as well.
func NewSchema(requireCoordinates bool) Schema {
	return Schema{Fields: []Field{
		{Name: ColumnDate, Kind: KindDate, Required: true},
		{Name: ColumnSite, Kind: KindString, Required: true},
		{Name: ColumnSector, Kind: KindString},
		{Name: ColumnCell, Kind: KindString},
		{Name: ColumnTraffic, Kind: KindNumber, Required: true},
		{Name: ColumnAvailability, Kind: KindNumber, Required: true},
		{Name: ColumnLat, Kind: KindNumber, Required: requireCoordinates},
		{Name: ColumnLon, Kind: KindNumber, Required: requireCoordinates},
	}}
}

// Required lists the required column names in declaration order
func (s Schema) Required() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Validate checks that every required field is among columns.
// Columns must already be normalized.
func (s Schema) Validate(columns []string) error {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	for _, name := range s.Required() {
		if _, ok := present[name]; !ok {
			return &MissingColumnError{Column: name, Present: columns}
		}
	}
	return nil
}

// NormalizeColumn trims and lower-cases a header name. With collapse, runs of
// internal whitespace become a single underscore.
func NormalizeColumn(name string, collapse bool) string {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	if !collapse {
		return name
	}
	return strings.Join(strings.FieldsFunc(name, unicode.IsSpace), "_")
}

// NormalizeColumns applies NormalizeColumn to every header name
func NormalizeColumns(names []string, collapse bool) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeColumn(n, collapse)
	}
	return out
}
