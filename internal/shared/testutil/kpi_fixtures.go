package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kpidash/pkg/contracts/domain"
)

// SampleCSV is a small, well-formed KPI export: three sites over four days,
// sectors on S1 and S2 only, and one row without coordinates
const SampleCSV = `Date,Site,Sector,Cell,Traffic GB,Availability,Lat,Lon
01/01/2024,S1,A,C1,10,99.5,33.31,44.36
01/01/2024,S1,B,C2,20,97,33.31,44.36
01/01/2024,S2,A,C3,30,93,36.19,44.01
01/02/2024,S1,A,C1,12,99,33.31,44.36
01/02/2024,S2,A,C3,28,94,36.19,44.01
01/02/2024,S3,,,5,100,,
01/03/2024,S1,B,C2,18,96,33.31,44.36
01/04/2024,S2,B,C4,25,91,36.19,44.01
`

// KPIFixtures writes KPI files for tests into TestDataDir
type KPIFixtures struct {
	TestDataDir string
}

// NewKPIFixtures creates a new fixtures manager
func NewKPIFixtures(testDataDir string) *KPIFixtures {
	return &KPIFixtures{TestDataDir: testDataDir}
}

// WriteFile writes content to name inside the fixtures dir and returns its path
func (f *KPIFixtures) WriteFile(name string, content []byte) (string, error) {
	if err := os.MkdirAll(f.TestDataDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(f.TestDataDir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write fixture %s: %w", name, err)
	}
	return path, nil
}

// WriteSample writes SampleCSV as name
func (f *KPIFixtures) WriteSample(name string) (string, error) {
	return f.WriteFile(name, []byte(SampleCSV))
}

// CreateCorruptedFile writes a file that fails to load in a known way.
// corruptionType is one of binary, empty, header_only or missing_site.
func (f *KPIFixtures) CreateCorruptedFile(name, corruptionType string) (string, error) {
	var content []byte
	switch corruptionType {
	case "binary":
		content = []byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0x00, 0xff, 0xfe}
	case "empty":
		content = nil
	case "header_only":
		content = []byte("date,site,traffic_gb,availability\n")
	case "missing_site":
		content = []byte("date,traffic_gb,availability\n2024-01-01,1,99\n")
	default:
		return "", fmt.Errorf("unknown corruption type: %s", corruptionType)
	}
	return f.WriteFile(name, content)
}

// CSV joins a header and rows into comma-separated text
func CSV(header string, rows ...string) string {
	return header + "\n" + strings.Join(rows, "\n") + "\n"
}

// Day returns the UTC midnight of an ISO date and panics on bad input
func Day(iso string) time.Time {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		panic(err)
	}
	return t
}

// Rec builds a record with both metrics set and no coordinates
func Rec(date, site, sector, cell string, traffic, availability float64) domain.Record {
	return domain.Record{
		Date:         Day(date),
		Site:         site,
		Sector:       sector,
		Cell:         cell,
		TrafficGB:    domain.Some(traffic),
		Availability: domain.Some(availability),
	}
}

// Dataset wraps records in a Dataset with the full KPI header
func Dataset(records ...domain.Record) *domain.Dataset {
	columns := []string{"date", "site", "sector", "cell", "traffic_gb", "availability", "lat", "lon"}
	return domain.NewDataset("fixture.csv", columns, "2006-01-02", records,
		domain.CleanStats{RowsRead: len(records), RowsKept: len(records)})
}
