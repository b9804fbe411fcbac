package exporter

import (
	"kpidash/pkg/contracts/domain"
)

// Headers returns the exported column names in output order
func Headers() []string {
	return []string{"date", "site", "sector", "cell", "traffic_gb", "availability", "lat", "lon"}
}

// RecordRow converts a record to its CSV row
func RecordRow(r domain.Record) []string {
	return []string{
		formatDate(r.Date),
		r.Site,
		r.Sector,
		r.Cell,
		formatMeasure(r.TrafficGB),
		formatMeasure(r.Availability),
		formatMeasure(r.Lat),
		formatMeasure(r.Lon),
	}
}
