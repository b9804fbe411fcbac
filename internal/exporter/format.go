package exporter

import (
	"strconv"
	"time"

	"kpidash/pkg/contracts/domain"
)

// DateLayout is the date format of exported rows
const DateLayout = "2006-01-02"

// formatMeasure renders a measure at full precision, empty when missing
func formatMeasure(m domain.Measure) string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// formatDate renders a record date
func formatDate(t time.Time) string {
	return t.Format(DateLayout)
}
