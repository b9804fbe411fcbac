package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"kpidash/pkg/contracts/domain"
)

// DateMode selects how the date column is parsed
type DateMode string

const (
	// DateModeAuto detects the layout from the data
	DateModeAuto DateMode = "auto"
	// DateModeMDY requires month/day/year
	DateModeMDY DateMode = "mdy"
)

// ParseDateMode validates a configured mode; empty means auto
func ParseDateMode(s string) (DateMode, error) {
	switch DateMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DateModeAuto:
		return DateModeAuto, nil
	case DateModeMDY:
		return DateModeMDY, nil
	default:
		return "", fmt.Errorf("unknown date mode %q (want auto or mdy)", s)
	}
}

const (
	// LayoutMDY is the fixed month/day/year layout
	LayoutMDY = "1/2/2006"
	// LayoutISO is the layout used when a dataset is written back out
	LayoutISO = "2006-01-02"
	// LayoutExcelSerial marks dates read as spreadsheet serial numbers
	LayoutExcelSerial = "excel-serial"
)

// detectSample bounds how many values layout detection looks at
const detectSample = 500

// autoLayouts are tried in order; ties in detection go to the earlier layout,
// so month/day/year wins over day/month/year for ambiguous data.
var autoLayouts = []string{
	LayoutISO,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	LayoutMDY,
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2006/1/2",
	"02.01.2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// DetectLayout picks the layout that parses the most values. In MDY mode the
// answer is always LayoutMDY. An empty result means nothing parsed.
func DetectLayout(values []string, mode DateMode, serials bool) string {
	if mode == DateModeMDY {
		return LayoutMDY
	}

	best, bestHits := "", 0
	counts := make([]int, len(autoLayouts))
	serialHits := 0
	seen := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if seen == detectSample {
			break
		}
		seen++
		for i, layout := range autoLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				counts[i]++
			}
		}
		if serials {
			if _, ok := parseSerial(v); ok {
				serialHits++
			}
		}
	}
	for i, c := range counts {
		if c > bestHits {
			best, bestHits = autoLayouts[i], c
		}
	}
	if serialHits > bestHits {
		best = LayoutExcelSerial
	}
	return best
}

// ParseDate parses v with layout, then, in auto mode, with every other
// candidate. The result is truncated to the calendar day.
func ParseDate(v, layout string, mode DateMode, serials bool) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if layout == LayoutExcelSerial {
		if t, ok := parseSerial(v); ok {
			return t, true
		}
	} else if layout != "" {
		if t, err := time.Parse(layout, v); err == nil {
			return domain.TruncateDay(t), true
		}
	}
	if mode != DateModeAuto {
		return time.Time{}, false
	}
	for _, candidate := range autoLayouts {
		if candidate == layout {
			continue
		}
		if t, err := time.Parse(candidate, v); err == nil {
			return domain.TruncateDay(t), true
		}
	}
	if serials && layout != LayoutExcelSerial {
		return parseSerial(v)
	}
	return time.Time{}, false
}

// FormatDate renders a date for layout; non-time layouts fall back to ISO
func FormatDate(t time.Time, layout string) string {
	if layout == "" || layout == LayoutExcelSerial {
		return t.Format(LayoutISO)
	}
	return t.Format(layout)
}

// parseSerial reads a spreadsheet serial day number (1900 date system)
func parseSerial(v string) (time.Time, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 1 || f > 2958465 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return domain.TruncateDay(t), true
}
