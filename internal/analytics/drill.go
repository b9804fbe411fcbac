package analytics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"kpidash/pkg/contracts/domain"
)

// ErrInvalidClick is returned when a chart click cannot be read as a date
var ErrInvalidClick = errors.New("click is not a date")

// chart libraries report date-axis clicks in any of these forms
var clickLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006",
	"20060102",
}

// maxClickMillis bounds epoch-millisecond clicks to what int64 can hold
const maxClickMillis = float64(math.MaxInt64)

// ParseClick reads the x coordinate of a trend-chart click. Besides the
// layouts above it accepts Unix epoch milliseconds. The result is normalized
// to the calendar day so it compares equal to aggregated dates.
func ParseClick(x string) (time.Time, error) {
	x = strings.TrimSpace(x)
	if x == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidClick)
	}
	for _, layout := range clickLayouts {
		if t, err := time.Parse(layout, x); err == nil {
			return domain.TruncateDay(t), nil
		}
	}
	if ms, err := strconv.ParseFloat(x, 64); err == nil && math.Abs(ms) < maxClickMillis {
		return domain.TruncateDay(time.UnixMilli(int64(ms)).UTC()), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidClick, x)
}

// Resolve returns the records of view dated on the clicked day. A nil click
// yields the idle result.
func Resolve(view *domain.Dataset, clicked *time.Time) domain.DrillResult {
	if clicked == nil {
		return domain.DrillResult{Idle: true, Records: []domain.Record{}}
	}
	day := domain.TruncateDay(*clicked)

	records := make([]domain.Record, 0)
	for i := 0; i < view.Len(); i++ {
		if r := view.At(i); r.Date.Equal(day) {
			records = append(records, r)
		}
	}
	return domain.DrillResult{Date: &day, Records: records, Count: len(records)}
}
