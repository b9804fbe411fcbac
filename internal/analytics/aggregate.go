package analytics

import (
	"slices"
	"time"

	"kpidash/pkg/contracts/domain"
)

// DefaultWindow is the rolling-average length in aggregated points
const DefaultWindow = 7

type dayAccumulator struct {
	date    time.Time
	sum     float64
	rows    int
	samples int
}

// Aggregate groups view by date and averages metric over the non-missing
// values of each date, using the default rolling window.
func Aggregate(view *domain.Dataset, metric domain.Metric) []domain.TrendPoint {
	return AggregateWindow(view, metric, DefaultWindow)
}

// AggregateWindow is Aggregate with an explicit rolling window. Points come
// back in ascending date order. A date whose values are all missing has a
// missing Value, never zero.
func AggregateWindow(view *domain.Dataset, metric domain.Metric, window int) []domain.TrendPoint {
	n := view.Len()
	if n == 0 {
		return []domain.TrendPoint{}
	}

	groups := make(map[int64]*dayAccumulator)
	for i := 0; i < n; i++ {
		r := view.At(i)
		key := r.Date.Unix()
		acc, ok := groups[key]
		if !ok {
			acc = &dayAccumulator{date: r.Date}
			groups[key] = acc
		}
		acc.rows++
		if v := r.Value(metric); v.Valid {
			acc.sum += v.Value
			acc.samples++
		}
	}

	points := make([]domain.TrendPoint, 0, len(groups))
	for _, acc := range groups {
		p := domain.TrendPoint{Date: acc.date, Rows: acc.rows, Samples: acc.samples}
		if acc.samples > 0 {
			p.Value = domain.Some(acc.sum / float64(acc.samples))
		}
		points = append(points, p)
	}
	slices.SortFunc(points, func(a, b domain.TrendPoint) int {
		return a.Date.Compare(b.Date)
	})

	Rolling(points, window)
	return points
}

// Rolling sets the trailing mean of the last window values on every point.
// The mean stays missing until window points exist, and for any window that
// contains a missing value.
func Rolling(points []domain.TrendPoint, window int) {
	if window < 1 {
		window = 1
	}
	for i := range points {
		points[i].Rolling = domain.Missing()
		if i+1 < window {
			continue
		}
		sum, complete := 0.0, true
		for _, p := range points[i+1-window : i+1] {
			if !p.Value.Valid {
				complete = false
				break
			}
			sum += p.Value.Value
		}
		if complete {
			points[i].Rolling = domain.Some(sum / float64(window))
		}
	}
}
