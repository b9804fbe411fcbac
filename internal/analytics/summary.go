package analytics

import (
	"kpidash/pkg/contracts/domain"
)

// DefaultAvailabilityThreshold is the availability target drawn on the chart
const DefaultAvailabilityThreshold = 95.0

// Summarize computes the headline metrics of a view: distinct sites, mean
// availability over present values and total traffic over present values.
// Means and totals over no values are missing.
func Summarize(view *domain.Dataset) domain.Summary {
	sites := make(map[string]struct{})
	var availSum, trafficSum float64
	var availN, trafficN int

	for i := 0; i < view.Len(); i++ {
		r := view.At(i)
		sites[r.Site] = struct{}{}
		if r.Availability.Valid {
			availSum += r.Availability.Value
			availN++
		}
		if r.TrafficGB.Valid {
			trafficSum += r.TrafficGB.Value
			trafficN++
		}
	}

	s := domain.Summary{SiteCount: len(sites)}
	if availN > 0 {
		s.MeanAvailability = domain.Some(availSum / float64(availN))
	}
	if trafficN > 0 {
		s.TotalTraffic = domain.Some(trafficSum)
	}
	return s
}

// MapPoints returns the records of view that have both coordinates
func MapPoints(view *domain.Dataset) []domain.MapPoint {
	points := make([]domain.MapPoint, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		r := view.At(i)
		if !r.HasLocation() {
			continue
		}
		points = append(points, domain.MapPoint{
			Date:         r.Date,
			Site:         r.Site,
			Sector:       r.Sector,
			Cell:         r.Cell,
			Lat:          r.Lat.Value,
			Lon:          r.Lon.Value,
			TrafficGB:    r.TrafficGB,
			Availability: r.Availability,
		})
	}
	return points
}

// ThresholdFor returns the annotation for metric, or nil when the metric has
// no target
func ThresholdFor(metric domain.Metric, availability float64) *domain.Threshold {
	if metric != domain.MetricAvailability {
		return nil
	}
	return &domain.Threshold{
		Metric: metric,
		Value:  availability,
		Label:  "Target",
	}
}
