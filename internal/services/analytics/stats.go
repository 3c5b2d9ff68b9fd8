package analytics

import (
	"slices"
	"time"

	"RapWatch/internal/domain/models"
)

// SeriesStatistics returns min, max, mean, median and current price of series.
// An empty series yields all zeros.
//
// Median is the element at index n/2 of the value-sorted copy, so an
// even-length series reports the upper median. Current is the last element
// in input order.
func SeriesStatistics(series []models.PricePoint) models.PriceStats {
	if len(series) == 0 {
		return models.PriceStats{}
	}

	prices := priceValues(series)
	sorted := slices.Clone(prices)
	slices.Sort(sorted)

	var sum float64
	for _, p := range prices {
		sum += p
	}

	return models.PriceStats{
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Average: roundTo(sum/float64(len(prices)), 0),
		Median:  sorted[len(sorted)/2],
		Current: prices[len(prices)-1],
	}
}

// CalculatePriceChange compares the current price with the first point
// (in input order) dated strictly after now-hours. When no point falls inside
// the window the oldest point is used. Fewer than two points yield zero change.
func CalculatePriceChange(series []models.PricePoint, hours int, now time.Time) models.PriceChange {
	if len(series) < 2 {
		return models.PriceChange{}
	}

	cutoff := now.Add(-time.Duration(hours) * time.Hour)
	current := series[len(series)-1].Value

	start := series[0].Value
	for _, p := range series {
		if p.Date.After(cutoff) {
			start = p.Value
			break
		}
	}

	change := current - start
	var pct float64
	if start != 0 {
		pct = change / start * 100
	}
	return models.PriceChange{
		Change:        change,
		ChangePercent: roundTo(pct, 2),
	}
}
