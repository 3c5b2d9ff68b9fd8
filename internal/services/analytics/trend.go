package analytics

import (
	"RapWatch/internal/domain/models"
)

const (
	trendWindow    = 7
	trendThreshold = 5.0

	highDemandVolume   = 10.0
	mediumDemandVolume = 5.0
)

// DetectTrend labels the move across the last seven points (or fewer).
// A change must exceed 5% either way to count as Rising or Falling.
func DetectTrend(series []models.PricePoint) models.Trend {
	if len(series) < 2 {
		return models.TrendStable
	}

	recent := tail(series, trendWindow)
	first := recent[0].Value
	last := recent[len(recent)-1].Value

	if first == 0 {
		// no base to measure against; any positive price is growth
		if last > 0 {
			return models.TrendRising
		}
		return models.TrendStable
	}

	change := (last - first) / first * 100
	switch {
	case change > trendThreshold:
		return models.TrendRising
	case change < -trendThreshold:
		return models.TrendFalling
	default:
		return models.TrendStable
	}
}

// CalculateDemandLevel maps an average daily trade count to a demand tier.
func CalculateDemandLevel(avgDailyVolume float64) models.DemandLevel {
	switch {
	case avgDailyVolume >= highDemandVolume:
		return models.DemandHigh
	case avgDailyVolume >= mediumDemandVolume:
		return models.DemandMedium
	default:
		return models.DemandLow
	}
}

// CalculateVolatility returns the population standard deviation of prices as
// a percentage of their mean, to two decimals. Fewer than two points, or a
// zero mean, yield 0.
func CalculateVolatility(series []models.PricePoint) float64 {
	if len(series) < 2 {
		return 0
	}
	mean, std := meanStdDev(priceValues(series))
	if mean == 0 {
		return 0
	}
	return roundTo(std/mean*100, 2)
}

// CalculateRSI computes a simple relative strength index over the last period
// price changes. Gains and losses are averaged over period, not over the
// number of moves in each direction. Too little data yields a neutral 50.
func CalculateRSI(series []models.PricePoint, period int) float64 {
	if period <= 0 || len(series) < period+1 {
		return 50
	}

	recent := tail(series, period+1)
	var gains, losses float64
	for i := 1; i < len(recent); i++ {
		d := recent[i].Value - recent[i-1].Value
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	gains /= float64(period)
	losses /= float64(period)

	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return roundTo(100-100/(1+rs), 2)
}
