package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"RapWatch/internal/domain/models"
)

// roundTo rounds half away from zero to the given number of decimal places.
func roundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func ptr(v float64) *float64 { return &v }

func priceValues(series []models.PricePoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Value
	}
	return out
}

// meanStdDev returns the arithmetic mean and the population standard deviation.
func meanStdDev(xs []float64) (mean, stdDev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	n := float64(len(xs))
	for _, x := range xs {
		mean += x
	}
	mean /= n
	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / n)
}

// tail returns the last n elements of series (all of them when shorter).
func tail(series []models.PricePoint, n int) []models.PricePoint {
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}
