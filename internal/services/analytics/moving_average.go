package analytics

import (
	"RapWatch/internal/domain/models"
)

// CalculateMovingAverage returns the trailing simple moving average of series.
// Point i of the result averages the period values ending at input index
// i+period-1 and carries that index's date. Values are rounded to whole units.
// The result has max(0, len(series)-period+1) points.
func CalculateMovingAverage(series []models.PricePoint, period int) []models.PricePoint {
	if period <= 0 || len(series) < period {
		return []models.PricePoint{}
	}

	out := make([]models.PricePoint, 0, len(series)-period+1)
	var window float64
	for i, p := range series {
		window += p.Value
		if i >= period {
			window -= series[i-period].Value
		}
		if i >= period-1 {
			out = append(out, models.PricePoint{
				Value: roundTo(window/float64(period), 0),
				Date:  p.Date,
			})
		}
	}
	return out
}

// CalculateEMA returns the final exponential moving average of series,
// rounded to whole units. The first period values seed it with their simple
// average and every later value is folded in with k = 2/(period+1).
// ok is false iff len(series) < period.
func CalculateEMA(series []models.PricePoint, period int) (ema float64, ok bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}

	k := 2 / float64(period+1)
	for _, p := range series[:period] {
		ema += p.Value
	}
	ema /= float64(period)

	for _, p := range series[period:] {
		ema = p.Value*k + ema*(1-k)
	}
	return roundTo(ema, 0), true
}

// PredictPriceMA uses the mean of the last period values as the next price.
func PredictPriceMA(series []models.PricePoint, period int) (float64, bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}
	var sum float64
	for _, p := range tail(series, period) {
		sum += p.Value
	}
	return roundTo(sum/float64(period), 0), true
}
