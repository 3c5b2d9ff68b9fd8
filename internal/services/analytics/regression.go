package analytics

import (
	"math"
	"time"

	"RapWatch/internal/domain/models"
)

const minRegressionPoints = 3

// linearFit is an ordinary least-squares line over the series position.
//
// The x axis is the 0-based index, not the timestamp: points are treated as
// evenly spaced daily samples. Irregular gaps between sales skew the slope.
type linearFit struct {
	slope     float64
	intercept float64
}

func fitLinear(series []models.PricePoint) linearFit {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumX2 float64
	for i, p := range series {
		x := float64(i)
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumX2 += x * x
	}

	slope := (n*sumXY - sumX*sumY) / (n*sumX2 - sumX*sumX)
	return linearFit{
		slope:     slope,
		intercept: (sumY - slope*sumX) / n,
	}
}

// at evaluates the fit at index, floored at zero and rounded to whole units.
func (f linearFit) at(index int) float64 {
	return roundTo(math.Max(0, f.slope*float64(index)+f.intercept), 0)
}

// PredictPriceLinear extrapolates the regression line daysAhead positions
// past the last point. ok is false with fewer than three points.
func PredictPriceLinear(series []models.PricePoint, daysAhead int) (float64, bool) {
	if len(series) < minRegressionPoints {
		return 0, false
	}
	return fitLinear(series).at(len(series) + daysAhead - 1), true
}

// GeneratePriceProjection returns one projected point per day for the next
// days days, dated now+1d … now+days. Fewer than three points yield an empty
// projection.
func GeneratePriceProjection(series []models.PricePoint, days int, now time.Time) []models.ProjectionPoint {
	if len(series) < minRegressionPoints || days <= 0 {
		return []models.ProjectionPoint{}
	}

	fit := fitLinear(series)
	n := len(series)
	out := make([]models.ProjectionPoint, 0, days)
	for i := 1; i <= days; i++ {
		out = append(out, models.ProjectionPoint{
			Date:        now.AddDate(0, 0, i),
			Value:       fit.at(n + i - 1),
			IsProjected: true,
		})
	}
	return out
}
