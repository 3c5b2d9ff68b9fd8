package analytics

import (
	"time"

	"RapWatch/internal/domain/models"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// daily builds an ascending series with one point per day ending at testNow.
func daily(values ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(values))
	start := testNow.AddDate(0, 0, -(len(values) - 1))
	for i, v := range values {
		out[i] = models.PricePoint{Value: v, Date: start.AddDate(0, 0, i)}
	}
	return out
}

// scenario is a week of steadily climbing sales.
func scenario() []models.PricePoint {
	return daily(100, 102, 104, 103, 105, 108, 110)
}
