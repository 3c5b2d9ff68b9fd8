package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"RapWatch/internal/domain/models"
)

func TestDetectTrend(t *testing.T) {
	tests := []struct {
		name   string
		series []models.PricePoint
		want   models.Trend
	}{
		{"empty", nil, models.TrendStable},
		{"single", daily(100), models.TrendStable},
		{"scenario", scenario(), models.TrendRising},
		{"exactly five percent", daily(100, 101, 102, 103, 103, 104, 105), models.TrendStable},
		{"just above five percent", daily(100, 101, 102, 103, 103, 104, 105.1), models.TrendRising},
		{"falling", daily(100, 90), models.TrendFalling},
		{"only last seven count", daily(10, 100, 100, 100, 100, 100, 100, 101), models.TrendStable},
		{"zero base rising", daily(0, 5), models.TrendRising},
		{"zero base flat", daily(0, 0), models.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectTrend(tt.series))
		})
	}
}

func TestCalculateDemandLevel(t *testing.T) {
	assert.Equal(t, models.DemandHigh, CalculateDemandLevel(10))
	assert.Equal(t, models.DemandMedium, CalculateDemandLevel(9.9))
	assert.Equal(t, models.DemandMedium, CalculateDemandLevel(5))
	assert.Equal(t, models.DemandLow, CalculateDemandLevel(4.9))
	assert.Equal(t, models.DemandLow, CalculateDemandLevel(0))
}

func TestCalculateVolatility(t *testing.T) {
	assert.Zero(t, CalculateVolatility(daily(100)))
	assert.Zero(t, CalculateVolatility(daily(0, 0, 0)))
	assert.Zero(t, CalculateVolatility(daily(50, 50, 50)))
	assert.Equal(t, 3.06, CalculateVolatility(scenario()))
	assert.Equal(t, 50.0, CalculateVolatility(daily(50, 150)))
}

func TestCalculateRSI(t *testing.T) {
	t.Run("too short is neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, CalculateRSI(scenario(), 14))
	})

	t.Run("only gains", func(t *testing.T) {
		assert.Equal(t, 100.0, CalculateRSI(daily(1, 2, 3, 4), 3))
	})

	t.Run("mixed moves", func(t *testing.T) {
		series := daily(100, 102, 104, 103, 105, 108, 110, 107, 111, 115, 118, 116)
		assert.Equal(t, 68.75, CalculateRSI(series, 5))
	})

	t.Run("only losses", func(t *testing.T) {
		assert.Equal(t, 0.0, CalculateRSI(daily(4, 3, 2, 1), 3))
	})
}
