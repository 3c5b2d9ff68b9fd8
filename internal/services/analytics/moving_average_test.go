package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMovingAverage(t *testing.T) {
	series := scenario()

	t.Run("length law", func(t *testing.T) {
		for period := 1; period <= len(series)+2; period++ {
			want := len(series) - period + 1
			if want < 0 {
				want = 0
			}
			assert.Len(t, CalculateMovingAverage(series, period), want, "period %d", period)
		}
	})

	t.Run("values and dates", func(t *testing.T) {
		got := CalculateMovingAverage(series, 3)
		require.Len(t, got, 5)
		assert.Equal(t, []float64{102, 103, 104, 105, 108}, priceValues(got))
		assert.Equal(t, series[2].Date, got[0].Date)
		assert.Equal(t, series[6].Date, got[4].Date)
	})

	t.Run("full window", func(t *testing.T) {
		got := CalculateMovingAverage(series, 7)
		require.Len(t, got, 1)
		assert.Equal(t, 105.0, got[0].Value)
	})

	t.Run("invalid period", func(t *testing.T) {
		assert.Empty(t, CalculateMovingAverage(series, 0))
	})
}

func TestCalculateEMA(t *testing.T) {
	t.Run("unavailable when too short", func(t *testing.T) {
		_, ok := CalculateEMA(scenario(), 10)
		assert.False(t, ok)
	})

	t.Run("seed only", func(t *testing.T) {
		v, ok := CalculateEMA(scenario(), 7)
		require.True(t, ok)
		assert.Equal(t, 105.0, v)
	})

	t.Run("folds remaining values", func(t *testing.T) {
		series := daily(100, 102, 104, 103, 105, 108, 110, 107, 111, 115, 118, 116)
		v, ok := CalculateEMA(series, 10)
		require.True(t, ok)
		assert.Equal(t, 110.0, v)
	})
}

func TestPredictPriceMA(t *testing.T) {
	v, ok := PredictPriceMA(daily(1, 100, 102, 104, 103, 105, 108, 110), 7)
	require.True(t, ok)
	assert.Equal(t, 105.0, v)

	_, ok = PredictPriceMA(daily(1, 2), 7)
	assert.False(t, ok)
}
