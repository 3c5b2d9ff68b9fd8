package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"RapWatch/internal/domain/models"
)

func TestCalculateVolumeStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, models.VolumeStats{}, CalculateVolumeStats(nil, testNow))
	})

	t.Run("windows", func(t *testing.T) {
		series := []models.VolumePoint{
			{Value: 4, Date: testNow.AddDate(0, 0, -40)},
			{Value: 3, Date: testNow.AddDate(0, 0, -20)},
			{Value: 2, Date: testNow.AddDate(0, 0, -5)},
			{Value: 1, Date: testNow.Add(-2 * time.Hour)},
		}
		got := CalculateVolumeStats(series, testNow)
		assert.Equal(t, models.VolumeStats{
			Total:   10,
			Average: 2.5,
			Last24h: 1,
			Last7d:  3,
			Last30d: 6,
		}, got)
	})

	t.Run("average keeps one decimal", func(t *testing.T) {
		series := []models.VolumePoint{
			{Value: 1, Date: testNow},
			{Value: 1, Date: testNow},
			{Value: 2, Date: testNow},
		}
		assert.Equal(t, 1.3, CalculateVolumeStats(series, testNow).Average)
	})

	t.Run("boundary excluded", func(t *testing.T) {
		series := []models.VolumePoint{{Value: 5, Date: testNow.AddDate(0, 0, -7)}}
		got := CalculateVolumeStats(series, testNow)
		assert.Zero(t, got.Last7d)
		assert.Equal(t, int64(5), got.Last30d)
	})
}
