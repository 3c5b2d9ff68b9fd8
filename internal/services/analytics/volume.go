package analytics

import (
	"time"

	"RapWatch/internal/domain/models"
)

// CalculateVolumeStats sums a daily trade-count series overall and over the
// trailing 1, 7 and 30 days before now. The trailing windows overlap and are
// each measured from now.
func CalculateVolumeStats(series []models.VolumePoint, now time.Time) models.VolumeStats {
	if len(series) == 0 {
		return models.VolumeStats{}
	}

	day := now.AddDate(0, 0, -1)
	week := now.AddDate(0, 0, -7)
	month := now.AddDate(0, 0, -30)

	var out models.VolumeStats
	for _, p := range series {
		out.Total += p.Value
		if p.Date.After(day) {
			out.Last24h += p.Value
		}
		if p.Date.After(week) {
			out.Last7d += p.Value
		}
		if p.Date.After(month) {
			out.Last30d += p.Value
		}
	}
	out.Average = roundTo(float64(out.Total)/float64(len(series)), 1)
	return out
}
