package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePeriod(t *testing.T) {
	assert.Equal(t, Period7d, NormalizePeriod("7d"))
	assert.Equal(t, PeriodAll, NormalizePeriod(""))
	assert.Equal(t, PeriodAll, NormalizePeriod("2w"))
}

func TestPeriodRange(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	from, to := Period24h.Range(now)
	assert.Equal(t, now.Add(-24*time.Hour), from)
	assert.Equal(t, now, to)

	from, _ = Period1y.Range(now)
	assert.Equal(t, time.Date(2023, 6, 16, 12, 0, 0, 0, time.UTC), from)

	from, _ = PeriodAll.Range(now)
	assert.Equal(t, 2000, from.Year())
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "Last 30 Days", Period30d.Label())
	assert.Equal(t, "All Time", PeriodAll.Label())
	assert.Equal(t, "Custom Range", Period("fortnight").Label())
}
