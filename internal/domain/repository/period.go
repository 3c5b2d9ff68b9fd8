package repository

import "time"

// Period is a named look-back window over an item's history.
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
	Period1y  Period = "1y"
	PeriodAll Period = "all"
)

// allTimeStart bounds the "all" period; no tracked item traded before it.
var allTimeStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func IsValidPeriod(p Period) bool {
	switch p {
	case Period24h, Period7d, Period30d, Period90d, Period1y, PeriodAll:
		return true
	default:
		return false
	}
}

func DefaultPeriod() Period { return PeriodAll }

// NormalizePeriod converts a raw string to a valid period, or the default.
func NormalizePeriod(s string) Period {
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}

// Range returns the [from, to] window ending at now.
func (p Period) Range(now time.Time) (from, to time.Time) {
	switch p {
	case Period24h:
		return now.Add(-24 * time.Hour), now
	case Period7d:
		return now.AddDate(0, 0, -7), now
	case Period30d:
		return now.AddDate(0, 0, -30), now
	case Period90d:
		return now.AddDate(0, 0, -90), now
	case Period1y:
		return now.AddDate(0, 0, -365), now
	default:
		return allTimeStart, now
	}
}

func (p Period) Label() string {
	switch p {
	case Period24h:
		return "Last 24 Hours"
	case Period7d:
		return "Last 7 Days"
	case Period30d:
		return "Last 30 Days"
	case Period90d:
		return "Last 90 Days"
	case Period1y:
		return "Last Year"
	case PeriodAll:
		return "All Time"
	default:
		return "Custom Range"
	}
}
