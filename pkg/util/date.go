package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, a bare date and unix seconds. The
// result is in UTC.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// FilterByDateRange keeps items dated strictly between from and to.
func FilterByDateRange[T any](items []T, from, to time.Time, dateOf func(T) time.Time) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		d := dateOf(it)
		if d.After(from) && d.Before(to) {
			out = append(out, it)
		}
	}
	return out
}

type Grouping string

const (
	GroupDay   Grouping = "day"
	GroupWeek  Grouping = "week"
	GroupMonth Grouping = "month"
)

// BucketKey formats t as the bucket label for g: 2006-01-02 for days,
// ISO year and week (2006-W01) for weeks, 2006-01 for months. Unknown
// groupings fall back to days.
func BucketKey(t time.Time, g Grouping) string {
	switch g {
	case GroupWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case GroupMonth:
		return t.Format("2006-01")
	default:
		return t.Format(time.DateOnly)
	}
}

// GroupByPeriod buckets items by BucketKey of their date. Items keep their
// input order inside each bucket.
func GroupByPeriod[T any](items []T, g Grouping, dateOf func(T) time.Time) map[string][]T {
	out := make(map[string][]T)
	for _, it := range items {
		k := BucketKey(dateOf(it), g)
		out[k] = append(out[k], it)
	}
	return out
}
