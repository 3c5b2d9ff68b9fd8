package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2024-10-10")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseTime("2024-10-10T12:00:00+02:00")
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 10, got.Hour())

	_, ok = ParseTime("yesterday")
	assert.False(t, ok)
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC)
}

func TestFilterByDateRangeIsExclusive(t *testing.T) {
	dates := []time.Time{day(1), day(2), day(3), day(4)}
	got := FilterByDateRange(dates, day(1), day(4), func(t time.Time) time.Time { return t })
	assert.Equal(t, []time.Time{day(2), day(3)}, got)
}

func TestGroupByPeriod(t *testing.T) {
	dates := []time.Time{day(1), day(1).Add(time.Hour), day(8), day(31)}
	id := func(t time.Time) time.Time { return t }

	byDay := GroupByPeriod(dates, GroupDay, id)
	assert.Len(t, byDay["2024-01-01"], 2)
	assert.Len(t, byDay, 3)

	byWeek := GroupByPeriod(dates, GroupWeek, id)
	assert.Len(t, byWeek["2024-W01"], 2)
	assert.Len(t, byWeek["2024-W02"], 1)
	assert.Len(t, byWeek["2024-W05"], 1)

	byMonth := GroupByPeriod(dates, GroupMonth, id)
	assert.Equal(t, map[string]int{"2024-01": 4}, map[string]int{"2024-01": len(byMonth["2024-01"])})
	assert.Len(t, byMonth, 1)
}
