package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthWindowForIsHalfOpen(t *testing.T) {
	at := time.Date(2025, time.March, 12, 15, 4, 5, 0, time.UTC)
	w := MonthWindowFor(at)

	assert.True(t, w.Start.Equal(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.End.Equal(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(at))
	assert.True(t, w.Contains(w.End.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}

func TestMonthWindowForDecemberRollsIntoNextYear(t *testing.T) {
	w := MonthWindowFor(time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC))
	assert.True(t, w.End.Equal(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMonthWindowForLeapFebruary(t *testing.T) {
	w := MonthWindowFor(time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC))
	assert.True(t, w.Start.Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.End.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMonthWindowForNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:00 on March 1st UTC+5 is still February 28th in UTC.
	at := time.Date(2025, time.March, 1, 2, 0, 0, 0, loc)
	w := MonthWindowFor(at)
	assert.True(t, w.Start.Equal(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDayWindowFor(t *testing.T) {
	at := time.Date(2025, time.March, 12, 15, 4, 5, 0, time.UTC)
	w := DayWindowFor(at)

	assert.True(t, w.Start.Equal(time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.End.Equal(time.Date(2025, time.March, 13, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(at))
	assert.False(t, w.Contains(w.End))
}

func TestEndOfMonth(t *testing.T) {
	cases := []struct {
		at  time.Time
		end time.Time
	}{
		{time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC), time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC), time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		assert.True(t, EndOfMonth(tc.at).Equal(tc.end), "at %s", tc.at)
	}
}
