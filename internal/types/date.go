package types

import "time"

// CalendarWindow is a half-open time window [Start, End).
type CalendarWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w CalendarWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// MonthWindowFor returns the calendar month containing t, in UTC.
// The end bound is the first instant of the next month (exclusive).
func MonthWindowFor(t time.Time) CalendarWindow {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return CalendarWindow{
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// DayWindowFor returns the calendar day containing t, in UTC.
func DayWindowFor(t time.Time) CalendarWindow {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return CalendarWindow{
		Start: start,
		End:   start.AddDate(0, 0, 1),
	}
}

// EndOfMonth returns the exclusive end bound of the calendar month
// containing t. Add-on credits expire at this instant regardless of when in
// the month they were purchased.
func EndOfMonth(t time.Time) time.Time {
	return MonthWindowFor(t).End
}
