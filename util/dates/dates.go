// Package dates normalizes calendar-date handling. Borrow/return dates are
// whole days in UTC; fee math must never see a partial day.
package dates

import "time"

func Truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Today() time.Time { return Truncate(time.Now()) }

// DaysBetween returns the whole-day difference latest - earliest.
func DaysBetween(earliest, latest time.Time) int64 {
	return int64(Truncate(latest).Sub(Truncate(earliest)) / (24 * time.Hour))
}
