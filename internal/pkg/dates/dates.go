// internal/pkg/dates/dates.go
package dates

import "time"

// DateOnly truncates a timestamp to local midnight, the civil-date granularity
// used for settlement keys, batch dates and transfer dates.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// NextDay returns the local midnight following the given date
func NextDay(t time.Time) time.Time {
	return DateOnly(t).AddDate(0, 0, 1)
}

// PrevDay returns the local midnight preceding the given date
func PrevDay(t time.Time) time.Time {
	return DateOnly(t).AddDate(0, 0, -1)
}

// DayRange returns the half-open interval [midnight, next midnight) containing t
func DayRange(t time.Time) (time.Time, time.Time) {
	start := DateOnly(t)
	return start, start.AddDate(0, 0, 1)
}

// SameDay reports whether two timestamps fall on the same civil date
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}
