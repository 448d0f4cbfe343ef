// Package marketclock pins every calendar computation (today, days to
// expiration, the regular trading session) to US exchange local time.
package marketclock

import (
	"time"
	_ "time/tzdata"
)

// Location is the exchange time zone.
var Location = mustLoad("America/New_York")

// Regular session bounds in exchange local time. The close carries a five
// minute grace period for late prints.
const (
	sessionOpenMinutes  = 9*60 + 30
	sessionCloseMinutes = 16*60 + 5
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// Clock abstracts the wall clock so scans can be replayed in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// Date truncates t to its calendar date in t's own location and returns it
// as midnight UTC, so dates from different zones compare by value.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current exchange calendar date.
func Today(now time.Time) time.Time {
	return Date(now.In(Location))
}

// ParseDate parses a YYYY-MM-DD date, tolerating a trailing time component.
func ParseDate(s string) (time.Time, error) {
	if len(s) > 10 {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return Date(t.In(Location)), nil
		}
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DaysBetween counts whole calendar days from one date to another. The
// result is negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}

// DTE returns calendar days from the exchange date of now to expiration.
func DTE(expiration, now time.Time) int {
	return DaysBetween(Today(now), Date(expiration))
}

// InSession reports whether now falls inside the regular weekday session.
func InSession(now time.Time) bool {
	local := now.In(Location)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= sessionOpenMinutes && minutes < sessionCloseMinutes
}
