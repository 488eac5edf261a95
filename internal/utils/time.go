package utils

import (
	"time"
)

func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// IsPastDate reports whether date falls on a day strictly before today in
// the given timezone. The comparison is date-only: a departure later today
// is not "past", whatever the clock says.
func IsPastDate(date time.Time, timezone string) bool {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	today := StartOfDay(time.Now().In(loc))
	day := StartOfDay(date.In(loc))

	return day.Before(today)
}

func FormatTimeISO(t time.Time) string {
	return t.Format(time.RFC3339)
}

func ParseTimeISO(timeStr string) (time.Time, error) {
	return time.Parse(time.RFC3339, timeStr)
}

// ParseDateOnly parses a YYYY-MM-DD date in the given timezone.
func ParseDateOnly(dateStr, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02", dateStr, loc)
}
