// Package localtime converts UTC instants into Central European civil time.
//
// The daylight saving rule is fixed: CEST from the last Sunday of March at
// 02:00 UTC until the last Sunday of October at 03:00 UTC, CET otherwise.
// The last-Sunday days come from the closed form 31 - ((5*year/4 + k) % 7)
// with truncating integer division. It is kept as-is even for years where it
// disagrees with the real calendar, since displayed timestamps depend on it.
package localtime

import (
	"fmt"
	"time"
)

const (
	ZoneCET  = "CET"
	ZoneCEST = "CEST"

	offsetCET  = 1 * 60 * 60
	offsetCEST = 2 * 60 * 60
)

// LocalTime is a decomposed local civil time. Zone is always derived from
// the UTC fields through IsDST, never set on its own.
type LocalTime struct {
	Zone   string
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// TimeString returns the time of day as "HH:MM:SS".
func (t LocalTime) TimeString() string {
	return FormatTime(t.Hour, t.Minute, t.Second)
}

// DateString returns the date as "DD.MM.YYYY".
func (t LocalTime) DateString() string {
	return FormatDate(t.Day, t.Month, t.Year)
}

// DST reports whether the time is in summer time.
func (t LocalTime) DST() bool {
	return t.Zone == ZoneCEST
}

// LastSundayMarch returns the day of March on which summer time begins.
func LastSundayMarch(year int) int {
	return 31 - ((5*year/4 + 4) % 7)
}

// LastSundayOctober returns the day of October on which summer time ends.
func LastSundayOctober(year int) int {
	return 31 - ((5*year/4 + 1) % 7)
}

// IsDST reports whether the given UTC calendar hour falls in summer time.
func IsDST(year, month, day, hour int) bool {
	switch month {
	case 3:
		last := LastSundayMarch(year)
		switch {
		case day < last:
			return false
		case day > last:
			return true
		default:
			return hour >= 2
		}
	case 4, 5, 6, 7, 8, 9:
		return true
	case 10:
		last := LastSundayOctober(year)
		switch {
		case day < last:
			return true
		case day > last:
			return false
		default:
			return hour < 3
		}
	default:
		return false
	}
}

// ZoneLabel returns "CEST" or "CET" for the given UTC calendar hour.
func ZoneLabel(year, month, day, hour int) string {
	if IsDST(year, month, day, hour) {
		return ZoneCEST
	}
	return ZoneCET
}

// ToLocal converts UTC epoch seconds into local civil time.
func ToLocal(utcEpochSeconds int64) LocalTime {
	utc := time.Unix(utcEpochSeconds, 0).UTC()

	offset := int64(offsetCET)
	zone := ZoneLabel(utc.Year(), int(utc.Month()), utc.Day(), utc.Hour())
	if zone == ZoneCEST {
		offset = offsetCEST
	}

	local := time.Unix(utcEpochSeconds+offset, 0).UTC()

	return LocalTime{
		Year:   local.Year(),
		Month:  int(local.Month()),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
		Second: local.Second(),
		Zone:   zone,
	}
}

// FormatTime formats a time of day as zero-padded "HH:MM:SS".
func FormatTime(hour, minute, second int) string {
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second)
}

// FormatDate formats a date as "DD.MM.YYYY".
func FormatDate(day, month, year int) string {
	return fmt.Sprintf("%02d.%02d.%d", day, month, year)
}
