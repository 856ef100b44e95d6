// Package zone resolves slot instants to and from wall-clock time in the
// appointment's zone. Pure functions, no state.
package zone

import "time"

// DisplayStyle selects how much of the instant to render.
type DisplayStyle int

const (
	// StyleShort renders weekday plus time, for chips.
	StyleShort DisplayStyle = iota
	// StyleFull renders weekday, date and time, for confirmations.
	StyleFull
)

const dayFormat = "2006-01-02"

// Sanitize returns the first candidate that names a real IANA zone,
// falling back to UTC. Callers sanitize once at the top of a flow;
// an unrecognized identifier is treated as absent, never an error.
func Sanitize(candidates ...string) *time.Location {
	for _, id := range candidates {
		if id == "" {
			continue
		}
		if loc, err := time.LoadLocation(id); err == nil {
			return loc
		}
	}
	return time.UTC
}

// WallTimeToInstant converts a wall-clock tuple in loc to an absolute
// instant. Ambiguous or skipped wall times across a DST boundary resolve
// the way the zone database resolves them.
func WallTimeToInstant(year int, month time.Month, day, hour, min int, loc *time.Location) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

// CalendarDayOf returns the calendar day ("2006-01-02") the instant
// falls on in loc. A raw UTC midpoint is never used directly.
func CalendarDayOf(instant time.Time, loc *time.Location) string {
	return instant.In(loc).Format(dayFormat)
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) string {
	return CalendarDayOf(now, loc)
}

// AddDays shifts a calendar day by n days. The arithmetic is anchored at
// noon so midnight-adjacent DST edges cannot move the result a day.
func AddDays(date string, n int, loc *time.Location) (string, error) {
	d, err := time.ParseInLocation(dayFormat, date, loc)
	if err != nil {
		return "", err
	}
	noon := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc)
	return noon.AddDate(0, 0, n).Format(dayFormat), nil
}

// DisplayString formats the instant for the viewer in loc.
func DisplayString(instant time.Time, loc *time.Location, style DisplayStyle) string {
	local := instant.In(loc)
	switch style {
	case StyleFull:
		return local.Format("Monday, January 2 at 3:04 PM")
	default:
		return local.Format("Mon 3:04 PM")
	}
}

// HourOfDay returns the 0..23 hour of the instant in loc. Used only to
// bucket a slot into a time-of-day period.
func HourOfDay(instant time.Time, loc *time.Location) int {
	return instant.In(loc).Hour()
}
