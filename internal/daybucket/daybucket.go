// Package daybucket converts between instants, calendar days and the UTC
// ranges that bound a calendar day in a user's timezone.
//
// Every function takes the IANA zone name explicitly. There is no default
// zone and no fallback: an unknown zone fails with core.ErrInvalidTimezone,
// because a silent fallback writes records under the wrong day.
package daybucket

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"lifedash/internal/cache"
	"lifedash/internal/core"
)

var zones = cache.NewLRUCache[*time.Location](512, 0)

// LoadZone resolves an IANA zone name. Empty names and "Local" are rejected
// since they mean "whatever the server runs in".
func LoadZone(tz string) (*time.Location, error) {
	name := strings.TrimSpace(tz)
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidTimezone, tz)
	}
	return zones.GetOrLoad(name, func() (*time.Location, error) {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidTimezone, tz)
		}
		return loc, nil
	})
}

// ValidateTimezone reports whether tz names a loadable IANA zone.
func ValidateTimezone(tz string) error {
	_, err := LoadZone(tz)
	return err
}

// DayRangeFor returns the UTC bounds of the calendar day that instant falls
// on when viewed in tz. On DST transition days the range spans 23 or 25
// hours of elapsed time.
func DayRangeFor(instant time.Time, tz string) (core.DayRange, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return core.DayRange{}, err
	}
	return rangeIn(core.DayKeyOf(instant.In(loc)), loc), nil
}

// RangeForDayKey returns the UTC bounds of dk in tz. A date the zone
// skipped entirely fails with core.ErrInvalidDayKey.
func RangeForDayKey(dk core.DayKey, tz string) (core.DayRange, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return core.DayRange{}, err
	}
	if err := checkDayExists(dk, loc); err != nil {
		return core.DayRange{}, err
	}
	return rangeIn(dk, loc), nil
}

// DayKeyFromComponents builds a DayKey from explicit calendar fields.
func DayKeyFromComponents(year int, month time.Month, day int) (core.DayKey, error) {
	return core.NewDayKey(year, month, day)
}

// ParseDayKey parses a "YYYY-MM-DD" string. The digits are taken as is.
func ParseDayKey(s string) (core.DayKey, error) {
	return core.ParseDayKey(strings.TrimSpace(s))
}

// FormatDayKey renders dk as "YYYY-MM-DD" from its own fields.
func FormatDayKey(dk core.DayKey) string {
	return dk.String()
}

// NormalizeToUserMidday returns local noon of dk in tz, as UTC. Noon stays on
// the same calendar day under any offset error of less than 12 hours. In
// zones ahead of UTC+12 the UTC date of the result is the previous day; use
// .In(loc) to read the calendar day back.
func NormalizeToUserMidday(dk core.DayKey, tz string) (time.Time, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return time.Time{}, err
	}
	if err := checkDayExists(dk, loc); err != nil {
		return time.Time{}, err
	}
	return time.Date(dk.Year, dk.Month, dk.Day, 12, 0, 0, 0, loc).UTC(), nil
}

// checkDayExists rejects invalid keys and dates a zone skipped entirely,
// such as 2011-12-30 in Pacific/Apia. time.Date normalizes those onto the
// following day.
func checkDayExists(dk core.DayKey, loc *time.Location) error {
	if !dk.Valid() {
		return fmt.Errorf("%w: %s", core.ErrInvalidDayKey, dk)
	}
	noon := time.Date(dk.Year, dk.Month, dk.Day, 12, 0, 0, 0, loc)
	if core.DayKeyOf(noon) != dk {
		return fmt.Errorf("%w: %s does not exist in %s", core.ErrInvalidDayKey, dk, loc)
	}
	return nil
}

// DayKeyIn returns the calendar day of instant as seen in tz.
func DayKeyIn(instant time.Time, tz string) (core.DayKey, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return core.DayKey{}, err
	}
	return core.DayKeyOf(instant.In(loc)), nil
}

func rangeIn(dk core.DayKey, loc *time.Location) core.DayRange {
	start := startOfDay(dk, loc)
	next := startOfDay(dk.AddDays(1), loc)
	return core.DayRange{
		Start: start.UTC(),
		End:   next.Add(-time.Millisecond).UTC(),
	}
}

// startOfDay returns the first instant of dk in loc.
func startOfDay(dk core.DayKey, loc *time.Location) time.Time {
	t := time.Date(dk.Year, dk.Month, dk.Day, 0, 0, 0, 0, loc)

	// Midnight skipped by a spring-forward: time.Date may land before the
	// gap, on the previous day. The day then begins where the gap ends.
	if core.DayKeyOf(t) != dk {
		if _, end := t.ZoneBounds(); !end.IsZero() {
			t = end
		}
		return t
	}

	// Midnight repeated by a fall-back: prefer the earlier occurrence.
	start, _ := t.ZoneBounds()
	if start.IsZero() {
		return t
	}
	_, prevOffset := start.Add(-time.Nanosecond).Zone()
	wall := time.Date(dk.Year, dk.Month, dk.Day, 0, 0, 0, 0, time.UTC)
	earlier := wall.Add(-time.Duration(prevOffset) * time.Second)
	if earlier.Before(start) {
		local := earlier.In(loc)
		if core.DayKeyOf(local) == dk && local.Hour() == 0 && local.Minute() == 0 {
			return local
		}
	}
	return t
}
