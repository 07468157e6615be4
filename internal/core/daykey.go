package core

import (
	"fmt"
	"strconv"
	"time"
)

// DateFormat is the textual form of a DayKey.
const DateFormat = "2006-01-02"

type (
	// DayKey identifies a calendar date as seen by the user, independent of any zone.
	DayKey struct {
		Year  int
		Month time.Month
		Day   int
	}

	// DayRange holds the UTC instants bounding one DayKey in one timezone.
	// End is the last millisecond of the day.
	DayRange struct {
		Start time.Time
		End   time.Time
	}
)

// NewDayKey validates the calendar fields and returns the DayKey.
func NewDayKey(year int, month time.Month, day int) (DayKey, error) {
	dk := DayKey{Year: year, Month: month, Day: day}
	if !dk.Valid() {
		return DayKey{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDayKey, year, int(month), day)
	}
	return dk, nil
}

// ParseDayKey parses "YYYY-MM-DD" from its digits. It never goes through an
// instant, so the result does not depend on any timezone.
func ParseDayKey(s string) (DayKey, error) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return DayKey{}, fmt.Errorf("%w: %q", ErrInvalidDayKey, s)
	}
	year, err1 := atoiDigits(s[0:4])
	month, err2 := atoiDigits(s[5:7])
	day, err3 := atoiDigits(s[8:10])
	if err1 != nil || err2 != nil || err3 != nil {
		return DayKey{}, fmt.Errorf("%w: %q", ErrInvalidDayKey, s)
	}
	return NewDayKey(year, time.Month(month), day)
}

func atoiDigits(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// DayKeyOf returns the calendar fields of t in t's own location.
func DayKeyOf(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// DaysIn returns the number of days of the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d DayKey) Valid() bool {
	if d.Year < 1 || d.Year > 9999 {
		return false
	}
	if d.Month < time.January || d.Month > time.December {
		return false
	}
	return d.Day >= 1 && d.Day <= DaysIn(d.Year, d.Month)
}

func (d DayKey) IsZero() bool {
	return d == DayKey{}
}

func (d DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays moves the key by n calendar days.
func (d DayKey) AddDays(n int) DayKey {
	return DayKeyOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Compare returns -1, 0 or +1.
func (d DayKey) Compare(o DayKey) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (d DayKey) Before(o DayKey) bool { return d.Compare(o) < 0 }
func (d DayKey) After(o DayKey) bool  { return d.Compare(o) > 0 }

func (d DayKey) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DayKey) UnmarshalText(b []byte) error {
	dk, err := ParseDayKey(string(b))
	if err != nil {
		return err
	}
	*d = dk
	return nil
}

// Contains reports whether t lies within the range, bounds included.
func (r DayRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Duration is the elapsed time covered by the range. It is 24h minus 1ms
// except on days with a DST transition.
func (r DayRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}
