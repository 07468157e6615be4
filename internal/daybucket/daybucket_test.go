package daybucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedash/internal/core"
)

func mustUTC(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return v.UTC()
}

func TestDayRangeForKnownZones(t *testing.T) {
	cases := []struct {
		name    string
		tz      string
		instant string
		start   string
		end     string
	}{
		{
			name:    "el salvador fixed offset",
			tz:      "America/El_Salvador",
			instant: "2025-03-15T23:30:00Z",
			start:   "2025-03-15T06:00:00Z",
			end:     "2025-03-16T05:59:59.999Z",
		},
		{
			name:    "el salvador early utc instant",
			tz:      "America/El_Salvador",
			instant: "2025-03-16T05:00:00Z",
			start:   "2025-03-15T06:00:00Z",
			end:     "2025-03-16T05:59:59.999Z",
		},
		{
			name:    "utc",
			tz:      "UTC",
			instant: "2025-03-15T12:00:00Z",
			start:   "2025-03-15T00:00:00Z",
			end:     "2025-03-15T23:59:59.999Z",
		},
		{
			name:    "kathmandu quarter hour offset",
			tz:      "Asia/Kathmandu",
			instant: "2025-03-15T06:00:00Z",
			start:   "2025-03-14T18:15:00Z",
			end:     "2025-03-15T18:14:59.999Z",
		},
		{
			name:    "chatham daylight offset",
			tz:      "Pacific/Chatham",
			instant: "2025-01-15T00:00:00Z",
			start:   "2025-01-14T10:15:00Z",
			end:     "2025-01-15T10:14:59.999Z",
		},
		{
			name:    "new york spring forward",
			tz:      "America/New_York",
			instant: "2025-03-09T15:00:00Z",
			start:   "2025-03-09T05:00:00Z",
			end:     "2025-03-10T03:59:59.999Z",
		},
		{
			name:    "new york fall back",
			tz:      "America/New_York",
			instant: "2025-11-02T15:00:00Z",
			start:   "2025-11-02T04:00:00Z",
			end:     "2025-11-03T04:59:59.999Z",
		},
		{
			name:    "havana midnight gap",
			tz:      "America/Havana",
			instant: "2024-03-10T15:00:00Z",
			start:   "2024-03-10T05:00:00Z",
			end:     "2024-03-11T03:59:59.999Z",
		},
		{
			name:    "havana repeated midnight",
			tz:      "America/Havana",
			instant: "2024-11-03T15:00:00Z",
			start:   "2024-11-03T04:00:00Z",
			end:     "2024-11-04T04:59:59.999Z",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := DayRangeFor(mustUTC(t, tc.instant), tc.tz)
			require.NoError(t, err)
			assert.Equal(t, mustUTC(t, tc.start), r.Start)
			assert.Equal(t, mustUTC(t, tc.end), r.End)
			assert.True(t, r.End.After(r.Start))
			assert.Equal(t, time.UTC, r.Start.Location())
		})
	}
}

func TestDayRangeDSTLength(t *testing.T) {
	spring, err := RangeForDayKey(core.DayKey{Year: 2025, Month: time.March, Day: 9}, "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, 23*time.Hour-time.Millisecond, spring.Duration())

	fall, err := RangeForDayKey(core.DayKey{Year: 2025, Month: time.November, Day: 2}, "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, 25*time.Hour-time.Millisecond, fall.Duration())

	lordHowe, err := RangeForDayKey(core.DayKey{Year: 2025, Month: time.April, Day: 6}, "Australia/Lord_Howe")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour+30*time.Minute-time.Millisecond, lordHowe.Duration())
}

// Every day of a year, in zones with odd offsets and midnight transitions,
// must survive components -> midday -> range -> format.
func TestDayKeyRoundTrip(t *testing.T) {
	prevLocal := time.Local
	time.Local = time.FixedZone("server", 9*3600+1800)
	defer func() { time.Local = prevLocal }()

	zonesUnderTest := []string{
		"UTC",
		"America/El_Salvador",
		"America/Havana",
		"America/Santiago",
		"America/New_York",
		"America/St_Johns",
		"Europe/London",
		"Asia/Tehran",
		"Asia/Kathmandu",
		"Australia/Lord_Howe",
		"Pacific/Chatham",
		"Pacific/Kiritimati",
		"Pacific/Pago_Pago",
	}

	for _, tz := range zonesUnderTest {
		t.Run(tz, func(t *testing.T) {
			day := core.DayKey{Year: 2024, Month: time.January, Day: 1}
			for i := 0; i < 366; i++ {
				want := FormatDayKey(day)

				dk, err := DayKeyFromComponents(day.Year, day.Month, day.Day)
				require.NoError(t, err)
				noon, err := NormalizeToUserMidday(dk, tz)
				require.NoError(t, err)
				r, err := DayRangeFor(noon, tz)
				require.NoError(t, err)

				require.True(t, r.End.After(r.Start), "%s %s: end must follow start", tz, want)
				require.True(t, r.Contains(noon), "%s %s: noon outside range", tz, want)

				startKey, err := DayKeyIn(r.Start, tz)
				require.NoError(t, err)
				endKey, err := DayKeyIn(r.End, tz)
				require.NoError(t, err)
				require.Equal(t, want, FormatDayKey(startKey))
				require.Equal(t, want, FormatDayKey(endKey))

				prevKey, err := DayKeyIn(r.Start.Add(-time.Millisecond), tz)
				require.NoError(t, err)
				require.Equal(t, day.AddDays(-1), prevKey, "%s %s: start is not the first instant", tz, want)

				day = day.AddDays(1)
			}
		})
	}
}

func TestParseDayKeyIgnoresZones(t *testing.T) {
	dk, err := ParseDayKey("2025-03-15")
	require.NoError(t, err)
	assert.Equal(t, core.DayKey{Year: 2025, Month: time.March, Day: 15}, dk)
	assert.Equal(t, "2025-03-15", FormatDayKey(dk))

	_, err = ParseDayKey("2025-02-29")
	assert.ErrorIs(t, err, core.ErrInvalidDayKey)
}

func TestNormalizeToUserMidday(t *testing.T) {
	dk := core.DayKey{Year: 2025, Month: time.March, Day: 15}

	got, err := NormalizeToUserMidday(dk, "America/El_Salvador")
	require.NoError(t, err)
	assert.Equal(t, mustUTC(t, "2025-03-15T18:00:00Z"), got)

	got, err = NormalizeToUserMidday(dk, "Pacific/Kiritimati")
	require.NoError(t, err)
	assert.Equal(t, mustUTC(t, "2025-03-14T22:00:00Z"), got)

	_, err = NormalizeToUserMidday(core.DayKey{Year: 2025, Month: time.February, Day: 30}, "UTC")
	assert.ErrorIs(t, err, core.ErrInvalidDayKey)
}

func TestSkippedCalendarDay(t *testing.T) {
	// Samoa and Tokelau jumped the date line at the end of 2011.
	skipped := core.DayKey{Year: 2011, Month: time.December, Day: 30}

	for _, tz := range []string{"Pacific/Apia", "Pacific/Fakaofo"} {
		t.Run(tz, func(t *testing.T) {
			_, err := NormalizeToUserMidday(skipped, tz)
			assert.ErrorIs(t, err, core.ErrInvalidDayKey)

			_, err = RangeForDayKey(skipped, tz)
			assert.ErrorIs(t, err, core.ErrInvalidDayKey)

			for _, dk := range []core.DayKey{skipped.AddDays(-1), skipped.AddDays(1)} {
				noon, err := NormalizeToUserMidday(dk, tz)
				require.NoError(t, err)
				r, err := DayRangeFor(noon, tz)
				require.NoError(t, err)

				startKey, err := DayKeyIn(r.Start, tz)
				require.NoError(t, err)
				endKey, err := DayKeyIn(r.End, tz)
				require.NoError(t, err)
				assert.Equal(t, dk, startKey)
				assert.Equal(t, dk, endKey)
			}
		})
	}

	// The same date exists elsewhere.
	_, err := RangeForDayKey(skipped, "UTC")
	assert.NoError(t, err)
}

func TestInvalidTimezone(t *testing.T) {
	for _, tz := range []string{"", "Local", "Mars/Olympus_Mons", "../../etc/passwd", "   "} {
		t.Run(tz, func(t *testing.T) {
			_, err := DayRangeFor(time.Now(), tz)
			assert.ErrorIs(t, err, core.ErrInvalidTimezone)

			_, err = NormalizeToUserMidday(core.DayKey{Year: 2025, Month: 1, Day: 1}, tz)
			assert.ErrorIs(t, err, core.ErrInvalidTimezone)

			assert.ErrorIs(t, ValidateTimezone(tz), core.ErrInvalidTimezone)
		})
	}
}

func TestLoadZoneCaches(t *testing.T) {
	a, err := LoadZone("Europe/Rome")
	require.NoError(t, err)
	b, err := LoadZone("Europe/Rome")
	require.NoError(t, err)
	assert.Same(t, a, b)
}
