package services

import (
	"context"
	"fmt"
	"time"

	"lifedash/internal/core"
)

// Clock abstracts time.Now so that "today" can be pinned in tests.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// EntryPublisher receives every successfully stored habit entry.
type EntryPublisher interface {
	PublishEntryLogged(ctx context.Context, entry core.HabitEntry, habitName string) error
}

// WeekWindowDays is the length of the trailing completion window, the
// requested day included.
const WeekWindowDays = 7

type entryKey struct {
	habitID string
	day     core.DayKey
}

// indexEntries keys entries by (habit, day). A second row for the same key
// means the store's uniqueness guarantee is broken, so it is reported
// instead of being resolved.
func indexEntries(entries []core.HabitEntry) (map[entryKey]core.HabitEntry, error) {
	index := make(map[entryKey]core.HabitEntry, len(entries))
	for _, e := range entries {
		k := entryKey{habitID: e.HabitID, day: e.Day}
		if prev, dup := index[k]; dup {
			return nil, fmt.Errorf("%w: habit %s on %s (entries %s, %s)",
				core.ErrMultipleEntriesForDay, e.HabitID, e.Day, prev.ID, e.ID)
		}
		index[k] = e
	}
	return index, nil
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
