package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"lifedash/internal/core"
	"lifedash/internal/daybucket"
	"lifedash/internal/metrics"
	"lifedash/internal/storage"
)

// CalendarService builds the month view of habit completion.
type CalendarService struct {
	habits  storage.HabitStore
	entries storage.EntryStore
}

func NewCalendarService(habits storage.HabitStore, entries storage.EntryStore) *CalendarService {
	return &CalendarService{habits: habits, entries: entries}
}

// GetMonthlyData returns one row per day of the month, in order. Dates the
// zone skipped have no row. Entries for the whole month come from a single
// range query.
func (s *CalendarService) GetMonthlyData(ctx context.Context, userID string, year int, month time.Month, tz string) (days []core.MonthlyHabitDay, err error) {
	defer metrics.ObserveAggregation("monthly_calendar", time.Now(), &err)

	if month < time.January || month > time.December || year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: %04d-%02d", core.ErrInvalidMonth, year, int(month))
	}
	if err := daybucket.ValidateTimezone(tz); err != nil {
		return nil, err
	}

	first := core.DayKey{Year: year, Month: month, Day: 1}
	last := core.DayKey{Year: year, Month: month, Day: core.DaysIn(year, month)}

	var (
		habits  []core.Habit
		entries []core.HabitEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		habits, err = s.habits.ListActiveHabits(gctx, userID)
		if err != nil {
			return fmt.Errorf("list active habits: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		entries, err = s.entries.FindHabitEntries(gctx, userID, nil, first, last)
		if err != nil {
			return fmt.Errorf("find habit entries: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index, err := indexEntries(entries)
	if err != nil {
		slog.ErrorContext(ctx, "Habit entry integrity violation",
			"user_id", userID, "month", fmt.Sprintf("%04d-%02d", year, int(month)), "error", err)
		return nil, err
	}

	created := make(map[string]core.DayKey, len(habits))
	for _, h := range habits {
		dk, err := daybucket.DayKeyIn(h.CreatedAt, tz)
		if err != nil {
			return nil, err
		}
		created[h.ID] = dk
	}

	days = make([]core.MonthlyHabitDay, 0, last.Day)
	for d := first; !d.After(last); d = d.AddDays(1) {
		r, err := daybucket.RangeForDayKey(d, tz)
		if errors.Is(err, core.ErrInvalidDayKey) {
			// the zone skipped this date
			continue
		}
		if err != nil {
			return nil, err
		}
		row := core.MonthlyHabitDay{Day: d, Range: r}
		for _, h := range habits {
			if d.Before(created[h.ID]) {
				continue
			}
			e, ok := index[entryKey{habitID: h.ID, day: d}]
			done := ok && e.Completed
			row.TotalCount++
			if done {
				row.CompletedCount++
			}
			row.Habits = append(row.Habits, core.HabitDayStatus{
				HabitID:   h.ID,
				HabitName: h.Name,
				Completed: done,
			})
		}
		days = append(days, row)
	}

	return days, nil
}
