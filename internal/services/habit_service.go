package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"lifedash/internal/core"
	"lifedash/internal/daybucket"
	"lifedash/internal/metrics"
	"lifedash/internal/storage"
)

// HabitService builds the daily habit view and records completions.
type HabitService struct {
	habits    storage.HabitStore
	entries   storage.EntryStore
	publisher EntryPublisher
	clock     Clock
}

// NewHabitService wires the service. publisher may be nil; clock defaults
// to RealClock.
func NewHabitService(habits storage.HabitStore, entries storage.EntryStore, publisher EntryPublisher, clock Clock) *HabitService {
	if clock == nil {
		clock = RealClock{}
	}
	return &HabitService{
		habits:    habits,
		entries:   entries,
		publisher: publisher,
		clock:     clock,
	}
}

// Today returns the current calendar day in tz.
func (s *HabitService) Today(tz string) (core.DayKey, error) {
	return daybucket.DayKeyIn(s.clock.Now(), tz)
}

// GetDailyView lists the user's active habits for day with their entry and
// trailing seven-day completion. A window day counts toward the total only
// if the habit existed on it and it is not in the future.
func (s *HabitService) GetDailyView(ctx context.Context, userID string, day core.DayKey, tz string) (view *core.DailyHabitView, err error) {
	defer metrics.ObserveAggregation("daily_view", time.Now(), &err)

	if !day.Valid() {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidDayKey, day)
	}
	noon, err := daybucket.NormalizeToUserMidday(day, tz)
	if err != nil {
		return nil, err
	}
	dayRange, err := daybucket.DayRangeFor(noon, tz)
	if err != nil {
		return nil, err
	}
	today, err := daybucket.DayKeyIn(s.clock.Now(), tz)
	if err != nil {
		return nil, err
	}

	habits, err := s.habits.ListActiveHabits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active habits: %w", err)
	}

	windowStart := day.AddDays(-(WeekWindowDays - 1))
	entries, err := s.entries.FindHabitEntries(ctx, userID, nil, windowStart, day)
	if err != nil {
		return nil, fmt.Errorf("find habit entries: %w", err)
	}
	index, err := indexEntries(entries)
	if err != nil {
		slog.ErrorContext(ctx, "Habit entry integrity violation",
			"user_id", userID, "day", day.String(), "error", err)
		return nil, err
	}

	lastEligible := day
	if today.Before(day) {
		lastEligible = today
	}

	view = &core.DailyHabitView{
		Day:      day,
		Timezone: tz,
		Range:    dayRange,
		Habits:   make([]core.HabitDayRecord, 0, len(habits)),
	}
	for _, h := range habits {
		created, err := daybucket.DayKeyIn(h.CreatedAt, tz)
		if err != nil {
			return nil, err
		}

		rec := core.HabitDayRecord{Habit: h}
		if e, ok := index[entryKey{habitID: h.ID, day: day}]; ok {
			rec.Entry = &e
		}
		for d := windowStart; !d.After(day); d = d.AddDays(1) {
			if d.Before(created) || d.After(lastEligible) {
				continue
			}
			rec.WeeklyTotal++
			if e, ok := index[entryKey{habitID: h.ID, day: d}]; ok && e.Completed {
				rec.WeeklyCompleted++
			}
		}
		rec.WeeklyPercentage = percentage(rec.WeeklyCompleted, rec.WeeklyTotal)
		view.Habits = append(view.Habits, rec)
	}

	return view, nil
}

// LogEntry creates or updates the user's entry for habitID on day.
// completedAt is set to now when completed and cleared otherwise.
func (s *HabitService) LogEntry(ctx context.Context, habitID, userID string, day core.DayKey, completed bool, notes string) (*core.HabitEntry, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidDayKey, day)
	}

	h, err := s.ownedHabit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if !h.IsActive() {
		return nil, fmt.Errorf("%w: %s is archived", core.ErrHabitNotFound, habitID)
	}

	now := s.clock.Now().UTC()
	entry := core.HabitEntry{
		ID:        uuid.NewString(),
		HabitID:   habitID,
		UserID:    userID,
		Day:       day,
		Completed: completed,
		Notes:     strings.TrimSpace(notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if completed {
		entry.CompletedAt = &now
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.entries.UpsertHabitEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("save habit entry: %w", err)
	}
	metrics.RecordEntryLogged(stored.Completed)

	if err := s.publish(ctx, stored, h.Name); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry logged message",
			"id", stored.ID, "habit_id", habitID, "error", err)
		// the entry is stored; export is best effort
	}

	return &stored, nil
}

// LogEntryAt records an entry for the calendar day of instant as read in its
// own location. No zone conversion happens here: pass an instant already in
// the user's zone, such as time.Date(y, m, d, 12, 0, 0, 0, loc). A UTC
// instant is taken at its UTC date.
func (s *HabitService) LogEntryAt(ctx context.Context, habitID, userID string, instant time.Time, completed bool, notes string) (*core.HabitEntry, error) {
	return s.LogEntry(ctx, habitID, userID, core.DayKeyOf(instant), completed, notes)
}

func (s *HabitService) publish(ctx context.Context, e core.HabitEntry, habitName string) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Entry publisher not configured, skipping export message")
		return nil
	}
	return s.publisher.PublishEntryLogged(ctx, e, habitName)
}

// ownedHabit maps "exists but belongs to someone else" onto HabitNotFound so
// callers cannot probe for other users' IDs.
func (s *HabitService) ownedHabit(ctx context.Context, userID, habitID string) (core.Habit, error) {
	h, err := s.habits.GetHabit(ctx, userID, habitID)
	switch {
	case errors.Is(err, core.ErrNotOwnedByUser):
		return core.Habit{}, fmt.Errorf("%w: %w", core.ErrHabitNotFound, err)
	case errors.Is(err, core.ErrHabitNotFound):
		return core.Habit{}, err
	case err != nil:
		return core.Habit{}, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

func (s *HabitService) CreateHabit(ctx context.Context, userID, name, description string) (*core.Habit, error) {
	h := core.Habit{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if err := s.habits.CreateHabit(ctx, h); err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &h, nil
}

func (s *HabitService) ListHabits(ctx context.Context, userID string) ([]core.Habit, error) {
	habits, err := s.habits.ListActiveHabits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active habits: %w", err)
	}
	return habits, nil
}

func (s *HabitService) ArchiveHabit(ctx context.Context, userID, habitID string) error {
	if _, err := s.ownedHabit(ctx, userID, habitID); err != nil {
		return err
	}
	if err := s.habits.ArchiveHabit(ctx, userID, habitID, s.clock.Now().UTC()); err != nil {
		if errors.Is(err, core.ErrHabitNotFound) {
			return err
		}
		return fmt.Errorf("archive habit: %w", err)
	}
	return nil
}
