package storage

import (
	"context"
	"time"

	"lifedash/internal/core"
)

// Ports consumed by the services. Every read is scoped by user ID.
type (
	HabitStore interface {
		ListActiveHabits(ctx context.Context, userID string) ([]core.Habit, error)
		// GetHabit returns core.ErrHabitNotFound when the habit does not exist
		// and core.ErrNotOwnedByUser when it belongs to someone else.
		GetHabit(ctx context.Context, userID, habitID string) (core.Habit, error)
		CreateHabit(ctx context.Context, h core.Habit) error
		ArchiveHabit(ctx context.Context, userID, habitID string, at time.Time) error
	}

	EntryStore interface {
		// FindHabitEntries returns entries with from <= day <= to, ordered by
		// day then habit. A nil habitID selects every habit of the user.
		FindHabitEntries(ctx context.Context, userID string, habitID *string, from, to core.DayKey) ([]core.HabitEntry, error)
		// UpsertHabitEntry inserts or updates the entry for (HabitID, Day) in a
		// single atomic step and returns the stored row.
		UpsertHabitEntry(ctx context.Context, e core.HabitEntry) (core.HabitEntry, error)
	}

	RecurringStore interface {
		ListActiveIncomeSources(ctx context.Context, userID string) ([]core.RecurringAmount, error)
		ListActiveRecurringExpenses(ctx context.Context, userID string) ([]core.RecurringAmount, error)
		CreateRecurring(ctx context.Context, r core.RecurringAmount) error
		DeactivateRecurring(ctx context.Context, userID, id string) error
	}

	Store interface {
		HabitStore
		EntryStore
		RecurringStore
		Ping(ctx context.Context) error
		Close() error
	}
)
