// Package memory is an in-process record store used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"lifedash/internal/core"
	"lifedash/internal/storage"
)

type entryKey struct {
	habitID string
	day     core.DayKey
}

type Store struct {
	mu        sync.Mutex
	habits    map[string]core.Habit
	entries   map[entryKey]core.HabitEntry
	recurring map[string]core.RecurringAmount
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		habits:    make(map[string]core.Habit),
		entries:   make(map[entryKey]core.HabitEntry),
		recurring: make(map[string]core.RecurringAmount),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) ListActiveHabits(_ context.Context, userID string) ([]core.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Habit
	for _, h := range s.habits {
		if h.UserID == userID && h.IsActive() {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetHabit(_ context.Context, userID, habitID string) (core.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.habits[habitID]
	if !ok {
		return core.Habit{}, core.ErrHabitNotFound
	}
	if h.UserID != userID {
		return core.Habit{}, core.ErrNotOwnedByUser
	}
	return h, nil
}

func (s *Store) CreateHabit(_ context.Context, h core.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.habits[h.ID] = h
	return nil
}

func (s *Store) ArchiveHabit(_ context.Context, userID, habitID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.habits[habitID]
	if !ok || h.UserID != userID || !h.IsActive() {
		return core.ErrHabitNotFound
	}
	at = at.UTC()
	h.ArchivedAt = &at
	s.habits[habitID] = h
	return nil
}

func (s *Store) FindHabitEntries(_ context.Context, userID string, habitID *string, from, to core.DayKey) ([]core.HabitEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match := func(e core.HabitEntry) bool {
		if e.UserID != userID || e.Day.Before(from) || e.Day.After(to) {
			return false
		}
		return habitID == nil || e.HabitID == *habitID
	}

	var out []core.HabitEntry
	for _, e := range s.entries {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Day.Compare(out[j].Day); c != 0 {
			return c < 0
		}
		return out[i].HabitID < out[j].HabitID
	})
	return out, nil
}

// UpsertHabitEntry holds the store lock for the whole read-modify-write, so
// concurrent upserts of the same (habit, day) never interleave.
func (s *Store) UpsertHabitEntry(_ context.Context, e core.HabitEntry) (core.HabitEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entryKey{habitID: e.HabitID, day: e.Day}
	if existing, ok := s.entries[key]; ok {
		existing.Completed = e.Completed
		existing.Notes = e.Notes
		existing.CompletedAt = e.CompletedAt
		existing.UpdatedAt = e.UpdatedAt
		s.entries[key] = existing
		return existing, nil
	}
	s.entries[key] = e
	return e, nil
}

func (s *Store) listActiveRecurring(userID string, kind core.RecurringKind) []core.RecurringAmount {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.RecurringAmount
	for _, r := range s.recurring {
		if r.UserID == userID && r.Kind == kind && r.IsActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListActiveIncomeSources(_ context.Context, userID string) ([]core.RecurringAmount, error) {
	return s.listActiveRecurring(userID, core.KindIncome), nil
}

func (s *Store) ListActiveRecurringExpenses(_ context.Context, userID string) ([]core.RecurringAmount, error) {
	return s.listActiveRecurring(userID, core.KindExpense), nil
}

func (s *Store) CreateRecurring(_ context.Context, r core.RecurringAmount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recurring[r.ID] = r
	return nil
}

func (s *Store) DeactivateRecurring(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recurring[id]
	if !ok || r.UserID != userID || !r.IsActive {
		return core.ErrRecordNotFound
	}
	r.IsActive = false
	s.recurring[id] = r
	return nil
}
