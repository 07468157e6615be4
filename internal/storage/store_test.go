package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedash/internal/core"
	"lifedash/internal/storage"
	"lifedash/internal/storage/memory"
)

var storeFactories = map[string]func(t *testing.T) storage.Store{
	"memory": func(t *testing.T) storage.Store {
		return memory.New()
	},
	"sqlite": func(t *testing.T) storage.Store {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "lifedash.db"))
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		return repo
	},
	"postgres": func(t *testing.T) storage.Store {
		url := os.Getenv("LIFEDASH_TEST_POSTGRES_URL")
		if url == "" {
			t.Skip("LIFEDASH_TEST_POSTGRES_URL not set")
		}
		repo, err := storage.NewPostgresRepository(context.Background(), storage.PostgresConfig{URL: url})
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		return repo
	},
}

func forEachStore(t *testing.T, fn func(t *testing.T, s storage.Store)) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

var baseTime = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newHabit(userID, name string, createdAt time.Time) core.Habit {
	return core.Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: createdAt,
	}
}

func newEntry(h core.Habit, day core.DayKey, completed bool, notes string, at time.Time) core.HabitEntry {
	e := core.HabitEntry{
		ID:        uuid.NewString(),
		HabitID:   h.ID,
		UserID:    h.UserID,
		Day:       day,
		Completed: completed,
		Notes:     notes,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if completed {
		e.CompletedAt = &at
	}
	return e
}

func TestHabits(t *testing.T) {
	forEachStore(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		user := "user-" + uuid.NewString()
		other := "user-" + uuid.NewString()

		read := newHabit(user, "Read", baseTime)
		run := newHabit(user, "Run", baseTime.Add(time.Hour))
		foreign := newHabit(other, "Swim", baseTime)
		for _, h := range []core.Habit{read, run, foreign} {
			require.NoError(t, s.CreateHabit(ctx, h))
		}

		habits, err := s.ListActiveHabits(ctx, user)
		require.NoError(t, err)
		require.Len(t, habits, 2)
		assert.Equal(t, "Read", habits[0].Name)
		assert.Equal(t, "Run", habits[1].Name)
		assert.True(t, habits[0].CreatedAt.Equal(baseTime))

		_, err = s.GetHabit(ctx, user, foreign.ID)
		assert.ErrorIs(t, err, core.ErrNotOwnedByUser)
		_, err = s.GetHabit(ctx, user, uuid.NewString())
		assert.ErrorIs(t, err, core.ErrHabitNotFound)

		require.NoError(t, s.ArchiveHabit(ctx, user, run.ID, baseTime.Add(2*time.Hour)))
		assert.ErrorIs(t, s.ArchiveHabit(ctx, user, run.ID, baseTime), core.ErrHabitNotFound)
		assert.ErrorIs(t, s.ArchiveHabit(ctx, user, foreign.ID, baseTime), core.ErrHabitNotFound)

		habits, err = s.ListActiveHabits(ctx, user)
		require.NoError(t, err)
		require.Len(t, habits, 1)
		assert.Equal(t, read.ID, habits[0].ID)

		archived, err := s.GetHabit(ctx, user, run.ID)
		require.NoError(t, err)
		require.NotNil(t, archived.ArchivedAt)
		assert.False(t, archived.IsActive())
	})
}

func TestUpsertHabitEntry(t *testing.T) {
	forEachStore(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		h := newHabit("user-"+uuid.NewString(), "Meditate", baseTime)
		require.NoError(t, s.CreateHabit(ctx, h))
		day := core.DayKey{Year: 2025, Month: time.March, Day: 15}

		first, err := s.UpsertHabitEntry(ctx, newEntry(h, day, false, "later", baseTime))
		require.NoError(t, err)
		assert.False(t, first.Completed)
		assert.Nil(t, first.CompletedAt)

		updatedAt := baseTime.Add(3 * time.Hour)
		second, err := s.UpsertHabitEntry(ctx, newEntry(h, day, true, "done", updatedAt))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID, "upsert must keep the existing row")
		assert.True(t, second.Completed)
		assert.Equal(t, "done", second.Notes)
		require.NotNil(t, second.CompletedAt)
		assert.True(t, second.CompletedAt.Equal(updatedAt))
		assert.True(t, second.CreatedAt.Equal(baseTime))
		assert.True(t, second.UpdatedAt.Equal(updatedAt))

		entries, err := s.FindHabitEntries(ctx, h.UserID, &h.ID, day, day)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, day, entries[0].Day)
	})
}

func TestFindHabitEntries(t *testing.T) {
	forEachStore(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		user := "user-" + uuid.NewString()
		a := newHabit(user, "A", baseTime)
		b := newHabit(user, "B", baseTime)
		require.NoError(t, s.CreateHabit(ctx, a))
		require.NoError(t, s.CreateHabit(ctx, b))

		start := core.DayKey{Year: 2025, Month: time.February, Day: 27}
		for i := 0; i < 5; i++ {
			day := start.AddDays(i)
			_, err := s.UpsertHabitEntry(ctx, newEntry(a, day, true, "", baseTime))
			require.NoError(t, err)
			_, err = s.UpsertHabitEntry(ctx, newEntry(b, day, i%2 == 0, "", baseTime))
			require.NoError(t, err)
		}

		from := core.DayKey{Year: 2025, Month: time.February, Day: 28}
		to := core.DayKey{Year: 2025, Month: time.March, Day: 2}
		all, err := s.FindHabitEntries(ctx, user, nil, from, to)
		require.NoError(t, err)
		require.Len(t, all, 6)
		assert.Equal(t, from, all[0].Day)
		assert.Equal(t, to, all[len(all)-1].Day)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].Day.Before(all[i-1].Day), "entries must be ordered by day")
		}

		onlyB, err := s.FindHabitEntries(ctx, user, &b.ID, from, to)
		require.NoError(t, err)
		require.Len(t, onlyB, 3)
		for _, e := range onlyB {
			assert.Equal(t, b.ID, e.HabitID)
		}

		none, err := s.FindHabitEntries(ctx, "someone-else", nil, from, to)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestConcurrentUpsertKeepsOneRow(t *testing.T) {
	forEachStore(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		h := newHabit("user-"+uuid.NewString(), "Water", baseTime)
		require.NoError(t, s.CreateHabit(ctx, h))
		day := core.DayKey{Year: 2025, Month: time.March, Day: 15}

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.UpsertHabitEntry(ctx, newEntry(h, day, i%2 == 0, "", baseTime))
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		entries, err := s.FindHabitEntries(ctx, h.UserID, &h.ID, day, day)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestRecurringAmounts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		user := "user-" + uuid.NewString()

		salary := core.RecurringAmount{
			ID: uuid.NewString(), UserID: user, Kind: core.KindIncome, Name: "Salary",
			Amount: decimal.RequireFromString("3200.5"), Frequency: core.Monthly, Category: "Work",
			IsActive: true, CreatedAt: baseTime,
		}
		rent := core.RecurringAmount{
			ID: uuid.NewString(), UserID: user, Kind: core.KindExpense, Name: "Rent",
			Amount: decimal.RequireFromString("1234.5678"), Frequency: core.Monthly, Category: "Housing",
			IsEssential: true, IsActive: true, CreatedAt: baseTime,
		}
		gym := core.RecurringAmount{
			ID: uuid.NewString(), UserID: user, Kind: core.KindExpense, Name: "Gym",
			Amount: decimal.NewFromInt(15), Frequency: core.Weekly, Category: "Health",
			IsActive: true, CreatedAt: baseTime.Add(time.Minute),
		}
		for _, r := range []core.RecurringAmount{salary, rent, gym} {
			require.NoError(t, s.CreateRecurring(ctx, r))
		}

		income, err := s.ListActiveIncomeSources(ctx, user)
		require.NoError(t, err)
		require.Len(t, income, 1)
		assert.True(t, income[0].Amount.Equal(salary.Amount))
		assert.Equal(t, core.KindIncome, income[0].Kind)

		expenses, err := s.ListActiveRecurringExpenses(ctx, user)
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, "Rent", expenses[0].Name)
		assert.True(t, expenses[0].Amount.Equal(rent.Amount))
		assert.True(t, expenses[0].IsEssential)
		assert.Equal(t, core.Weekly, expenses[1].Frequency)

		require.NoError(t, s.DeactivateRecurring(ctx, user, gym.ID))
		assert.ErrorIs(t, s.DeactivateRecurring(ctx, user, gym.ID), core.ErrRecordNotFound)
		assert.ErrorIs(t, s.DeactivateRecurring(ctx, "intruder", rent.ID), core.ErrRecordNotFound)

		expenses, err = s.ListActiveRecurringExpenses(ctx, user)
		require.NoError(t, err)
		require.Len(t, expenses, 1)
	})
}

func TestMigrationFilesEmbedded(t *testing.T) {
	for _, dialect := range []string{"sqlite", "postgres"} {
		files, err := storage.MigrationFiles(dialect)
		require.NoError(t, err)
		assert.Len(t, files, 4, dialect)
	}
}
