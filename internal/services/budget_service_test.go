package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedash/internal/core"
	"lifedash/internal/storage/memory"
)

func seedRecurring(t *testing.T, store *memory.Store, kind core.RecurringKind, name, amount string, f core.Frequency, category string, essential bool) {
	t.Helper()
	require.NoError(t, store.CreateRecurring(context.Background(), core.RecurringAmount{
		ID:          name,
		UserID:      "u1",
		Kind:        kind,
		Name:        name,
		Amount:      decimal.RequireFromString(amount),
		Frequency:   f,
		Category:    category,
		IsEssential: essential,
		IsActive:    true,
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func assertRounded(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Round(2).Equal(decimal.RequireFromString(want)), "%s: got %s, want %s", msg, got.Round(2), want)
}

func TestGetBudgetSummary(t *testing.T) {
	store := memory.New()
	seedRecurring(t, store, core.KindIncome, "salary", "3000", core.Monthly, "Work", false)
	seedRecurring(t, store, core.KindIncome, "bonus", "1200", core.Annual, "Work", false)
	seedRecurring(t, store, core.KindExpense, "rent", "1000", core.Monthly, "Housing", true)
	seedRecurring(t, store, core.KindExpense, "groceries", "100", core.Weekly, "Food", true)
	seedRecurring(t, store, core.KindExpense, "dining", "50", core.Weekly, "Food", false)
	seedRecurring(t, store, core.KindExpense, "streaming", "15", core.Monthly, "Entertainment", false)
	seedRecurring(t, store, core.KindExpense, "insurance", "600", core.Annual, "Insurance", true)

	svc := NewBudgetService(store, nil)
	s, err := svc.GetBudgetSummary(context.Background(), "u1")
	require.NoError(t, err)

	assertRounded(t, "3100", s.TotalMonthlyIncome, "income")
	assertRounded(t, "1717.29", s.TotalMonthlyExpenses, "expenses")
	assertRounded(t, "1382.71", s.AvailableBalance, "balance")
	assertRounded(t, "44.60", s.SavingsRate, "savings rate")
	assertRounded(t, "1050", s.EssentialExpenses, "essential")
	assertRounded(t, "667.29", s.NonEssentialExpenses, "non-essential")

	require.Len(t, s.ExpensesByCategory, 4)
	wantOrder := []string{"Housing", "Food", "Insurance", "Entertainment"}
	for i, name := range wantOrder {
		assert.Equal(t, name, s.ExpensesByCategory[i].Category)
	}

	housing := s.ExpensesByCategory[0]
	assert.True(t, housing.IsEssential)
	assertRounded(t, "32.26", housing.Percentage, "housing pct")

	food := s.ExpensesByCategory[1]
	assert.False(t, food.IsEssential, "mixed category must not count as essential")
	assert.Equal(t, 2, food.Count)
	assertRounded(t, "652.29", food.Amount, "food")

	require.Len(t, s.IncomeByCategory, 1)
	assert.Equal(t, "Work", s.IncomeByCategory[0].Category)
	assert.False(t, s.IncomeByCategory[0].IsEssential)
	assertRounded(t, "100", s.IncomeByCategory[0].Percentage, "income pct")

	// Totals keep full precision; only display rounds.
	assert.False(t, s.TotalMonthlyExpenses.Equal(s.TotalMonthlyExpenses.Round(2)))
}

func TestGetBudgetSummary_ZeroIncome(t *testing.T) {
	store := memory.New()
	seedRecurring(t, store, core.KindExpense, "rent", "800", core.Monthly, "Housing", true)

	s, err := NewBudgetService(store, nil).GetBudgetSummary(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, s.TotalMonthlyIncome.IsZero())
	assert.True(t, s.SavingsRate.IsZero())
	assert.True(t, s.AvailableBalance.IsNegative())
	assertRounded(t, "-800", s.AvailableBalance, "balance")
	assert.True(t, s.ExpensesByCategory[0].Percentage.IsZero())
}

func TestGetBudgetSummary_Empty(t *testing.T) {
	s, err := NewBudgetService(memory.New(), nil).GetBudgetSummary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, s.TotalMonthlyIncome.IsZero())
	assert.True(t, s.TotalMonthlyExpenses.IsZero())
	assert.True(t, s.AvailableBalance.IsZero())
	assert.True(t, s.SavingsRate.IsZero())
	assert.Empty(t, s.ExpensesByCategory)
	assert.Empty(t, s.IncomeByCategory)
}

func TestGetBudgetSummary_CorruptRecords(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		freq   core.Frequency
		want   error
	}{
		{"negative amount", "-5", core.Monthly, core.ErrInvalidAmount},
		{"unknown frequency", "5", "daily", core.ErrInvalidFrequency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			seedRecurring(t, store, core.KindExpense, "bad", tt.amount, tt.freq, "X", false)
			_, err := NewBudgetService(store, nil).GetBudgetSummary(context.Background(), "u1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRecurringCRUD(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, fixedClock{t: utc("2025-03-15T10:00:00Z")})

	created, err := svc.CreateRecurring(ctx, "u1", RecurringInput{
		Kind:        core.KindExpense,
		Name:        " Gym ",
		Amount:      decimal.NewFromInt(30),
		Frequency:   core.Monthly,
		Category:    "Health",
		IsEssential: false,
	})
	require.NoError(t, err)
	assert.Equal(t, "Gym", created.Name)
	assert.True(t, created.IsActive)

	_, err = svc.CreateRecurring(ctx, "u1", RecurringInput{
		Kind: core.KindIncome, Name: "Salary", Amount: decimal.NewFromInt(-1),
		Frequency: core.Monthly, Category: "Work",
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = svc.CreateRecurring(ctx, "u1", RecurringInput{
		Kind: core.KindIncome, Name: "Salary", Amount: decimal.NewFromInt(10),
		Frequency: "hourly", Category: "Work",
	})
	assert.ErrorIs(t, err, core.ErrInvalidFrequency)

	all, err := svc.ListRecurring(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	income, err := svc.ListRecurring(ctx, "u1", core.KindIncome)
	require.NoError(t, err)
	assert.Empty(t, income)

	_, err = svc.ListRecurring(ctx, "u1", "gift")
	assert.ErrorIs(t, err, core.ErrInvalidKind)

	require.NoError(t, svc.DeactivateRecurring(ctx, "u1", created.ID))
	assert.ErrorIs(t, svc.DeactivateRecurring(ctx, "u1", created.ID), core.ErrRecordNotFound)
}
