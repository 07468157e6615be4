package core

import "github.com/shopspring/decimal"

// HabitDayRecord is one habit in the daily view.
type HabitDayRecord struct {
	Habit            Habit
	Entry            *HabitEntry
	WeeklyCompleted  int
	WeeklyTotal      int
	WeeklyPercentage float64
}

// DailyHabitView answers "what are my habits today and how am I doing this week".
type DailyHabitView struct {
	Day      DayKey
	Timezone string
	Range    DayRange
	Habits   []HabitDayRecord
}

// HabitDayStatus is the per-habit cell of a calendar day.
type HabitDayStatus struct {
	HabitID   string
	HabitName string
	Completed bool
}

// MonthlyHabitDay is one row of the monthly calendar.
type MonthlyHabitDay struct {
	Day            DayKey
	Range          DayRange
	CompletedCount int
	TotalCount     int
	Habits         []HabitDayStatus
}

// CategoryBreakdown is an amount aggregated by category name.
type CategoryBreakdown struct {
	Category    string
	Amount      decimal.Decimal
	Percentage  decimal.Decimal // of total monthly income
	IsEssential bool            // every member is essential; always false for income
	Count       int
}

// BudgetSummary is a monthly view of recurring income and expenses.
// All amounts are monthly equivalents at full precision.
type BudgetSummary struct {
	TotalMonthlyIncome   decimal.Decimal
	TotalMonthlyExpenses decimal.Decimal
	AvailableBalance     decimal.Decimal
	SavingsRate          decimal.Decimal
	EssentialExpenses    decimal.Decimal
	NonEssentialExpenses decimal.Decimal
	ExpensesByCategory   []CategoryBreakdown
	IncomeByCategory     []CategoryBreakdown
}
