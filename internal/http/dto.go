package http

import (
	"math"
	"time"

	"lifedash/internal/core"
	"lifedash/internal/services"
)

// rangeLayout keeps milliseconds so range ends render as .999.
const rangeLayout = "2006-01-02T15:04:05.000Z07:00"

type habitDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

type entryDTO struct {
	ID          string     `json:"id"`
	HabitID     string     `json:"habit_id"`
	Day         string     `json:"day"`
	Completed   bool       `json:"completed"`
	Notes       string     `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type dayRangeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type habitDayDTO struct {
	Habit            habitDTO  `json:"habit"`
	Entry            *entryDTO `json:"entry"`
	WeeklyCompleted  int       `json:"weekly_completed"`
	WeeklyTotal      int       `json:"weekly_total"`
	WeeklyPercentage float64   `json:"weekly_percentage"`
}

type dailyViewDTO struct {
	Day      string        `json:"day"`
	Timezone string        `json:"timezone"`
	Range    dayRangeDTO   `json:"range"`
	Habits   []habitDayDTO `json:"habits"`
}

type habitStatusDTO struct {
	HabitID   string `json:"habit_id"`
	HabitName string `json:"habit_name"`
	Completed bool   `json:"completed"`
}

type monthlyDayDTO struct {
	Day            string           `json:"day"`
	Range          dayRangeDTO      `json:"range"`
	CompletedCount int              `json:"completed_count"`
	TotalCount     int              `json:"total_count"`
	Habits         []habitStatusDTO `json:"habits"`
}

type categoryDTO struct {
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Percentage  float64 `json:"percentage"`
	IsEssential bool    `json:"is_essential"`
	Count       int     `json:"count"`
}

type budgetSummaryDTO struct {
	TotalMonthlyIncome   float64       `json:"total_monthly_income"`
	TotalMonthlyExpenses float64       `json:"total_monthly_expenses"`
	AvailableBalance     float64       `json:"available_balance"`
	SavingsRate          float64       `json:"savings_rate"`
	EssentialExpenses    float64       `json:"essential_expenses"`
	NonEssentialExpenses float64       `json:"non_essential_expenses"`
	ExpensesByCategory   []categoryDTO `json:"expenses_by_category"`
	IncomeByCategory     []categoryDTO `json:"income_by_category"`
}

type recurringDTO struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	Amount        float64   `json:"amount"`
	MonthlyAmount float64   `json:"monthly_amount"`
	Frequency     string    `json:"frequency"`
	Category      string    `json:"category"`
	IsEssential   bool      `json:"is_essential"`
	CreatedAt     time.Time `json:"created_at"`
}

func toHabitDTO(h core.Habit) habitDTO {
	return habitDTO{
		ID:          h.ID,
		Name:        h.Name,
		Description: h.Description,
		CreatedAt:   h.CreatedAt,
		ArchivedAt:  h.ArchivedAt,
	}
}

func toEntryDTO(e *core.HabitEntry) *entryDTO {
	if e == nil {
		return nil
	}
	return &entryDTO{
		ID:          e.ID,
		HabitID:     e.HabitID,
		Day:         e.Day.String(),
		Completed:   e.Completed,
		Notes:       e.Notes,
		CompletedAt: e.CompletedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toRangeDTO(r core.DayRange) dayRangeDTO {
	return dayRangeDTO{
		Start: r.Start.UTC().Format(rangeLayout),
		End:   r.End.UTC().Format(rangeLayout),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func toDailyViewDTO(v *core.DailyHabitView) dailyViewDTO {
	out := dailyViewDTO{
		Day:      v.Day.String(),
		Timezone: v.Timezone,
		Range:    toRangeDTO(v.Range),
		Habits:   make([]habitDayDTO, 0, len(v.Habits)),
	}
	for _, rec := range v.Habits {
		out.Habits = append(out.Habits, habitDayDTO{
			Habit:            toHabitDTO(rec.Habit),
			Entry:            toEntryDTO(rec.Entry),
			WeeklyCompleted:  rec.WeeklyCompleted,
			WeeklyTotal:      rec.WeeklyTotal,
			WeeklyPercentage: round2(rec.WeeklyPercentage),
		})
	}
	return out
}

func toMonthlyDTO(days []core.MonthlyHabitDay) []monthlyDayDTO {
	out := make([]monthlyDayDTO, 0, len(days))
	for _, d := range days {
		row := monthlyDayDTO{
			Day:            d.Day.String(),
			Range:          toRangeDTO(d.Range),
			CompletedCount: d.CompletedCount,
			TotalCount:     d.TotalCount,
			Habits:         make([]habitStatusDTO, 0, len(d.Habits)),
		}
		for _, h := range d.Habits {
			row.Habits = append(row.Habits, habitStatusDTO(h))
		}
		out = append(out, row)
	}
	return out
}

func toCategoryDTOs(in []core.CategoryBreakdown) []categoryDTO {
	out := make([]categoryDTO, 0, len(in))
	for _, c := range in {
		out = append(out, categoryDTO{
			Category:    c.Category,
			Amount:      core.RoundForDisplay(c.Amount),
			Percentage:  core.RoundForDisplay(c.Percentage),
			IsEssential: c.IsEssential,
			Count:       c.Count,
		})
	}
	return out
}

func toBudgetSummaryDTO(s *core.BudgetSummary) budgetSummaryDTO {
	return budgetSummaryDTO{
		TotalMonthlyIncome:   core.RoundForDisplay(s.TotalMonthlyIncome),
		TotalMonthlyExpenses: core.RoundForDisplay(s.TotalMonthlyExpenses),
		AvailableBalance:     core.RoundForDisplay(s.AvailableBalance),
		SavingsRate:          core.RoundForDisplay(s.SavingsRate),
		EssentialExpenses:    core.RoundForDisplay(s.EssentialExpenses),
		NonEssentialExpenses: core.RoundForDisplay(s.NonEssentialExpenses),
		ExpensesByCategory:   toCategoryDTOs(s.ExpensesByCategory),
		IncomeByCategory:     toCategoryDTOs(s.IncomeByCategory),
	}
}

// toRecurringDTO fails only for records with an unknown frequency.
func toRecurringDTO(r core.RecurringAmount) (recurringDTO, error) {
	monthly, err := services.ToMonthly(r.Amount, r.Frequency)
	if err != nil {
		return recurringDTO{}, err
	}
	return recurringDTO{
		ID:            r.ID,
		Kind:          string(r.Kind),
		Name:          r.Name,
		Amount:        core.RoundForDisplay(r.Amount),
		MonthlyAmount: core.RoundForDisplay(monthly),
		Frequency:     string(r.Frequency),
		Category:      r.Category,
		IsEssential:   r.IsEssential,
		CreatedAt:     r.CreatedAt,
	}, nil
}
