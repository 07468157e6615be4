package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"lifedash/internal/core"
	"lifedash/internal/metrics"
	"lifedash/internal/storage"
)

var hundred = decimal.NewFromInt(100)

// BudgetService aggregates recurring income and expenses into monthly figures.
type BudgetService struct {
	store storage.RecurringStore
	clock Clock
}

func NewBudgetService(store storage.RecurringStore, clock Clock) *BudgetService {
	if clock == nil {
		clock = RealClock{}
	}
	return &BudgetService{store: store, clock: clock}
}

// GetBudgetSummary normalizes every active income source and recurring
// expense to a monthly equivalent and groups them by category.
//
// A category counts as essential only when every expense in it is flagged
// essential; mixed categories fall on the non-essential side.
func (s *BudgetService) GetBudgetSummary(ctx context.Context, userID string) (summary *core.BudgetSummary, err error) {
	defer metrics.ObserveAggregation("budget_summary", time.Now(), &err)

	var income, expenses []core.RecurringAmount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.store.ListActiveIncomeSources(gctx, userID)
		if err != nil {
			return fmt.Errorf("list income sources: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListActiveRecurringExpenses(gctx, userID)
		if err != nil {
			return fmt.Errorf("list recurring expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totalIncome, incomeByCategory, err := groupByCategory(income, false)
	if err != nil {
		return nil, err
	}
	totalExpenses, expensesByCategory, err := groupByCategory(expenses, true)
	if err != nil {
		return nil, err
	}

	summary = &core.BudgetSummary{
		TotalMonthlyIncome:   totalIncome,
		TotalMonthlyExpenses: totalExpenses,
		AvailableBalance:     totalIncome.Sub(totalExpenses),
		EssentialExpenses:    decimal.Zero,
		NonEssentialExpenses: decimal.Zero,
		ExpensesByCategory:   expensesByCategory,
		IncomeByCategory:     incomeByCategory,
	}
	summary.SavingsRate = percentOf(summary.AvailableBalance, totalIncome)

	for i := range summary.ExpensesByCategory {
		c := &summary.ExpensesByCategory[i]
		c.Percentage = percentOf(c.Amount, totalIncome)
		if c.IsEssential {
			summary.EssentialExpenses = summary.EssentialExpenses.Add(c.Amount)
		} else {
			summary.NonEssentialExpenses = summary.NonEssentialExpenses.Add(c.Amount)
		}
	}
	for i := range summary.IncomeByCategory {
		c := &summary.IncomeByCategory[i]
		c.Percentage = percentOf(c.Amount, totalIncome)
	}

	return summary, nil
}

func percentOf(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred)
}

// groupByCategory sums monthly equivalents per category, sorted by amount
// descending then name. Percentages are filled in by the caller.
func groupByCategory(items []core.RecurringAmount, trackEssential bool) (decimal.Decimal, []core.CategoryBreakdown, error) {
	total := decimal.Zero
	byName := make(map[string]*core.CategoryBreakdown)
	var order []string

	for _, it := range items {
		if !it.IsActive {
			continue
		}
		monthly, err := ToMonthly(it.Amount, it.Frequency)
		if err != nil {
			return decimal.Zero, nil, fmt.Errorf("normalize %s %s: %w", it.Kind, it.ID, err)
		}
		total = total.Add(monthly)

		c, ok := byName[it.Category]
		if !ok {
			c = &core.CategoryBreakdown{
				Category:    it.Category,
				Amount:      decimal.Zero,
				IsEssential: trackEssential,
			}
			byName[it.Category] = c
			order = append(order, it.Category)
		}
		c.Amount = c.Amount.Add(monthly)
		c.Count++
		c.IsEssential = c.IsEssential && trackEssential && it.IsEssential
	}

	out := make([]core.CategoryBreakdown, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return total, out, nil
}

// RecurringInput is a new income source or recurring expense.
type RecurringInput struct {
	Kind        core.RecurringKind
	Name        string
	Amount      decimal.Decimal
	Frequency   core.Frequency
	Category    string
	IsEssential bool
}

func (s *BudgetService) CreateRecurring(ctx context.Context, userID string, in RecurringInput) (*core.RecurringAmount, error) {
	r := core.RecurringAmount{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        in.Kind,
		Name:        strings.TrimSpace(in.Name),
		Amount:      in.Amount,
		Frequency:   in.Frequency,
		Category:    strings.TrimSpace(in.Category),
		IsEssential: in.IsEssential,
		IsActive:    true,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateRecurring(ctx, r); err != nil {
		return nil, fmt.Errorf("create recurring amount: %w", err)
	}
	return &r, nil
}

// ListRecurring returns active entries of one kind, or both when kind is empty.
func (s *BudgetService) ListRecurring(ctx context.Context, userID string, kind core.RecurringKind) ([]core.RecurringAmount, error) {
	if kind != "" && !kind.IsValid() {
		return nil, core.ErrInvalidKind
	}
	var out []core.RecurringAmount
	if kind == "" || kind == core.KindIncome {
		income, err := s.store.ListActiveIncomeSources(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list income sources: %w", err)
		}
		out = append(out, income...)
	}
	if kind == "" || kind == core.KindExpense {
		expenses, err := s.store.ListActiveRecurringExpenses(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list recurring expenses: %w", err)
		}
		out = append(out, expenses...)
	}
	return out, nil
}

func (s *BudgetService) DeactivateRecurring(ctx context.Context, userID, id string) error {
	if err := s.store.DeactivateRecurring(ctx, userID, id); err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("deactivate recurring amount: %w", err)
	}
	return nil
}
