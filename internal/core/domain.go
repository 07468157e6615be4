package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	Annual   Frequency = "annual"
)

const (
	KindIncome  RecurringKind = "income"
	KindExpense RecurringKind = "expense"
)

type (
	Frequency string

	RecurringKind string

	// RecurringAmount is either an income source or a recurring expense.
	// IsEssential only applies to expenses.
	RecurringAmount struct {
		ID          string
		UserID      string
		Kind        RecurringKind
		Name        string
		Amount      decimal.Decimal
		Frequency   Frequency
		Category    string
		IsEssential bool
		IsActive    bool
		CreatedAt   time.Time
	}

	Habit struct {
		ID          string
		UserID      string
		Name        string
		Description string
		CreatedAt   time.Time
		ArchivedAt  *time.Time
	}

	// HabitEntry records completion of a habit on one calendar day.
	// There is at most one entry per (HabitID, Day).
	HabitEntry struct {
		ID          string
		HabitID     string
		UserID      string
		Day         DayKey
		Completed   bool
		Notes       string
		CompletedAt *time.Time
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var (
	ErrInvalidTimezone       = errors.New("invalid timezone")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidFrequency      = errors.New("invalid frequency")
	ErrInvalidDayKey         = errors.New("invalid day key")
	ErrInvalidMonth          = errors.New("invalid month")
	ErrInvalidKind           = errors.New("invalid recurring kind")
	ErrEmptyName             = errors.New("empty name")
	ErrEmptyCategory         = errors.New("empty category")
	ErrHabitNotFound         = errors.New("habit not found")
	ErrNotOwnedByUser        = errors.New("entity not owned by user")
	ErrRecordNotFound        = errors.New("record not found")
	ErrMultipleEntriesForDay = errors.New("multiple entries for the same habit and day")
	ErrTooLong               = errors.New("value too long")
	ErrEssentialIncome       = errors.New("income sources cannot be essential")
)

func (f Frequency) IsValid() bool {
	switch f {
	case Weekly, Biweekly, Monthly, Annual:
		return true
	}
	return false
}

func (k RecurringKind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

func (r RecurringAmount) Validate() error {
	if !r.Kind.IsValid() {
		return ErrInvalidKind
	}
	if len(strings.TrimSpace(r.Name)) == 0 {
		return ErrEmptyName
	}
	if len(r.Name) > 200 {
		return fmt.Errorf("%w: name (max 200 characters)", ErrTooLong)
	}
	if r.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !r.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if r.Kind == KindIncome && r.IsEssential {
		return ErrEssentialIncome
	}
	return nil
}

// IsActive reports whether the habit has not been archived.
func (h Habit) IsActive() bool {
	return h.ArchivedAt == nil
}

func (h Habit) Validate() error {
	if len(strings.TrimSpace(h.Name)) == 0 {
		return ErrEmptyName
	}
	if len(h.Name) > 200 {
		return fmt.Errorf("%w: name (max 200 characters)", ErrTooLong)
	}
	if len(h.Description) > 1000 {
		return fmt.Errorf("%w: description (max 1000 characters)", ErrTooLong)
	}
	return nil
}

func (e HabitEntry) Validate() error {
	if strings.TrimSpace(e.HabitID) == "" {
		return ErrHabitNotFound
	}
	if !e.Day.Valid() {
		return ErrInvalidDayKey
	}
	if len(e.Notes) > 1000 {
		return fmt.Errorf("%w: notes (max 1000 characters)", ErrTooLong)
	}
	return nil
}
