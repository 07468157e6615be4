// Package services provides business logic and orchestration services.
//
// This file converts recurring amounts to monthly equivalents. Each
// frequency has its own converter, looked up in a registry.
package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lifedash/internal/core"
)

// AverageDaysPerMonth is the month length used to compare weekly and
// biweekly amounts with monthly ones (365.25 / 12, rounded).
const AverageDaysPerMonth = "30.44"

var averageMonth = decimal.RequireFromString(AverageDaysPerMonth)

// MonthlyConverter turns an amount paid at some cadence into its monthly
// equivalent. Implementations must not round.
type MonthlyConverter interface {
	ToMonthly(amount decimal.Decimal) decimal.Decimal
}

// PeriodConverter spreads an amount paid every Days days over an average month.
type PeriodConverter struct {
	Days int64
}

func (c PeriodConverter) ToMonthly(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(averageMonth).Div(decimal.NewFromInt(c.Days))
}

// MonthlyIdentity is used for amounts that are already monthly.
type MonthlyIdentity struct{}

func (MonthlyIdentity) ToMonthly(amount decimal.Decimal) decimal.Decimal {
	return amount
}

// FractionConverter divides an amount paid once every Months months.
type FractionConverter struct {
	Months int64
}

func (c FractionConverter) ToMonthly(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(decimal.NewFromInt(c.Months))
}

var monthlyConverters = map[core.Frequency]MonthlyConverter{
	core.Weekly:   PeriodConverter{Days: 7},
	core.Biweekly: PeriodConverter{Days: 14},
	core.Monthly:  MonthlyIdentity{},
	core.Annual:   FractionConverter{Months: 12},
}

// GetMonthlyConverter returns the converter registered for a frequency.
func GetMonthlyConverter(f core.Frequency) (MonthlyConverter, error) {
	c, ok := monthlyConverters[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, f)
	}
	return c, nil
}

// RegisterMonthlyConverter adds or replaces the converter for a frequency.
// It is not safe to call concurrently with ToMonthly; register at init time.
func RegisterMonthlyConverter(f core.Frequency, c MonthlyConverter) {
	monthlyConverters[f] = c
}

// ToMonthly returns the monthly equivalent of amount paid at frequency f,
// at full precision. A negative amount is rejected, never clamped.
func ToMonthly(amount decimal.Decimal, f core.Frequency) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrInvalidAmount, amount)
	}
	c, err := GetMonthlyConverter(f)
	if err != nil {
		return decimal.Zero, err
	}
	return c.ToMonthly(amount), nil
}
