package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDayKey(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-03-15", true},
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"2025-13-01", false},
		{"2025-00-10", false},
		{"2025-04-31", false},
		{"2025-3-15", false},
		{"2025/03/15", false},
		{"2025-03-15T00:00:00Z", false},
		{"+025-03-15", false},
		{"", false},
	}
	for _, tc := range cases {
		dk, err := ParseDayKey(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q expected ok, got %v", tc.in, err)
			}
			if dk.String() != tc.in {
				t.Fatalf("%q round-tripped to %q", tc.in, dk.String())
			}
		} else if !errors.Is(err, ErrInvalidDayKey) {
			t.Fatalf("%q expected ErrInvalidDayKey, got %v", tc.in, err)
		}
	}
}

func TestDayKeyAddDays(t *testing.T) {
	cases := []struct {
		from string
		n    int
		want string
	}{
		{"2024-02-28", 1, "2024-02-29"},
		{"2024-02-29", 1, "2024-03-01"},
		{"2025-01-01", -1, "2024-12-31"},
		{"2025-03-15", -6, "2025-03-09"},
		{"2025-03-15", 0, "2025-03-15"},
	}
	for _, tc := range cases {
		dk, _ := ParseDayKey(tc.from)
		if got := dk.AddDays(tc.n).String(); got != tc.want {
			t.Errorf("%s%+d = %s, want %s", tc.from, tc.n, got, tc.want)
		}
	}
}

func TestDayKeyCompare(t *testing.T) {
	a := DayKey{2025, time.March, 15}
	b := DayKey{2025, time.March, 16}
	c := DayKey{2024, time.December, 31}
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("expected %s before %s", a, b)
	}
	if !a.After(c) {
		t.Fatalf("expected %s after %s", a, c)
	}
	if a.Compare(a) != 0 {
		t.Fatalf("expected equal")
	}
}

func TestDayKeyJSON(t *testing.T) {
	in := struct {
		Day DayKey `json:"day"`
	}{Day: DayKey{2025, time.March, 5}}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"day":"2025-03-05"}` {
		t.Fatalf("unexpected json %s", b)
	}
	var out struct {
		Day DayKey `json:"day"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out.Day != in.Day {
		t.Fatalf("got %v want %v", out.Day, in.Day)
	}
	if err := json.Unmarshal([]byte(`{"day":"2025-02-30"}`), &out); err == nil {
		t.Fatalf("expected error for invalid date")
	}
}

func TestDaysIn(t *testing.T) {
	if DaysIn(2024, time.February) != 29 {
		t.Fatalf("leap february")
	}
	if DaysIn(2023, time.February) != 28 {
		t.Fatalf("february")
	}
	if DaysIn(2025, time.December) != 31 {
		t.Fatalf("december")
	}
}

func TestRecurringAmountValidate(t *testing.T) {
	good := RecurringAmount{
		Kind:      KindExpense,
		Name:      "Rent",
		Amount:    decimal.NewFromInt(900),
		Frequency: Monthly,
		Category:  "Housing",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should be allowed, got %v", err)
	}

	bads := []struct {
		mut  func(r *RecurringAmount)
		want error
	}{
		{func(r *RecurringAmount) { r.Kind = "gift" }, ErrInvalidKind},
		{func(r *RecurringAmount) { r.Name = " " }, ErrEmptyName},
		{func(r *RecurringAmount) { r.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{func(r *RecurringAmount) { r.Frequency = "daily" }, ErrInvalidFrequency},
		{func(r *RecurringAmount) { r.Category = "" }, ErrEmptyCategory},
	}
	for i, tc := range bads {
		r := good
		tc.mut(&r)
		if err := r.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}

	income := good
	income.Kind = KindIncome
	income.IsEssential = true
	if err := income.Validate(); err == nil {
		t.Fatalf("essential income should be rejected")
	}
}

func TestHabitValidate(t *testing.T) {
	if err := (Habit{Name: "Read"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Habit{Name: ""}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}
