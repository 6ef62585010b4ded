package core

import (
	"errors"
	"testing"
	"time"
)

func TestPeriodNavigation(t *testing.T) {
	jan := Period{Year: 2024, Month: time.January}
	if got := jan.Prev(); got != (Period{Year: 2023, Month: time.December}) {
		t.Fatalf("prev of jan = %v", got)
	}
	dec := Period{Year: 2024, Month: time.December}
	if got := dec.Next(); got != (Period{Year: 2025, Month: time.January}) {
		t.Fatalf("next of dec = %v", got)
	}
	if !jan.Before(dec) || !dec.After(jan) {
		t.Fatalf("ordering broken")
	}
	if jan.String() != "2024-01" {
		t.Fatalf("unexpected string %q", jan.String())
	}
}

func TestPeriodBounds(t *testing.T) {
	feb := Period{Year: 2024, Month: time.February}
	if !feb.Start().Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", feb.Start())
	}
	if !feb.End().Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", feb.End())
	}
	if !feb.Contains(time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)) {
		t.Fatalf("leap day should be inside february")
	}
	if feb.Contains(feb.End()) {
		t.Fatalf("end bound must be exclusive")
	}
}

func TestNewPeriod(t *testing.T) {
	if _, err := NewPeriod(2024, 13); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for month 13, got %v", err)
	}
	if _, err := NewPeriod(0, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for year 0, got %v", err)
	}
	p, err := NewPeriod(2024, 7)
	if err != nil || p.Month != time.July {
		t.Fatalf("unexpected %v %v", p, err)
	}
}

func TestOverflowErrorShortfall(t *testing.T) {
	err := &OverflowError{
		Scope:        ScopeMainCategory,
		MainCategory: Needs,
		Allowed:      Cents(400000),
		Requested:    Cents(450000),
	}
	if err.Shortfall().Cents != 50000 {
		t.Fatalf("shortfall = %d", err.Shortfall().Cents)
	}
	if !errors.Is(err, ErrOverflow) || errors.Is(err, ErrValidation) {
		t.Fatalf("overflow kind mismatch")
	}
	want := "you only have 4000.00 left to assign in Needs (requested 4500.00, short by 500.00)"
	if err.Error() != want {
		t.Fatalf("message = %q", err.Error())
	}
}
