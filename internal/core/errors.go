package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every typed error below matches exactly one of them with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrOverflow    = errors.New("allocation overflow")
	ErrNotFound    = errors.New("not found")
	ErrConsistency = errors.New("ledger consistency violated")
)

var ErrInvalidAmount = &ValidationError{Field: "amount", Reason: "must be a valid decimal amount"}

// ValidationError reports malformed input: a negative amount, a bad ratio set,
// a blank name, an unknown main category.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// OverflowScope names the limit an OverflowError was raised against.
type OverflowScope string

const (
	ScopeMainCategory OverflowScope = "main_category"
	ScopePool         OverflowScope = "pool"
	ScopeSpending     OverflowScope = "spending"
)

// OverflowError is returned when an assignment or a spend would break a limit.
// Allowed is the most that could have been requested; Requested what was asked.
type OverflowError struct {
	Scope        OverflowScope
	MainCategory MainCategory
	Period       Period
	Limit        Money
	Committed    Money
	Allowed      Money
	Requested    Money
}

// Shortfall is how much the request exceeds what is allowed.
func (e *OverflowError) Shortfall() Money { return e.Requested.Sub(e.Allowed) }

func (e *OverflowError) Error() string {
	switch e.Scope {
	case ScopeMainCategory:
		return fmt.Sprintf("you only have %s left to assign in %s (requested %s, short by %s)",
			e.Allowed, e.MainCategory.Label(), e.Requested, e.Shortfall())
	case ScopeSpending:
		return fmt.Sprintf("only %s available in this category for %s (requested %s)",
			e.Allowed, e.Period, e.Requested)
	default:
		return fmt.Sprintf("only %s of money to assign left for %s (requested %s)",
			e.Allowed, e.Period, e.Requested)
	}
}

func (e *OverflowError) Is(target error) bool { return target == ErrOverflow }

// NotFoundError reports a missing or foreign entity. Ownership failures are
// reported the same way so callers cannot probe other users' plans.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConsistencyError signals a defect: stored state that breaks a ledger invariant.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string { return "ledger inconsistency: " + e.Reason }

func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistency }
