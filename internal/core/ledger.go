package core

import (
	"strings"
	"time"
)

const DefaultCategoryIcon = "bx-category"

// BudgetCategory is a user-defined category under one main category.
// AssignedMirror and SpentMirror are legacy copies of the current month's
// MonthlyBudget row; the row is authoritative.
type BudgetCategory struct {
	ID             int64        `json:"id"`
	PlanID         int64        `json:"plan_id"`
	Name           string       `json:"name"`
	Main           MainCategory `json:"main_category"`
	Icon           string       `json:"icon"`
	AssignedMirror Money        `json:"assigned_amount"`
	SpentMirror    Money        `json:"spent_amount"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (c BudgetCategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Invalid("name", "category name cannot be blank")
	}
	if !c.Main.Valid() {
		return Invalid("main_category", "unknown main category %q", string(c.Main))
	}
	return nil
}

// MonthlyBudget is the per-month state of one category.
type MonthlyBudget struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Period     Period `json:"period"`
	Assigned   Money  `json:"assigned"`
	Spent      Money  `json:"spent"`
}

func (b MonthlyBudget) Available() Money { return b.Assigned.Sub(b.Spent) }

// MonthlyRollover is the frozen leftover of a month, carried into the next.
type MonthlyRollover struct {
	ID        int64     `json:"id"`
	PlanID    int64     `json:"plan_id"`
	Period    Period    `json:"period"`
	Amount    Money     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// AdditionalIncome is ad-hoc money received in a month.
type AdditionalIncome struct {
	ID          int64     `json:"id"`
	PlanID      int64     `json:"plan_id"`
	Period      Period    `json:"period"`
	Amount      Money     `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// SourceType records where a transaction came from.
type SourceType string

const (
	SourceManual  SourceType = "manual"
	SourceReceipt SourceType = "receipt"
	SourceBank    SourceType = "bank"
)

func (s SourceType) Valid() bool {
	return s == SourceManual || s == SourceReceipt || s == SourceBank
}

// Transaction is a spend. Amount is stored negative.
type Transaction struct {
	ID            int64      `json:"id"`
	PlanID        int64      `json:"plan_id"`
	CategoryID    int64      `json:"category_id"`
	PayeeID       int64      `json:"payee_id,omitempty"`
	Description   string     `json:"description"`
	Amount        Money      `json:"amount"`
	Date          time.Time  `json:"transaction_date"`
	Source        SourceType `json:"source_type"`
	BankReference string     `json:"bank_reference,omitempty"`
	Notes         string     `json:"user_notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Period is the month the transaction counts against.
func (t Transaction) Period() Period { return PeriodOf(t.Date) }

func (t Transaction) Validate() error {
	if !t.Amount.IsNegative() {
		return &ConsistencyError{Reason: "transactions must be stored with a negative amount"}
	}
	if t.CategoryID <= 0 {
		return Invalid("category_id", "is required")
	}
	if t.Date.IsZero() {
		return Invalid("transaction_date", "is required")
	}
	if !t.Source.Valid() {
		return Invalid("source_type", "unknown source %q", string(t.Source))
	}
	return nil
}

// Payee is a named counterparty, unique per plan ignoring case.
type Payee struct {
	ID     int64  `json:"id"`
	PlanID int64  `json:"plan_id"`
	Name   string `json:"name"`
}

// CategorizationSuggestion is the intake shape produced by the receipt
// categorization collaborator.
type CategorizationSuggestion struct {
	Vendor       string       `json:"vendor"`
	Amount       Money        `json:"amount"`
	Date         time.Time    `json:"date"`
	MainCategory MainCategory `json:"main_category"`
	Subcategory  string       `json:"subcategory"`
	Notes        string       `json:"notes,omitempty"`
}

func (s CategorizationSuggestion) Validate() error {
	if !s.Amount.IsPositive() {
		return Invalid("amount", "must be greater than zero")
	}
	if !s.MainCategory.Valid() {
		return Invalid("main_category", "unknown main category %q", string(s.MainCategory))
	}
	if strings.TrimSpace(s.Subcategory) == "" {
		return Invalid("subcategory", "is required")
	}
	if s.Date.IsZero() {
		return Invalid("date", "is required")
	}
	return nil
}
