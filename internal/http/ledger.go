package http

import (
	"context"

	"budgeting/internal/core"
	"budgeting/internal/services"
)

// Ledger is the engine surface the API exposes. *services.LedgerService
// implements it.
type Ledger interface {
	Ping(ctx context.Context) error

	CreatePlan(ctx context.Context, userID string, in services.PlanInput) (core.Plan, error)
	PlanForUser(ctx context.Context, userID string, planID int64) (core.Plan, error)
	ListPlans(ctx context.Context, userID string) ([]core.Plan, error)
	ActivePlan(ctx context.Context, userID string) (core.Plan, error)
	SwitchPlan(ctx context.Context, userID string, planID int64) (core.Plan, error)
	RenamePlan(ctx context.Context, planID int64, name string) (core.Plan, error)
	UpdateRatios(ctx context.Context, planID int64, ratios core.Ratios) (core.Plan, error)
	AddSubcategory(ctx context.Context, planID int64, main core.MainCategory, name string) (core.Plan, error)
	RemoveSubcategory(ctx context.Context, planID int64, main core.MainCategory, name string) (core.Plan, error)

	CreateCategory(ctx context.Context, planID int64, name string, main core.MainCategory, icon string) (core.BudgetCategory, error)
	DeleteCategory(ctx context.Context, planID, categoryID int64) error
	ListCategories(ctx context.Context, planID int64) ([]core.BudgetCategory, error)

	MonthSummary(ctx context.Context, planID int64, p core.Period) (core.MonthSummary, error)
	AssignAmount(ctx context.Context, planID, categoryID int64, p core.Period, amount core.Money) (core.MonthSummary, error)
	Rollovers(ctx context.Context, planID int64) ([]core.MonthlyRollover, error)

	AddTransaction(ctx context.Context, planID int64, in services.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, planID, transactionID int64) error
	ListTransactions(ctx context.Context, planID int64, p core.Period) ([]core.Transaction, error)
	ListPayees(ctx context.Context, planID int64) ([]core.Payee, error)
	ApplySuggestion(ctx context.Context, planID int64, sg core.CategorizationSuggestion) (core.Transaction, error)

	AddIncome(ctx context.Context, planID int64, p core.Period, amount core.Money, description string) (core.AdditionalIncome, error)
	DeleteIncome(ctx context.Context, planID, incomeID int64) error
	ListIncome(ctx context.Context, planID int64, p core.Period) ([]core.AdditionalIncome, error)
}

var _ Ledger = (*services.LedgerService)(nil)
