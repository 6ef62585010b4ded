package services

import (
	"context"
	"log/slog"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// ensureMonth returns the category's row for p, creating a fresh one
// (nothing assigned, nothing spent) the first time the month is touched.
func (s *LedgerService) ensureMonth(ctx context.Context, q *storage.Queries, cat core.BudgetCategory, p core.Period) (core.MonthlyBudget, error) {
	row, created, err := q.EnsureMonthlyBudget(ctx, cat.ID, p)
	if err != nil {
		return core.MonthlyBudget{}, err
	}
	if created {
		slog.DebugContext(ctx, "Monthly budget row created",
			"plan_id", cat.PlanID, "category_id", cat.ID, "period", p.String())
	}
	return row, nil
}

// recomputeSpent re-derives the category's spent amount for p from its
// transactions and persists it on the monthly row (and on the category
// mirror when p is the current month).
func (s *LedgerService) recomputeSpent(ctx context.Context, q *storage.Queries, cat core.BudgetCategory, p core.Period) (core.MonthlyBudget, error) {
	row, err := s.ensureMonth(ctx, q, cat, p)
	if err != nil {
		return core.MonthlyBudget{}, err
	}
	spent, err := q.SpentInCategory(ctx, cat.ID, p)
	if err != nil {
		return core.MonthlyBudget{}, err
	}
	if spent != row.Spent {
		if err := q.SetMonthlySpent(ctx, row.ID, spent); err != nil {
			return core.MonthlyBudget{}, err
		}
		row.Spent = spent
	}
	if err := s.syncMirror(ctx, q, cat, row); err != nil {
		return core.MonthlyBudget{}, err
	}
	return row, nil
}

// syncMirror copies the current month's row onto the category's legacy fields.
func (s *LedgerService) syncMirror(ctx context.Context, q *storage.Queries, cat core.BudgetCategory, row core.MonthlyBudget) error {
	if row.Period != s.currentPeriod() {
		return nil
	}
	if cat.AssignedMirror == row.Assigned && cat.SpentMirror == row.Spent {
		return nil
	}
	return q.SetCategoryMirror(ctx, cat.ID, row.Assigned, row.Spent)
}
