package services

import (
	"context"
	"log/slog"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// validateAssignment checks that setting cat's assignment for p to amount
// keeps the month within its limits:
//
//   - the sum over cat's main category stays within
//     floor(income × ratio / 100);
//   - the sum over every category stays within money to assign.
//
// Lowering an assignment is always accepted, since it only moves the month
// towards compliance.
func (s *LedgerService) validateAssignment(ctx context.Context, q *storage.Queries, plan core.Plan, cat core.BudgetCategory, p core.Period, current, amount core.Money) error {
	if amount.IsNegative() {
		return core.Invalid("amount", "cannot be negative")
	}
	if amount.Cents <= current.Cents {
		return nil
	}

	ceiling := plan.Ceiling(cat.Main)
	others, err := q.SumAssignedInMain(ctx, plan.ID, cat.Main, p, cat.ID)
	if err != nil {
		return err
	}
	if others.Add(amount).Cents > ceiling.Cents {
		return &core.OverflowError{
			Scope:        core.ScopeMainCategory,
			MainCategory: cat.Main,
			Period:       p,
			Limit:        ceiling,
			Committed:    others,
			Allowed:      ceiling.Sub(others),
			Requested:    amount,
		}
	}

	pool, err := s.moneyToAssign(ctx, q, plan, p)
	if err != nil {
		return err
	}
	assigned, err := q.SumAssignedInPeriod(ctx, plan.ID, p, cat.ID)
	if err != nil {
		return err
	}
	if assigned.Add(amount).Cents > pool.Cents {
		return &core.OverflowError{
			Scope:     core.ScopePool,
			Period:    p,
			Limit:     pool,
			Committed: assigned,
			Allowed:   pool.Sub(assigned),
			Requested: amount,
		}
	}
	return nil
}

// AssignAmount sets a category's assignment for a month and returns the
// refreshed month summary. Rejected assignments leave no trace.
func (s *LedgerService) AssignAmount(ctx context.Context, planID, categoryID int64, p core.Period, amount core.Money) (core.MonthSummary, error) {
	if amount.IsNegative() {
		return core.MonthSummary{}, core.Invalid("amount", "cannot be negative")
	}

	var summary core.MonthSummary
	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		if err := checkPeriod(plan, p); err != nil {
			return err
		}
		cat, err := q.GetCategory(ctx, plan.ID, categoryID)
		if err != nil {
			return err
		}
		row, err := s.ensureMonth(ctx, q, cat, p)
		if err != nil {
			return err
		}
		if err := s.validateAssignment(ctx, q, plan, cat, p, row.Assigned, amount); err != nil {
			return err
		}
		if err := q.SetMonthlyAssigned(ctx, row.ID, amount); err != nil {
			return err
		}
		row.Assigned = amount
		if err := s.syncMirror(ctx, q, cat, row); err != nil {
			return err
		}
		emit(core.EventAmountAssigned, p)

		summary, err = s.buildSummary(ctx, q, plan, p)
		return err
	})
	if err != nil {
		slog.WarnContext(ctx, "Assignment rejected",
			"plan_id", planID, "category_id", categoryID, "period", p.String(),
			"amount_cents", amount.Cents, "error", err)
		return core.MonthSummary{}, err
	}

	slog.InfoContext(ctx, "Amount assigned",
		"plan_id", planID, "category_id", categoryID, "period", p.String(), "amount_cents", amount.Cents)
	return summary, nil
}

// UpdateRatios replaces the plan's ratio set. The change is refused when a
// month's existing assignments would exceed a lowered ceiling.
func (s *LedgerService) UpdateRatios(ctx context.Context, planID int64, ratios core.Ratios) (core.Plan, error) {
	if err := ratios.Validate(); err != nil {
		return core.Plan{}, err
	}

	var updated core.Plan
	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		totals, err := q.AssignedTotals(ctx, plan.ID)
		if err != nil {
			return err
		}
		for _, t := range totals {
			ceiling := core.Ceiling(plan.MonthlyIncome, ratios.Of(t.Main))
			if t.Total.Cents > ceiling.Cents {
				return &core.OverflowError{
					Scope:        core.ScopeMainCategory,
					MainCategory: t.Main,
					Period:       t.Period,
					Limit:        ceiling,
					Committed:    t.Total,
					Allowed:      ceiling,
					Requested:    t.Total,
				}
			}
		}

		pref := plan.Pref.Clone()
		pref.Ratios = ratios
		if err := q.UpdatePlanPref(ctx, plan.ID, pref); err != nil {
			return err
		}
		plan.Pref = pref
		updated = plan
		emit(core.EventPlanUpdated, s.currentPeriod())
		return nil
	})
	if err != nil {
		return core.Plan{}, err
	}
	slog.InfoContext(ctx, "Plan ratios updated", "plan_id", planID)
	return updated, nil
}
