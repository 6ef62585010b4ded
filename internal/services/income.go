package services

import (
	"context"
	"log/slog"
	"strings"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// AddIncome records ad-hoc income for a month. It raises that month's money
// to assign and is never distributed into categories.
func (s *LedgerService) AddIncome(ctx context.Context, planID int64, p core.Period, amount core.Money, description string) (core.AdditionalIncome, error) {
	if !amount.IsPositive() {
		return core.AdditionalIncome{}, core.Invalid("amount", "must be greater than zero")
	}
	description = strings.TrimSpace(description)
	if len(description) > maxDescriptionLength {
		return core.AdditionalIncome{}, core.Invalid("description", "must be at most %d characters", maxDescriptionLength)
	}

	var created core.AdditionalIncome
	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		if err := checkPeriod(plan, p); err != nil {
			return err
		}
		var err error
		created, err = q.CreateIncome(ctx, core.AdditionalIncome{
			PlanID:      plan.ID,
			Period:      p,
			Amount:      amount,
			Description: description,
			CreatedAt:   s.now(),
		})
		if err != nil {
			return err
		}
		if err := s.invalidateFrom(ctx, q, plan, p); err != nil {
			return err
		}
		emit(core.EventIncomeAdded, p)
		return nil
	})
	if err != nil {
		return core.AdditionalIncome{}, err
	}

	slog.InfoContext(ctx, "Additional income recorded",
		"plan_id", planID, "income_id", created.ID, "period", p.String(), "amount_cents", amount.Cents)
	return created, nil
}

// DeleteIncome removes an additional income entry.
func (s *LedgerService) DeleteIncome(ctx context.Context, planID, incomeID int64) error {
	return s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		in, err := q.GetIncome(ctx, plan.ID, incomeID)
		if err != nil {
			return err
		}
		if err := q.DeleteIncome(ctx, plan.ID, in.ID); err != nil {
			return err
		}
		if err := s.invalidateFrom(ctx, q, plan, in.Period); err != nil {
			return err
		}
		emit(core.EventIncomeDeleted, in.Period)
		return nil
	})
}

func (s *LedgerService) ListIncome(ctx context.Context, planID int64, p core.Period) ([]core.AdditionalIncome, error) {
	return s.store.Queries().ListIncome(ctx, planID, p)
}
