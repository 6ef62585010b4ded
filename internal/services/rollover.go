package services

import (
	"context"
	"errors"
	"log/slog"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// rolloverInto returns the money carried into p: the leftover of p-1.
//
// The plan's first month carries nothing. Later months walk forward from the
// latest frozen leftover, computing and freezing each missing month on the
// way, so every month's leftover is derived once and then read back.
// frozen counts the rows this call stored.
func (s *LedgerService) rolloverInto(ctx context.Context, q *storage.Queries, plan core.Plan, p core.Period) (carry core.Money, frozen int, err error) {
	if !p.After(plan.Start) {
		return core.Money{}, 0, nil
	}
	last := p.Prev()
	from := plan.Start

	latest, err := q.LatestRolloverBefore(ctx, plan.ID, p)
	switch {
	case err == nil && !latest.Period.Before(plan.Start):
		if latest.Period == last {
			return latest.Amount, 0, nil
		}
		carry = latest.Amount
		from = latest.Period.Next()
	case err != nil && !errors.Is(err, core.ErrNotFound):
		return core.Money{}, 0, err
	}

	for m := from; !m.After(last); m = m.Next() {
		left, err := s.leftover(ctx, q, plan, m, carry)
		if err != nil {
			return core.Money{}, frozen, err
		}
		row, created, err := q.FreezeRollover(ctx, plan.ID, m, left, s.now())
		if err != nil {
			return core.Money{}, frozen, err
		}
		if created {
			frozen++
			slog.DebugContext(ctx, "Rollover frozen",
				"plan_id", plan.ID, "period", m.String(), "amount_cents", row.Amount.Cents)
		}
		carry = row.Amount
	}
	return carry, frozen, nil
}

// leftover is what month p leaves behind: everything available to assign
// that was not spent.
//
//	leftover(p) = income + additional_income(p) + rollover(p) - spent(p)
//
// Money assigned but not spent and money never assigned both carry forward;
// an overspent month carries a negative amount.
func (s *LedgerService) leftover(ctx context.Context, q *storage.Queries, plan core.Plan, p core.Period, carryIn core.Money) (core.Money, error) {
	additional, err := q.SumIncome(ctx, plan.ID, p)
	if err != nil {
		return core.Money{}, err
	}
	spent, err := q.SpentInPeriod(ctx, plan.ID, p)
	if err != nil {
		return core.Money{}, err
	}
	return plan.MonthlyIncome.Add(additional).Add(carryIn).Sub(spent), nil
}

// moneyToAssign is income + additional income + rollover for p.
func (s *LedgerService) moneyToAssign(ctx context.Context, q *storage.Queries, plan core.Plan, p core.Period) (core.Money, error) {
	additional, err := q.SumIncome(ctx, plan.ID, p)
	if err != nil {
		return core.Money{}, err
	}
	rollover, _, err := s.rolloverInto(ctx, q, plan, p)
	if err != nil {
		return core.Money{}, err
	}
	return plan.MonthlyIncome.Add(additional).Add(rollover), nil
}

// invalidateFrom discards frozen leftovers of p and later months after a
// mutation changed one of their inputs. They are recomputed with the same
// formula on the next read, inside the same transaction discipline.
func (s *LedgerService) invalidateFrom(ctx context.Context, q *storage.Queries, plan core.Plan, p core.Period) error {
	n, err := q.DeleteRolloversFrom(ctx, plan.ID, p)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Frozen rollovers invalidated",
			"plan_id", plan.ID, "from", p.String(), "count", n)
	}
	return nil
}

// CloseMonths freezes every leftover of the plan up to the month before
// upTo and returns the amount carried into upTo.
func (s *LedgerService) CloseMonths(ctx context.Context, planID int64, upTo core.Period) (core.Money, error) {
	var carry core.Money
	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		var (
			frozen int
			err    error
		)
		carry, frozen, err = s.rolloverInto(ctx, q, plan, upTo)
		if err != nil {
			return err
		}
		if frozen > 0 {
			emit(core.EventMonthClosed, upTo.Prev())
		}
		return nil
	})
	return carry, err
}

// Rollovers lists the frozen leftovers of a plan.
func (s *LedgerService) Rollovers(ctx context.Context, planID int64) ([]core.MonthlyRollover, error) {
	return s.store.Queries().ListRollovers(ctx, planID)
}
