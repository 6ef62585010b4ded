package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgeting/internal/core"
)

// MonthCloseProcessor freezes every plan's leftovers once a month is over,
// so that next month's rollover is read back instead of recomputed.
type MonthCloseProcessor struct {
	ledger *LedgerService
}

func NewMonthCloseProcessor(ledger *LedgerService) *MonthCloseProcessor {
	return &MonthCloseProcessor{ledger: ledger}
}

// CloseDueMonths freezes, for every plan, the leftovers of all months before
// the month containing now. It returns the number of plans processed.
// A failing plan is logged and skipped.
func (p *MonthCloseProcessor) CloseDueMonths(ctx context.Context, now time.Time) (int, error) {
	if p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	plans, err := p.ledger.ListAllPlans(ctx)
	if err != nil {
		return 0, fmt.Errorf("list plans: %w", err)
	}

	current := core.PeriodOf(now)
	slog.InfoContext(ctx, "Closing months", "plans", len(plans), "current_period", current.String())

	processed := 0
	for _, plan := range plans {
		if !current.After(plan.Start) {
			continue
		}
		carry, err := p.ledger.CloseMonths(ctx, plan.ID, current)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to close months for plan", "plan_id", plan.ID, "error", err)
			continue
		}
		processed++
		slog.InfoContext(ctx, "Months closed",
			"plan_id", plan.ID, "through", current.Prev().String(), "rollover_cents", carry.Cents)
	}

	slog.InfoContext(ctx, "Month close complete", "processed", processed, "total_checked", len(plans))
	return processed, nil
}
