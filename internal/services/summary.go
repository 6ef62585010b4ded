package services

import (
	"context"
	"log/slog"
	"sort"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

const topSpendingLimit = 5

// MonthSummary returns the plan's state for p, computed from the ledger on
// every call. Reading a month materializes its monthly rows and freezes the
// leftovers of earlier months.
func (s *LedgerService) MonthSummary(ctx context.Context, planID int64, p core.Period) (core.MonthSummary, error) {
	var summary core.MonthSummary
	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, _ emitFunc) error {
		if err := checkPeriod(plan, p); err != nil {
			return err
		}
		var err error
		summary, err = s.buildSummary(ctx, q, plan, p)
		return err
	})
	return summary, err
}

func (s *LedgerService) buildSummary(ctx context.Context, q *storage.Queries, plan core.Plan, p core.Period) (core.MonthSummary, error) {
	cats, err := q.ListCategories(ctx, plan.ID)
	if err != nil {
		return core.MonthSummary{}, err
	}
	spentBy, err := q.SpentByCategory(ctx, plan.ID, p)
	if err != nil {
		return core.MonthSummary{}, err
	}

	groups := make(map[core.MainCategory]*core.MainCategoryGroup, 3)
	for _, m := range core.MainCategories() {
		groups[m] = &core.MainCategoryGroup{
			Main:       m,
			Ratio:      plan.Pref.Ratios.Of(m),
			Ceiling:    plan.Ceiling(m),
			Categories: []core.CategoryLine{},
		}
	}

	var (
		lines                     []core.CategoryLine
		totalAssigned, totalSpent core.Money
	)
	for _, cat := range cats {
		row, err := s.ensureMonth(ctx, q, cat, p)
		if err != nil {
			return core.MonthSummary{}, err
		}
		spent := spentBy[cat.ID]
		if spent != row.Spent {
			slog.WarnContext(ctx, "Stored spent amount drifted from transactions, repairing",
				"plan_id", plan.ID, "category_id", cat.ID, "period", p.String(),
				"stored_cents", row.Spent.Cents, "actual_cents", spent.Cents)
			if err := q.SetMonthlySpent(ctx, row.ID, spent); err != nil {
				return core.MonthSummary{}, err
			}
			row.Spent = spent
		}
		if err := s.syncMirror(ctx, q, cat, row); err != nil {
			return core.MonthSummary{}, err
		}

		line := core.CategoryLine{
			CategoryID: cat.ID,
			Name:       cat.Name,
			Icon:       cat.Icon,
			Main:       cat.Main,
			Assigned:   row.Assigned,
			Spent:      row.Spent,
			Available:  row.Available(),
		}
		lines = append(lines, line)
		totalAssigned = totalAssigned.Add(row.Assigned)
		totalSpent = totalSpent.Add(row.Spent)

		g, ok := groups[cat.Main]
		if !ok {
			return core.MonthSummary{}, &core.ConsistencyError{Reason: "category with unknown main category " + string(cat.Main)}
		}
		g.Categories = append(g.Categories, line)
		g.Assigned = g.Assigned.Add(row.Assigned)
		g.Spent = g.Spent.Add(row.Spent)
	}

	additional, err := q.SumIncome(ctx, plan.ID, p)
	if err != nil {
		return core.MonthSummary{}, err
	}
	rollover, _, err := s.rolloverInto(ctx, q, plan, p)
	if err != nil {
		return core.MonthSummary{}, err
	}
	mta := plan.MonthlyIncome.Add(additional).Add(rollover)

	summary := core.MonthSummary{
		PlanID:                 plan.ID,
		PlanName:               plan.Name,
		Period:                 p,
		MonthlyIncome:          plan.MonthlyIncome,
		AdditionalIncome:       additional,
		Rollover:               rollover,
		MoneyToAssign:          mta,
		TotalAssigned:          totalAssigned,
		TotalSpent:             totalSpent,
		MoneyRemainingToAssign: mta.Sub(totalAssigned),
		TopSpending:            topSpending(lines, topSpendingLimit),
		CanGoPrev:              p.After(plan.Start),
		Prev:                   p.Prev(),
		Next:                   p.Next(),
	}
	for _, m := range core.MainCategories() {
		g := groups[m]
		g.Available = g.Assigned.Sub(g.Spent)
		g.Unassigned = g.Ceiling.Sub(g.Assigned)
		summary.Groups = append(summary.Groups, *g)
	}
	return summary, nil
}

// topSpending returns up to n categories with spending, largest first.
func topSpending(lines []core.CategoryLine, n int) []core.CategoryLine {
	out := make([]core.CategoryLine, 0, len(lines))
	for _, l := range lines {
		if l.Spent.IsPositive() {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Spent != out[j].Spent {
			return out[i].Spent.Cents > out[j].Spent.Cents
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
