package storage

import (
	"context"
	"fmt"
	"time"

	"budgeting/internal/core"
)

const monthlyColumns = `mb.id, mb.category_id, mb.year, mb.month, mb.assigned_cents, mb.spent_cents`

func scanMonthly(row scanner) (core.MonthlyBudget, error) {
	var (
		b               core.MonthlyBudget
		year, month     int
		assigned, spent int64
	)
	if err := row.Scan(&b.ID, &b.CategoryID, &year, &month, &assigned, &spent); err != nil {
		return core.MonthlyBudget{}, err
	}
	b.Period = core.Period{Year: year, Month: time.Month(month)}
	b.Assigned = core.Cents(assigned)
	b.Spent = core.Cents(spent)
	return b, nil
}

// EnsureMonthlyBudget returns the (category, period) row, creating it with
// assigned = spent = 0 when absent. Concurrent callers converge on one row.
func (q *Queries) EnsureMonthlyBudget(ctx context.Context, categoryID int64, p core.Period) (core.MonthlyBudget, bool, error) {
	y, m := periodArgs(p)
	return ensureRow(ctx, q.db,
		`INSERT INTO monthly_budgets (category_id, year, month, assigned_cents, spent_cents)
		 VALUES (?, ?, ?, 0, 0)
		 ON CONFLICT (category_id, year, month) DO NOTHING`,
		[]any{categoryID, y, m},
		func(ctx context.Context) (core.MonthlyBudget, error) {
			return q.GetMonthlyBudget(ctx, categoryID, p)
		})
}

func (q *Queries) GetMonthlyBudget(ctx context.Context, categoryID int64, p core.Period) (core.MonthlyBudget, error) {
	y, m := periodArgs(p)
	row := q.db.QueryRowContext(ctx,
		`SELECT `+monthlyColumns+` FROM monthly_budgets mb
		 WHERE mb.category_id = ? AND mb.year = ? AND mb.month = ?`, categoryID, y, m)
	b, err := scanMonthly(row)
	if err != nil {
		return core.MonthlyBudget{}, notFound(err, "monthly budget for category", categoryID)
	}
	return b, nil
}

// ListMonthlyBudgets returns the plan's existing rows for p.
func (q *Queries) ListMonthlyBudgets(ctx context.Context, planID int64, p core.Period) ([]core.MonthlyBudget, error) {
	y, m := periodArgs(p)
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+monthlyColumns+` FROM monthly_budgets mb
		 JOIN budget_categories c ON c.id = mb.category_id
		 WHERE c.plan_id = ? AND mb.year = ? AND mb.month = ?
		 ORDER BY mb.category_id`, planID, y, m)
	if err != nil {
		return nil, fmt.Errorf("list monthly budgets: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyBudget
	for rows.Next() {
		b, err := scanMonthly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) SetMonthlyAssigned(ctx context.Context, id int64, amount core.Money) error {
	return q.execOne(ctx, "monthly budget", id,
		`UPDATE monthly_budgets SET assigned_cents = ? WHERE id = ?`, amount.Cents, id)
}

func (q *Queries) SetMonthlySpent(ctx context.Context, id int64, amount core.Money) error {
	return q.execOne(ctx, "monthly budget", id,
		`UPDATE monthly_budgets SET spent_cents = ? WHERE id = ?`, amount.Cents, id)
}

// SumAssignedInMain sums assignments of main's categories in p, skipping excludeCategoryID.
func (q *Queries) SumAssignedInMain(ctx context.Context, planID int64, main core.MainCategory, p core.Period, excludeCategoryID int64) (core.Money, error) {
	y, m := periodArgs(p)
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(mb.assigned_cents), 0) FROM monthly_budgets mb
		 JOIN budget_categories c ON c.id = mb.category_id
		 WHERE c.plan_id = ? AND c.main_category = ? AND mb.year = ? AND mb.month = ? AND mb.category_id <> ?`,
		planID, string(main), y, m, excludeCategoryID).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum assigned in %s: %w", main, err)
	}
	return core.Cents(total), nil
}

// SumAssignedInPeriod sums every assignment of the plan in p, skipping excludeCategoryID.
func (q *Queries) SumAssignedInPeriod(ctx context.Context, planID int64, p core.Period, excludeCategoryID int64) (core.Money, error) {
	y, m := periodArgs(p)
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(mb.assigned_cents), 0) FROM monthly_budgets mb
		 JOIN budget_categories c ON c.id = mb.category_id
		 WHERE c.plan_id = ? AND mb.year = ? AND mb.month = ? AND mb.category_id <> ?`,
		planID, y, m, excludeCategoryID).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum assigned: %w", err)
	}
	return core.Cents(total), nil
}

// AssignedTotal is the assignment sum of one bucket in one month.
type AssignedTotal struct {
	Period core.Period
	Main   core.MainCategory
	Total  core.Money
}

// AssignedTotals groups every month's assignments of the plan by bucket.
func (q *Queries) AssignedTotals(ctx context.Context, planID int64) ([]AssignedTotal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT mb.year, mb.month, c.main_category, SUM(mb.assigned_cents)
		 FROM monthly_budgets mb
		 JOIN budget_categories c ON c.id = mb.category_id
		 WHERE c.plan_id = ?
		 GROUP BY mb.year, mb.month, c.main_category
		 HAVING SUM(mb.assigned_cents) > 0
		 ORDER BY mb.year, mb.month`, planID)
	if err != nil {
		return nil, fmt.Errorf("assigned totals: %w", err)
	}
	defer rows.Close()

	var out []AssignedTotal
	for rows.Next() {
		var (
			t           AssignedTotal
			year, month int
			main        string
			total       int64
		)
		if err := rows.Scan(&year, &month, &main, &total); err != nil {
			return nil, err
		}
		t.Period = core.Period{Year: year, Month: time.Month(month)}
		t.Main = core.MainCategory(main)
		t.Total = core.Cents(total)
		out = append(out, t)
	}
	return out, rows.Err()
}
