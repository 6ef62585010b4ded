package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"budgeting/internal/core"
)

const planColumns = `id, user_id, name, monthly_income_cents, budget_pref, start_year, start_month, created_at`

func scanPlan(row scanner) (core.Plan, error) {
	var (
		p         core.Plan
		income    int64
		pref      string
		year, mon int
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &income, &pref, &year, &mon, &createdAt); err != nil {
		return core.Plan{}, err
	}
	if err := json.Unmarshal([]byte(pref), &p.Pref); err != nil {
		return core.Plan{}, &core.ConsistencyError{Reason: fmt.Sprintf("plan %d has unreadable budget preferences: %v", p.ID, err)}
	}
	p.MonthlyIncome = core.Cents(income)
	p.Start = core.Period{Year: year, Month: time.Month(mon)}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// CreatePlan inserts p and returns it with its ID.
func (q *Queries) CreatePlan(ctx context.Context, p core.Plan) (core.Plan, error) {
	pref, err := json.Marshal(p.Pref)
	if err != nil {
		return core.Plan{}, fmt.Errorf("encode budget preferences: %w", err)
	}
	y, m := periodArgs(p.Start)
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO plans (user_id, name, monthly_income_cents, budget_pref, start_year, start_month, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.MonthlyIncome.Cents, string(pref), y, m, formatTime(p.CreatedAt))
	if err != nil {
		return core.Plan{}, fmt.Errorf("insert plan: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return core.Plan{}, fmt.Errorf("plan id: %w", err)
	}
	return p, nil
}

func (q *Queries) GetPlan(ctx context.Context, id int64) (core.Plan, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if err != nil {
		return core.Plan{}, notFound(err, "plan", id)
	}
	return p, nil
}

func (q *Queries) ListPlansByUser(ctx context.Context, userID string) ([]core.Plan, error) {
	return q.listPlans(ctx, `SELECT `+planColumns+` FROM plans WHERE user_id = ? ORDER BY id`, userID)
}

// ListPlans returns every plan; used by the month-close job.
func (q *Queries) ListPlans(ctx context.Context) ([]core.Plan, error) {
	return q.listPlans(ctx, `SELECT `+planColumns+` FROM plans ORDER BY id`)
}

func (q *Queries) listPlans(ctx context.Context, query string, args ...any) ([]core.Plan, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []core.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (q *Queries) UpdatePlanName(ctx context.Context, id int64, name string) error {
	return q.execOne(ctx, "plan", id, `UPDATE plans SET name = ? WHERE id = ?`, name, id)
}

func (q *Queries) UpdatePlanPref(ctx context.Context, id int64, pref core.BudgetPref) error {
	data, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("encode budget preferences: %w", err)
	}
	return q.execOne(ctx, "plan", id, `UPDATE plans SET budget_pref = ? WHERE id = ?`, string(data), id)
}

// SetActivePlan records planID as the user's single active plan.
func (q *Queries) SetActivePlan(ctx context.Context, userID string, planID int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (user_id, active_plan_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET active_plan_id = excluded.active_plan_id`,
		userID, planID, formatTime(now))
	if err != nil {
		return fmt.Errorf("set active plan: %w", err)
	}
	return nil
}

// ActivePlanID returns the user's active plan, NotFound when none is set.
func (q *Queries) ActivePlanID(ctx context.Context, userID string) (int64, error) {
	var id sql.NullInt64
	err := q.db.QueryRowContext(ctx, `SELECT active_plan_id FROM users WHERE user_id = ?`, userID).Scan(&id)
	if err != nil {
		return 0, notFound(err, "active plan for user", userID)
	}
	if !id.Valid {
		return 0, core.NotFound("active plan for user", userID)
	}
	return id.Int64, nil
}

// execOne runs a single-row update or delete, NotFound when nothing matched.
func (q *Queries) execOne(ctx context.Context, entity string, id any, query string, args ...any) error {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %v: %w", entity, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %v: rows affected: %w", entity, id, err)
	}
	if n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}
