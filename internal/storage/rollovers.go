package storage

import (
	"context"
	"fmt"
	"time"

	"budgeting/internal/core"
)

func scanRollover(row scanner) (core.MonthlyRollover, error) {
	var (
		r           core.MonthlyRollover
		year, month int
		amount      int64
		createdAt   string
	)
	if err := row.Scan(&r.ID, &r.PlanID, &year, &month, &amount, &createdAt); err != nil {
		return core.MonthlyRollover{}, err
	}
	r.Period = core.Period{Year: year, Month: time.Month(month)}
	r.Amount = core.Cents(amount)
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

// GetRollover returns the frozen leftover of p, NotFound when not frozen yet.
func (q *Queries) GetRollover(ctx context.Context, planID int64, p core.Period) (core.MonthlyRollover, error) {
	y, m := periodArgs(p)
	row := q.db.QueryRowContext(ctx,
		`SELECT id, plan_id, year, month, amount_cents, created_at FROM monthly_rollovers
		 WHERE plan_id = ? AND year = ? AND month = ?`, planID, y, m)
	r, err := scanRollover(row)
	if err != nil {
		return core.MonthlyRollover{}, notFound(err, "rollover", p.String())
	}
	return r, nil
}

// FreezeRollover stores the leftover of p unless one is already stored, and
// returns the stored row. An existing row is never overwritten.
func (q *Queries) FreezeRollover(ctx context.Context, planID int64, p core.Period, amount core.Money, now time.Time) (core.MonthlyRollover, bool, error) {
	y, m := periodArgs(p)
	return ensureRow(ctx, q.db,
		`INSERT INTO monthly_rollovers (plan_id, year, month, amount_cents, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (plan_id, year, month) DO NOTHING`,
		[]any{planID, y, m, amount.Cents, formatTime(now)},
		func(ctx context.Context) (core.MonthlyRollover, error) {
			return q.GetRollover(ctx, planID, p)
		})
}

// LatestRolloverBefore returns the most recent frozen month strictly before p.
func (q *Queries) LatestRolloverBefore(ctx context.Context, planID int64, p core.Period) (core.MonthlyRollover, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, plan_id, year, month, amount_cents, created_at FROM monthly_rollovers
		 WHERE plan_id = ? AND (year * 12 + month - 1) < ?
		 ORDER BY year DESC, month DESC LIMIT 1`, planID, p.Index())
	r, err := scanRollover(row)
	if err != nil {
		return core.MonthlyRollover{}, notFound(err, "rollover before", p.String())
	}
	return r, nil
}

// DeleteRolloversFrom drops frozen leftovers of p and every later month.
// Called when a mutation changes an input of those leftovers.
func (q *Queries) DeleteRolloversFrom(ctx context.Context, planID int64, p core.Period) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM monthly_rollovers WHERE plan_id = ? AND (year * 12 + month - 1) >= ?`,
		planID, p.Index())
	if err != nil {
		return 0, fmt.Errorf("delete rollovers: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) ListRollovers(ctx context.Context, planID int64) ([]core.MonthlyRollover, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, plan_id, year, month, amount_cents, created_at FROM monthly_rollovers
		 WHERE plan_id = ? ORDER BY year, month`, planID)
	if err != nil {
		return nil, fmt.Errorf("list rollovers: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyRollover
	for rows.Next() {
		r, err := scanRollover(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
