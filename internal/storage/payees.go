package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"budgeting/internal/core"
)

// EnsurePayee returns the plan's payee called name (ignoring case), creating it if needed.
func (q *Queries) EnsurePayee(ctx context.Context, planID int64, name string, now time.Time) (core.Payee, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Payee{}, false, core.Invalid("payee", "name cannot be blank")
	}
	return ensureRow(ctx, q.db,
		`INSERT INTO payees (plan_id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (plan_id, name) DO NOTHING`,
		[]any{planID, name, formatTime(now)},
		func(ctx context.Context) (core.Payee, error) {
			var p core.Payee
			err := q.db.QueryRowContext(ctx,
				`SELECT id, plan_id, name FROM payees WHERE plan_id = ? AND name = ?`, planID, name).
				Scan(&p.ID, &p.PlanID, &p.Name)
			if err != nil {
				return core.Payee{}, notFound(err, "payee", name)
			}
			return p, nil
		})
}

func (q *Queries) GetPayee(ctx context.Context, planID, id int64) (core.Payee, error) {
	var p core.Payee
	err := q.db.QueryRowContext(ctx,
		`SELECT id, plan_id, name FROM payees WHERE id = ? AND plan_id = ?`, id, planID).
		Scan(&p.ID, &p.PlanID, &p.Name)
	if err != nil {
		return core.Payee{}, notFound(err, "payee", id)
	}
	return p, nil
}

func (q *Queries) ListPayees(ctx context.Context, planID int64) ([]core.Payee, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, plan_id, name FROM payees WHERE plan_id = ? ORDER BY name`, planID)
	if err != nil {
		return nil, fmt.Errorf("list payees: %w", err)
	}
	defer rows.Close()

	var out []core.Payee
	for rows.Next() {
		var p core.Payee
		if err := rows.Scan(&p.ID, &p.PlanID, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
