package storage

import (
	"context"
	"fmt"
	"time"

	"budgeting/internal/core"
)

func scanIncome(row scanner) (core.AdditionalIncome, error) {
	var (
		in          core.AdditionalIncome
		year, month int
		amount      int64
		createdAt   string
	)
	if err := row.Scan(&in.ID, &in.PlanID, &year, &month, &amount, &in.Description, &createdAt); err != nil {
		return core.AdditionalIncome{}, err
	}
	in.Period = core.Period{Year: year, Month: time.Month(month)}
	in.Amount = core.Cents(amount)
	in.CreatedAt = parseTime(createdAt)
	return in, nil
}

func (q *Queries) CreateIncome(ctx context.Context, in core.AdditionalIncome) (core.AdditionalIncome, error) {
	y, m := periodArgs(in.Period)
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO additional_incomes (plan_id, year, month, amount_cents, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.PlanID, y, m, in.Amount.Cents, in.Description, formatTime(in.CreatedAt))
	if err != nil {
		return core.AdditionalIncome{}, fmt.Errorf("insert additional income: %w", err)
	}
	if in.ID, err = res.LastInsertId(); err != nil {
		return core.AdditionalIncome{}, fmt.Errorf("additional income id: %w", err)
	}
	return in, nil
}

func (q *Queries) GetIncome(ctx context.Context, planID, id int64) (core.AdditionalIncome, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, plan_id, year, month, amount_cents, description, created_at
		 FROM additional_incomes WHERE id = ? AND plan_id = ?`, id, planID)
	in, err := scanIncome(row)
	if err != nil {
		return core.AdditionalIncome{}, notFound(err, "additional income", id)
	}
	return in, nil
}

func (q *Queries) DeleteIncome(ctx context.Context, planID, id int64) error {
	return q.execOne(ctx, "additional income", id,
		`DELETE FROM additional_incomes WHERE id = ? AND plan_id = ?`, id, planID)
}

func (q *Queries) ListIncome(ctx context.Context, planID int64, p core.Period) ([]core.AdditionalIncome, error) {
	y, m := periodArgs(p)
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, plan_id, year, month, amount_cents, description, created_at
		 FROM additional_incomes WHERE plan_id = ? AND year = ? AND month = ? ORDER BY id`, planID, y, m)
	if err != nil {
		return nil, fmt.Errorf("list additional income: %w", err)
	}
	defer rows.Close()

	var out []core.AdditionalIncome
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (q *Queries) SumIncome(ctx context.Context, planID int64, p core.Period) (core.Money, error) {
	y, m := periodArgs(p)
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM additional_incomes
		 WHERE plan_id = ? AND year = ? AND month = ?`, planID, y, m).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum additional income: %w", err)
	}
	return core.Cents(total), nil
}
