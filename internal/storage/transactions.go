package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budgeting/internal/core"
)

const transactionColumns = `id, plan_id, category_id, payee_id, description, amount_cents, transaction_date,
	source_type, bank_reference, user_notes, created_at`

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t                 core.Transaction
		payee             sql.NullInt64
		amount            int64
		date, src, create string
	)
	err := row.Scan(&t.ID, &t.PlanID, &t.CategoryID, &payee, &t.Description, &amount, &date,
		&src, &t.BankReference, &t.Notes, &create)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = parseDate(date); err != nil {
		return core.Transaction{}, err
	}
	if payee.Valid {
		t.PayeeID = payee.Int64
	}
	t.Amount = core.Cents(amount)
	t.Source = core.SourceType(src)
	t.CreatedAt = parseTime(create)
	return t, nil
}

// CreateTransaction inserts t. The amount must already be negative.
func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var payee sql.NullInt64
	if t.PayeeID > 0 {
		payee = sql.NullInt64{Int64: t.PayeeID, Valid: true}
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (plan_id, category_id, payee_id, description, amount_cents, transaction_date,
		                           source_type, bank_reference, user_notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.PlanID, t.CategoryID, payee, t.Description, t.Amount.Cents, formatDate(t.Date),
		string(t.Source), t.BankReference, t.Notes, formatTime(t.CreatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	t.Date = dateOnly(t.Date)
	return t, nil
}

func (q *Queries) GetTransaction(ctx context.Context, planID, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND plan_id = ?`, id, planID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}
	return t, nil
}

func (q *Queries) DeleteTransaction(ctx context.Context, planID, id int64) error {
	return q.execOne(ctx, "transaction", id,
		`DELETE FROM transactions WHERE id = ? AND plan_id = ?`, id, planID)
}

// ListTransactions returns the plan's transactions dated in p, newest first.
func (q *Queries) ListTransactions(ctx context.Context, planID int64, p core.Period) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE plan_id = ? AND transaction_date >= ? AND transaction_date < ?
		 ORDER BY transaction_date DESC, id DESC`,
		planID, formatDate(p.Start()), formatDate(p.End()))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SpentInCategory is the absolute sum of the category's transactions dated in p.
func (q *Queries) SpentInCategory(ctx context.Context, categoryID int64, p core.Period) (core.Money, error) {
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(-amount_cents), 0) FROM transactions
		 WHERE category_id = ? AND transaction_date >= ? AND transaction_date < ?`,
		categoryID, formatDate(p.Start()), formatDate(p.End())).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum spent for category %d: %w", categoryID, err)
	}
	return core.Cents(total), nil
}

// SpentByCategory maps each category of the plan with spending in p to its spent amount.
func (q *Queries) SpentByCategory(ctx context.Context, planID int64, p core.Period) (map[int64]core.Money, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT category_id, SUM(-amount_cents) FROM transactions
		 WHERE plan_id = ? AND transaction_date >= ? AND transaction_date < ?
		 GROUP BY category_id`,
		planID, formatDate(p.Start()), formatDate(p.End()))
	if err != nil {
		return nil, fmt.Errorf("sum spent by category: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]core.Money)
	for rows.Next() {
		var id, total int64
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		out[id] = core.Cents(total)
	}
	return out, rows.Err()
}

// SpentInPeriod is the absolute sum of every transaction of the plan dated in p.
func (q *Queries) SpentInPeriod(ctx context.Context, planID int64, p core.Period) (core.Money, error) {
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(-amount_cents), 0) FROM transactions
		 WHERE plan_id = ? AND transaction_date >= ? AND transaction_date < ?`,
		planID, formatDate(p.Start()), formatDate(p.End())).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum spent: %w", err)
	}
	return core.Cents(total), nil
}

// EarliestTransactionPeriod returns the month of the category's oldest
// transaction; ok is false when the category has none.
func (q *Queries) EarliestTransactionPeriod(ctx context.Context, categoryID int64) (core.Period, bool, error) {
	var date sql.NullString
	err := q.db.QueryRowContext(ctx,
		`SELECT MIN(transaction_date) FROM transactions WHERE category_id = ?`, categoryID).Scan(&date)
	if err != nil {
		return core.Period{}, false, fmt.Errorf("earliest transaction: %w", err)
	}
	if !date.Valid {
		return core.Period{}, false, nil
	}
	d, err := parseDate(date.String)
	if err != nil {
		return core.Period{}, false, err
	}
	return core.PeriodOf(d), true, nil
}
