package storage

import (
	"context"
	"fmt"

	"budgeting/internal/core"
)

const categoryColumns = `id, plan_id, name, main_category, icon, assigned_cents, spent_cents, created_at`

func scanCategory(row scanner) (core.BudgetCategory, error) {
	var (
		c               core.BudgetCategory
		main, createdAt string
		assigned, spent int64
	)
	if err := row.Scan(&c.ID, &c.PlanID, &c.Name, &main, &c.Icon, &assigned, &spent, &createdAt); err != nil {
		return core.BudgetCategory{}, err
	}
	c.Main = core.MainCategory(main)
	c.AssignedMirror = core.Cents(assigned)
	c.SpentMirror = core.Cents(spent)
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// CreateCategory inserts c. Names are unique per plan ignoring case.
func (q *Queries) CreateCategory(ctx context.Context, c core.BudgetCategory) (core.BudgetCategory, error) {
	if c.Icon == "" {
		c.Icon = core.DefaultCategoryIcon
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO budget_categories (plan_id, name, main_category, icon, assigned_cents, spent_cents, created_at)
		 VALUES (?, ?, ?, ?, 0, 0, ?)`,
		c.PlanID, c.Name, string(c.Main), c.Icon, formatTime(c.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.BudgetCategory{}, core.Invalid("name", "category %q already exists in this plan", c.Name)
		}
		return core.BudgetCategory{}, fmt.Errorf("insert category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.BudgetCategory{}, fmt.Errorf("category id: %w", err)
	}
	return c, nil
}

// GetCategory returns a category of planID; categories of other plans are NotFound.
func (q *Queries) GetCategory(ctx context.Context, planID, id int64) (core.BudgetCategory, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM budget_categories WHERE id = ? AND plan_id = ?`, id, planID)
	c, err := scanCategory(row)
	if err != nil {
		return core.BudgetCategory{}, notFound(err, "category", id)
	}
	return c, nil
}

// FindCategory looks a category up by main category and name, ignoring case.
func (q *Queries) FindCategory(ctx context.Context, planID int64, main core.MainCategory, name string) (core.BudgetCategory, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM budget_categories
		 WHERE plan_id = ? AND main_category = ? AND name = ? COLLATE NOCASE`,
		planID, string(main), name)
	c, err := scanCategory(row)
	if err != nil {
		return core.BudgetCategory{}, notFound(err, "category", name)
	}
	return c, nil
}

func (q *Queries) ListCategories(ctx context.Context, planID int64) ([]core.BudgetCategory, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM budget_categories WHERE plan_id = ? ORDER BY id`, planID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetCategoryMirror writes the legacy assigned/spent copies on the category row.
func (q *Queries) SetCategoryMirror(ctx context.Context, id int64, assigned, spent core.Money) error {
	return q.execOne(ctx, "category", id,
		`UPDATE budget_categories SET assigned_cents = ?, spent_cents = ? WHERE id = ?`,
		assigned.Cents, spent.Cents, id)
}

// DeleteCategory removes the category with its monthly rows and transactions.
func (q *Queries) DeleteCategory(ctx context.Context, planID, id int64) error {
	return q.execOne(ctx, "category", id,
		`DELETE FROM budget_categories WHERE id = ? AND plan_id = ?`, id, planID)
}
