package storage

import (
	"context"
	"fmt"
)

// ensureRow inserts a row keyed by a unique constraint, doing nothing when the
// key already exists, and then reads back whichever row owns the key.
// created reports whether this call inserted it. The insert statement must
// carry an ON CONFLICT ... DO NOTHING clause.
func ensureRow[T any](ctx context.Context, db DBTX, insert string, args []any, fetch func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	res, err := db.ExecContext(ctx, insert, args...)
	if err != nil {
		return zero, false, fmt.Errorf("ensure row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return zero, false, fmt.Errorf("ensure row: rows affected: %w", err)
	}
	row, err := fetch(ctx)
	if err != nil {
		return zero, false, err
	}
	return row, n > 0, nil
}
