package storage

import (
	"context"
	"fmt"
	"time"

	"budgeting/internal/core"
)

// EnqueueEvent adds ev to the outbox. Call it inside the mutation's transaction.
func (q *Queries) EnqueueEvent(ctx context.Context, ev core.LedgerEvent) error {
	y, m := periodArgs(ev.Period)
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO ledger_events (id, plan_id, year, month, kind, status, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, 'pending', 0, ?)`,
		ev.ID, ev.PlanID, y, m, string(ev.Kind), formatTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("enqueue ledger event: %w", err)
	}
	return nil
}

// PendingEvents returns up to limit undelivered events, oldest first.
func (q *Queries) PendingEvents(ctx context.Context, limit int) ([]core.LedgerEvent, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, plan_id, year, month, kind, status, attempts, last_error, created_at, published_at
		 FROM ledger_events WHERE status = 'pending'
		 ORDER BY created_at, rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending events: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerEvent
	for rows.Next() {
		var (
			ev                   core.LedgerEvent
			year, month          int
			kind, status         string
			createdAt, published string
		)
		if err := rows.Scan(&ev.ID, &ev.PlanID, &year, &month, &kind, &status, &ev.Attempts,
			&ev.LastError, &createdAt, &published); err != nil {
			return nil, err
		}
		ev.Period = core.Period{Year: year, Month: time.Month(month)}
		ev.Kind = core.EventKind(kind)
		ev.Status = core.EventStatus(status)
		ev.CreatedAt = parseTime(createdAt)
		ev.PublishedAt = parseTime(published)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (q *Queries) MarkEventPublished(ctx context.Context, id string, at time.Time) error {
	return q.execOne(ctx, "ledger event", id,
		`UPDATE ledger_events SET status = 'published', published_at = ? WHERE id = ?`,
		formatTime(at), id)
}

// MarkEventFailed records a delivery failure. After maxAttempts the event
// leaves the pending queue for good.
func (q *Queries) MarkEventFailed(ctx context.Context, id string, cause error, maxAttempts int) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return q.execOne(ctx, "ledger event", id,
		`UPDATE ledger_events
		 SET attempts = attempts + 1,
		     last_error = ?,
		     status = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE 'pending' END
		 WHERE id = ?`,
		msg, maxAttempts, id)
}

// DeletePublishedEvents removes delivered events published before cutoff.
func (q *Queries) DeletePublishedEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM ledger_events WHERE status = 'published' AND published_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete published events: %w", err)
	}
	return res.RowsAffected()
}

// CountEvents counts events by status.
func (q *Queries) CountEvents(ctx context.Context, status core.EventStatus) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_events WHERE status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
