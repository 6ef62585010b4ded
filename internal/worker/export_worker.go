package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"budgeting/internal/amqp"
	"budgeting/internal/core"
	"budgeting/internal/log"
	"budgeting/internal/sheets"
)

// maxCascade bounds how many months after the changed one are re-exported.
const maxCascade = 12

// LedgerReader is the part of the ledger the worker reads from.
type LedgerReader interface {
	MonthSummary(ctx context.Context, planID int64, p core.Period) (core.MonthSummary, error)
	ListAllPlans(ctx context.Context) ([]core.Plan, error)
}

// ExportWorker turns ledger events into month summary exports.
type ExportWorker struct {
	ledger   LedgerReader
	exporter sheets.SummaryExporter
	logger   *log.Logger
	now      func() time.Time

	group    singleflight.Group
	exported atomic.Int64
	failed   atomic.Int64
}

func NewExportWorker(ledger LedgerReader, exporter sheets.SummaryExporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &ExportWorker{
		ledger:   ledger,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandleLedgerEvent exports the month named by msg and every later month up
// to the current one, since a change carries forward through rollover.
// Messages that can never succeed are returned wrapped in amqp.ErrDiscard.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	p, err := msg.Period()
	if err != nil {
		return fmt.Errorf("%w: %v", amqp.ErrDiscard, err)
	}

	w.logger.InfoContext(ctx, "Processing ledger event",
		log.NewFields().WithEvent(msg.EventID, string(msg.Kind)).WithPlan(msg.PlanID, p.String()).ToSlice()...)

	current := core.PeriodOf(w.now())
	for i := 0; i < maxCascade; i++ {
		if _, err := w.ExportMonth(ctx, msg.PlanID, p); err != nil {
			if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrValidation) {
				return fmt.Errorf("%w: %v", amqp.ErrDiscard, err)
			}
			return err
		}
		if !p.Before(current) {
			break
		}
		p = p.Next()
	}
	return nil
}

// ExportMonth recomputes and exports one plan month. Concurrent calls for the
// same month share a single export.
func (w *ExportWorker) ExportMonth(ctx context.Context, planID int64, p core.Period) (string, error) {
	key := strconv.FormatInt(planID, 10) + ":" + p.String()
	ref, err, _ := w.group.Do(key, func() (any, error) {
		summary, err := w.ledger.MonthSummary(ctx, planID, p)
		if err != nil {
			return "", fmt.Errorf("month summary: %w", err)
		}
		ref, err := w.exporter.ExportMonth(ctx, summary)
		if err != nil {
			return "", fmt.Errorf("export month: %w", err)
		}
		return ref, nil
	})
	fields := log.NewFields().WithOperation(log.OpExport).WithPlan(planID, p.String())
	if err != nil {
		w.failed.Add(1)
		w.logger.ErrorContext(ctx, "Month export failed", fields.WithError(err).WithErrorType(log.ErrorType(err)).ToSlice()...)
		return "", err
	}
	w.exported.Add(1)
	fields[log.FieldExportRef] = ref
	w.logger.InfoContext(ctx, "Month exported", fields.ToSlice()...)
	return ref.(string), nil
}

// ExportCurrentMonths exports the current month of every plan. Run at
// startup it recovers from events lost while the worker was down.
func (w *ExportWorker) ExportCurrentMonths(ctx context.Context) (int, error) {
	plans, err := w.ledger.ListAllPlans(ctx)
	if err != nil {
		return 0, fmt.Errorf("list plans: %w", err)
	}

	current := core.PeriodOf(w.now())
	exported := 0
	var errs []error
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		p := current
		if p.Before(plan.Start) {
			p = plan.Start
		}
		if _, err := w.ExportMonth(ctx, plan.ID, p); err != nil {
			errs = append(errs, fmt.Errorf("plan %d: %w", plan.ID, err))
			continue
		}
		exported++
	}

	w.logger.InfoContext(ctx, "Startup export completed",
		"total", len(plans),
		"exported", exported,
		"errors", len(errs))
	return exported, errors.Join(errs...)
}

// Stats returns the number of successful and failed exports.
func (w *ExportWorker) Stats() (exported, failed int64) {
	return w.exported.Load(), w.failed.Load()
}
