package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// LedgerConfig holds the engine's policy switches.
type LedgerConfig struct {
	// EnforceSpendingLimit rejects a transaction larger than its category's
	// available amount for the month (default: false).
	EnforceSpendingLimit bool

	// RecordEvents writes a ledger event to the outbox with every mutation
	// (default: true).
	RecordEvents bool

	// Now is the service clock (default: time.Now).
	Now func() time.Time
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		RecordEvents: true,
		Now:          time.Now,
	}
}

// LedgerService is the budget engine. Every mutation runs as one unit of
// work: validation and write share a transaction, and writers of the same
// plan are serialized.
type LedgerService struct {
	store  *storage.Store
	config LedgerConfig
	locks  *planLocks
}

func NewLedgerService(store *storage.Store, config LedgerConfig) *LedgerService {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &LedgerService{
		store:  store,
		config: config,
		locks:  newPlanLocks(),
	}
}

func (s *LedgerService) now() time.Time {
	return s.config.Now().UTC()
}

func (s *LedgerService) currentPeriod() core.Period {
	return core.PeriodOf(s.now())
}

// Ping reports whether the ledger store is reachable.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

type emitFunc func(kind core.EventKind, p core.Period)

// mutate loads the plan and runs fn inside one transaction while holding the
// plan's write lock. Events emitted by fn are stored in the same transaction.
func (s *LedgerService) mutate(ctx context.Context, planID int64, fn func(q *storage.Queries, plan core.Plan, emit emitFunc) error) error {
	unlock := s.locks.lock(planID)
	defer unlock()

	return s.store.WithTx(ctx, func(q *storage.Queries) error {
		plan, err := q.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		var events []core.LedgerEvent
		emit := func(kind core.EventKind, p core.Period) {
			events = append(events, s.newEvent(plan.ID, kind, p))
		}
		if err := fn(q, plan, emit); err != nil {
			return err
		}
		return s.enqueue(ctx, q, events)
	})
}

func (s *LedgerService) newEvent(planID int64, kind core.EventKind, p core.Period) core.LedgerEvent {
	return core.LedgerEvent{
		ID:        uuid.NewString(),
		PlanID:    planID,
		Period:    p,
		Kind:      kind,
		Status:    core.EventPending,
		CreatedAt: s.now(),
	}
}

func (s *LedgerService) enqueue(ctx context.Context, q *storage.Queries, events []core.LedgerEvent) error {
	if !s.config.RecordEvents {
		return nil
	}
	for _, ev := range events {
		if err := q.EnqueueEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// checkPeriod rejects months before the plan's first active month.
func checkPeriod(plan core.Plan, p core.Period) error {
	if p.Before(plan.Start) {
		return core.Invalid("period", "%s precedes the plan's first month %s", p, plan.Start)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
