package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// EventPublisher delivers ledger events to the message broker.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
}

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	// PollInterval is how often to check for pending events (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of events published per poll (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before an event is marked failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often published events are purged (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how long published events are kept (default: 24h)
	CleanupAge time.Duration
}

// DefaultOutboxProcessorConfig returns sensible defaults
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// OutboxProcessor publishes events committed with ledger mutations. Because
// the events are written in the mutation's transaction, a crash between
// commit and publish only delays delivery.
type OutboxProcessor struct {
	store     *storage.Store
	publisher EventPublisher
	config    OutboxProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewOutboxProcessor(store *storage.Store, publisher EventPublisher, config OutboxProcessorConfig) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		publisher: publisher,
		config:    config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *OutboxProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("outbox processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for the loop to exit.
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Outbox processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Outbox processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *OutboxProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *OutboxProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupPublished(ctx)
		}
	}
}

// ProcessBatch publishes one batch of pending events and returns how many
// were delivered.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) int {
	q := p.store.Queries()
	events, err := q.PendingEvents(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read pending ledger events", "error", err)
		return 0
	}
	if len(events) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Publishing ledger events", "count", len(events))

	published := 0
	for _, ev := range events {
		select {
		case <-ctx.Done():
			return published
		default:
		}

		if err := p.publisher.PublishLedgerEvent(ctx, ev); err != nil {
			p.handleFailure(ctx, ev, err)
			continue
		}
		if err := q.MarkEventPublished(ctx, ev.ID, time.Now()); err != nil {
			// delivered anyway; consumers treat events idempotently
			slog.ErrorContext(ctx, "Failed to mark ledger event published", "event_id", ev.ID, "error", err)
			continue
		}
		published++
	}
	return published
}

func (p *OutboxProcessor) handleFailure(ctx context.Context, ev core.LedgerEvent, cause error) {
	slog.WarnContext(ctx, "Ledger event publish failed",
		"event_id", ev.ID, "kind", string(ev.Kind), "attempt", ev.Attempts+1, "error", cause)

	if err := p.store.Queries().MarkEventFailed(ctx, ev.ID, cause, p.config.MaxRetries); err != nil {
		slog.ErrorContext(ctx, "Failed to record ledger event failure", "event_id", ev.ID, "error", err)
		return
	}
	if ev.Attempts+1 >= p.config.MaxRetries {
		slog.ErrorContext(ctx, "Ledger event failed permanently after max retries",
			"event_id", ev.ID, "plan_id", ev.PlanID, "attempts", ev.Attempts+1)
	}
}

func (p *OutboxProcessor) cleanupPublished(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupAge)
	n, err := p.store.Queries().DeletePublishedEvents(ctx, cutoff)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to clean up published ledger events", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Published ledger events cleaned up", "count", n)
	}
}
