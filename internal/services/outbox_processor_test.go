package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"budgeting/internal/core"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []core.LedgerEvent
	err       error
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, ev core.LedgerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, ev)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func TestOutboxProcessorPublishesPendingEvents(t *testing.T) {
	svc, store := newTestLedger(t)
	ctx := context.Background()
	plan := mustPlan(t, svc, 100000, mar, map[core.MainCategory][]string{core.Needs: {"Rent"}})
	if _, err := svc.AssignAmount(ctx, plan.ID, categoryID(t, svc, plan.ID, "Rent"), mar, core.Cents(100)); err != nil {
		t.Fatalf("assign: %v", err)
	}

	pub := &fakePublisher{}
	config := DefaultOutboxProcessorConfig()
	config.BatchSize = 1
	proc := NewOutboxProcessor(store, pub, config)

	if n := proc.ProcessBatch(ctx); n != 1 {
		t.Fatalf("first batch published %d, want 1", n)
	}
	if n := proc.ProcessBatch(ctx); n != 1 {
		t.Fatalf("second batch published %d, want 1", n)
	}
	if n := proc.ProcessBatch(ctx); n != 0 {
		t.Fatalf("empty outbox published %d", n)
	}
	if pub.published[0].Kind != core.EventPlanCreated || pub.published[1].Kind != core.EventAmountAssigned {
		t.Fatalf("events out of order: %+v", pub.published)
	}
	if n, _ := store.Queries().CountEvents(ctx, core.EventPublished); n != 2 {
		t.Fatalf("published count = %d", n)
	}
}

func TestOutboxProcessorRetriesThenFails(t *testing.T) {
	svc, store := newTestLedger(t)
	ctx := context.Background()
	mustPlan(t, svc, 100000, mar, nil)

	pub := &fakePublisher{err: errors.New("broker unavailable")}
	config := DefaultOutboxProcessorConfig()
	config.MaxRetries = 2
	proc := NewOutboxProcessor(store, pub, config)

	proc.ProcessBatch(ctx)
	if n, _ := store.Queries().CountEvents(ctx, core.EventPending); n != 1 {
		t.Fatalf("event should stay pending after first failure, pending=%d", n)
	}
	proc.ProcessBatch(ctx)
	if n, _ := store.Queries().CountEvents(ctx, core.EventFailed); n != 1 {
		t.Fatalf("event should be failed after max retries, failed=%d", n)
	}

	pub.err = nil
	if n := proc.ProcessBatch(ctx); n != 0 {
		t.Fatalf("failed events must not be retried, published %d", n)
	}
}

func TestOutboxProcessorStartStop(t *testing.T) {
	svc, store := newTestLedger(t)
	mustPlan(t, svc, 100000, mar, nil)

	pub := &fakePublisher{}
	config := DefaultOutboxProcessorConfig()
	config.PollInterval = 10 * time.Millisecond
	proc := NewOutboxProcessor(store, pub, config)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := proc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := proc.Start(ctx); err == nil {
		t.Fatalf("second start should fail")
	}
	if !proc.IsRunning() {
		t.Fatalf("processor should be running")
	}

	deadline := time.Now().Add(time.Second)
	for pub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pub.count() != 1 {
		t.Fatalf("expected the pending event to be published, got %d", pub.count())
	}

	if err := proc.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if proc.IsRunning() {
		t.Fatalf("processor should be stopped")
	}
}
