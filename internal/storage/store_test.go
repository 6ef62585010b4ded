package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgeting/internal/core"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPlan(t *testing.T, s *Store) (core.Plan, core.BudgetCategory) {
	t.Helper()
	ctx := context.Background()
	var (
		plan core.Plan
		cat  core.BudgetCategory
	)
	err := s.WithTx(ctx, func(q *Queries) error {
		var err error
		plan, err = q.CreatePlan(ctx, core.Plan{
			UserID:        "u1",
			Name:          "Household",
			MonthlyIncome: core.Cents(1000000),
			Pref:          core.BudgetPref{Ratios: core.NewRatios(50, 30, 20)},
			Start:         core.Period{Year: 2024, Month: time.January},
			CreatedAt:     testNow,
		})
		if err != nil {
			return err
		}
		cat, err = q.CreateCategory(ctx, core.BudgetCategory{PlanID: plan.ID, Name: "Rent", Main: core.Needs, CreatedAt: testNow})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return plan, cat
}

func TestOpenRunsMigrations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Close()

	v, dirty, err := SchemaVersion(DSN(path))
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != 1 || dirty {
		t.Fatalf("expected clean version 1, got %d dirty=%v", v, dirty)
	}

	// reopening an up-to-date database is a no-op
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	s.Close()
}

func TestPlanRoundTrip(t *testing.T) {
	s := openTestStore(t)
	plan, _ := seedPlan(t, s)
	ctx := context.Background()

	got, err := s.Queries().GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if got.Name != "Household" || got.MonthlyIncome.Cents != 1000000 || got.Start != plan.Start {
		t.Fatalf("unexpected plan %+v", got)
	}
	if got.Ceiling(core.Investments).Cents != 200000 {
		t.Fatalf("investments ratio lost in storage: %v", got.Pref.Ratios)
	}

	if _, err := s.Queries().GetPlan(ctx, plan.ID+100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.Queries().ActivePlanID(ctx, "u1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected no active plan yet, got %v", err)
	}
	if err := s.Queries().SetActivePlan(ctx, "u1", plan.ID, testNow); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if id, err := s.Queries().ActivePlanID(ctx, "u1"); err != nil || id != plan.ID {
		t.Fatalf("active plan = %d, %v", id, err)
	}
}

func TestEnsureMonthlyBudgetIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	_, cat := seedPlan(t, s)
	ctx := context.Background()
	p := core.Period{Year: 2024, Month: time.March}

	first, created, err := s.Queries().EnsureMonthlyBudget(ctx, cat.ID, p)
	if err != nil || !created {
		t.Fatalf("first ensure: created=%v err=%v", created, err)
	}
	if !first.Assigned.IsZero() || !first.Spent.IsZero() {
		t.Fatalf("new month must start fresh: %+v", first)
	}
	if err := s.Queries().SetMonthlyAssigned(ctx, first.ID, core.Cents(5000)); err != nil {
		t.Fatalf("assign: %v", err)
	}

	second, created, err := s.Queries().EnsureMonthlyBudget(ctx, cat.ID, p)
	if err != nil || created {
		t.Fatalf("second ensure: created=%v err=%v", created, err)
	}
	if second.ID != first.ID || second.Assigned.Cents != 5000 {
		t.Fatalf("ensure must return the existing row, got %+v", second)
	}
}

func TestFreezeRolloverNeverOverwrites(t *testing.T) {
	s := openTestStore(t)
	plan, _ := seedPlan(t, s)
	ctx := context.Background()
	jan := core.Period{Year: 2024, Month: time.January}
	feb := jan.Next()

	r, created, err := s.Queries().FreezeRollover(ctx, plan.ID, jan, core.Cents(1200), testNow)
	if err != nil || !created || r.Amount.Cents != 1200 {
		t.Fatalf("freeze: %+v created=%v err=%v", r, created, err)
	}
	r, created, err = s.Queries().FreezeRollover(ctx, plan.ID, jan, core.Cents(999), testNow)
	if err != nil || created || r.Amount.Cents != 1200 {
		t.Fatalf("second freeze must keep the stored value: %+v created=%v err=%v", r, created, err)
	}
	if _, _, err := s.Queries().FreezeRollover(ctx, plan.ID, feb, core.Cents(-50), testNow); err != nil {
		t.Fatalf("freeze feb: %v", err)
	}

	latest, err := s.Queries().LatestRolloverBefore(ctx, plan.ID, feb.Next())
	if err != nil || latest.Period != feb {
		t.Fatalf("latest before march = %+v, %v", latest, err)
	}

	n, err := s.Queries().DeleteRolloversFrom(ctx, plan.ID, feb)
	if err != nil || n != 1 {
		t.Fatalf("delete from feb: n=%d err=%v", n, err)
	}
	all, err := s.Queries().ListRollovers(ctx, plan.ID)
	if err != nil || len(all) != 1 || all[0].Period != jan {
		t.Fatalf("remaining rollovers %+v, %v", all, err)
	}
}

func TestPayeesDedupIgnoringCase(t *testing.T) {
	s := openTestStore(t)
	plan, _ := seedPlan(t, s)
	ctx := context.Background()

	a, created, err := s.Queries().EnsurePayee(ctx, plan.ID, "Corner Shop", testNow)
	if err != nil || !created {
		t.Fatalf("first payee: %v %v", created, err)
	}
	b, created, err := s.Queries().EnsurePayee(ctx, plan.ID, " corner shop ", testNow)
	if err != nil || created || b.ID != a.ID {
		t.Fatalf("expected dedup, got %+v created=%v err=%v", b, created, err)
	}
	if _, _, err := s.Queries().EnsurePayee(ctx, plan.ID, "  ", testNow); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected blank payee rejection, got %v", err)
	}
}

func TestCategoryNamesAreUniquePerPlan(t *testing.T) {
	s := openTestStore(t)
	plan, _ := seedPlan(t, s)
	ctx := context.Background()

	_, err := s.Queries().CreateCategory(ctx, core.BudgetCategory{PlanID: plan.ID, Name: "RENT", Main: core.Wants, CreatedAt: testNow})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected duplicate name rejection, got %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	plan, cat := seedPlan(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(q *Queries) error {
		if _, err := q.CreateTransaction(ctx, core.Transaction{
			PlanID: plan.ID, CategoryID: cat.ID, Amount: core.Cents(-500),
			Date: testNow, Source: core.SourceManual, CreatedAt: testNow,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	spent, err := s.Queries().SpentInCategory(ctx, cat.ID, core.PeriodOf(testNow))
	if err != nil || !spent.IsZero() {
		t.Fatalf("rolled back insert still visible: spent=%v err=%v", spent, err)
	}
}

func TestSpentQueriesRespectMonthBounds(t *testing.T) {
	s := openTestStore(t)
	plan, cat := seedPlan(t, s)
	ctx := context.Background()
	dates := []time.Time{
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, d := range dates {
		_, err := s.Queries().CreateTransaction(ctx, core.Transaction{
			PlanID: plan.ID, CategoryID: cat.ID, Amount: core.Cents(-100 * int64(i+1)),
			Date: d, Source: core.SourceBank, CreatedAt: testNow,
		})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	march := core.Period{Year: 2024, Month: time.March}
	spent, err := s.Queries().SpentInCategory(ctx, cat.ID, march)
	if err != nil || spent.Cents != 500 {
		t.Fatalf("march spent = %v, %v", spent, err)
	}
	byCat, err := s.Queries().SpentByCategory(ctx, plan.ID, march)
	if err != nil || byCat[cat.ID].Cents != 500 {
		t.Fatalf("by category = %v, %v", byCat, err)
	}
	txns, err := s.Queries().ListTransactions(ctx, plan.ID, march)
	if err != nil || len(txns) != 2 || txns[0].Amount.Cents != -300 {
		t.Fatalf("march transactions = %+v, %v", txns, err)
	}
	first, ok, err := s.Queries().EarliestTransactionPeriod(ctx, cat.ID)
	if err != nil || !ok || first != (core.Period{Year: 2024, Month: time.February}) {
		t.Fatalf("earliest = %v %v %v", first, ok, err)
	}
}

func TestEventOutboxLifecycle(t *testing.T) {
	s := openTestStore(t)
	plan, _ := seedPlan(t, s)
	ctx := context.Background()
	p := core.PeriodOf(testNow)

	for i, id := range []string{"ev-1", "ev-2"} {
		err := s.Queries().EnqueueEvent(ctx, core.LedgerEvent{
			ID: id, PlanID: plan.ID, Period: p, Kind: core.EventAmountAssigned,
			CreatedAt: testNow.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	pending, err := s.Queries().PendingEvents(ctx, 10)
	if err != nil || len(pending) != 2 || pending[0].ID != "ev-1" {
		t.Fatalf("pending = %+v, %v", pending, err)
	}

	if err := s.Queries().MarkEventPublished(ctx, "ev-1", testNow); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Queries().MarkEventFailed(ctx, "ev-2", errors.New("broker down"), 3); err != nil {
			t.Fatalf("fail: %v", err)
		}
	}
	if n, _ := s.Queries().CountEvents(ctx, core.EventFailed); n != 1 {
		t.Fatalf("expected one failed event, got %d", n)
	}
	if pending, _ := s.Queries().PendingEvents(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected empty queue, got %+v", pending)
	}

	n, err := s.Queries().DeletePublishedEvents(ctx, testNow.Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("cleanup n=%d err=%v", n, err)
	}
}
