package core

import "time"

// EventKind names the mutation that produced a ledger event.
type EventKind string

const (
	EventPlanCreated        EventKind = "plan.created"
	EventPlanUpdated        EventKind = "plan.updated"
	EventCategoryCreated    EventKind = "category.created"
	EventCategoryDeleted    EventKind = "category.deleted"
	EventAmountAssigned     EventKind = "budget.assigned"
	EventTransactionAdded   EventKind = "transaction.added"
	EventTransactionDeleted EventKind = "transaction.deleted"
	EventIncomeAdded        EventKind = "income.added"
	EventIncomeDeleted      EventKind = "income.deleted"
	EventMonthClosed        EventKind = "month.closed"
)

// EventStatus tracks outbox delivery.
type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventPublished EventStatus = "published"
	EventFailed    EventStatus = "failed"
)

// LedgerEvent announces that a plan month changed. It carries identifiers
// only; consumers re-read the ledger.
type LedgerEvent struct {
	ID          string      `json:"id"`
	PlanID      int64       `json:"plan_id"`
	Period      Period      `json:"period"`
	Kind        EventKind   `json:"kind"`
	Status      EventStatus `json:"status"`
	Attempts    int         `json:"attempts"`
	LastError   string      `json:"last_error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	PublishedAt time.Time   `json:"published_at,omitempty"`
}
