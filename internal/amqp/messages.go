package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"budgeting/internal/core"
)

// LedgerEventMessage tells consumers that a plan's month changed. It carries
// no amounts: the consumer reads the month summary from the ledger.
type LedgerEventMessage struct {
	EventID   string         `json:"event_id"`
	PlanID    int64          `json:"plan_id"`
	Year      int            `json:"year"`
	Month     int            `json:"month"`
	Kind      core.EventKind `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewLedgerEventMessage creates a message for a stored ledger event
func NewLedgerEventMessage(ev core.LedgerEvent) *LedgerEventMessage {
	return &LedgerEventMessage{
		EventID:   ev.ID,
		PlanID:    ev.PlanID,
		Year:      ev.Period.Year,
		Month:     int(ev.Period.Month),
		Kind:      ev.Kind,
		Timestamp: time.Now(),
	}
}

// Period returns the month the event refers to
func (m *LedgerEventMessage) Period() (core.Period, error) {
	return core.NewPeriod(m.Year, m.Month)
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and checks a message body
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.PlanID <= 0 {
		return nil, fmt.Errorf("message without plan_id")
	}
	if _, err := msg.Period(); err != nil {
		return nil, err
	}
	return &msg, nil
}
