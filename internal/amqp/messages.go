package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventKind string

const (
	EventCreated EventKind = "expense.created"
	EventDeleted EventKind = "expense.deleted"
)

// ExpenseEvent announces a change to one expense. It carries only what
// consumers need to decide whether to refresh; the expense itself is
// re-read from the source.
type ExpenseEvent struct {
	Kind      EventKind `json:"kind"`
	ID        int64     `json:"id"`
	PersonID  int64     `json:"personId"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEvent(kind EventKind, id, personID int64, category string) *ExpenseEvent {
	return &ExpenseEvent{
		Kind:      kind,
		ID:        id,
		PersonID:  personID,
		Category:  category,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event and rejects unknown kinds.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case EventCreated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	return &msg, nil
}
