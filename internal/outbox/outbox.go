// Package outbox implements the transactional outbox pattern: domain events
// are appended to storage in the same transaction as the state change that
// produced them, and a relay publishes them to the message queue afterwards.
// A publish failure leaves the row pending, so events survive broker outages
// and process crashes.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is a stored domain event awaiting publication.
type Entry struct {
	EventID     uuid.UUID       `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Attempts    int             `json:"-"`
}

// Source is the storage side of the outbox: pending rows in occurrence
// order, plus per-row bookkeeping after a publish attempt.
type Source interface {
	PendingEvents(ctx context.Context, limit int) ([]*Entry, error)
	MarkEventSent(ctx context.Context, eventID uuid.UUID) error
	MarkEventFailed(ctx context.Context, eventID uuid.UUID) error
}

// Publisher delivers an entry to the message queue.
type Publisher interface {
	PublishEvent(ctx context.Context, e *Entry) error
}
