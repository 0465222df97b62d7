package domain

import "time"

// Event types
const (
	EventTypeTransactionCreated  = "transaction.created"
	EventTypeTransactionUpdated  = "transaction.updated"
	EventTypeTransactionDeleted  = "transaction.deleted"
	EventTypeTransactionRestored = "transaction.restored"
)

// AggregateTypeTransaction is the only aggregate published through the outbox.
const AggregateTypeTransaction = "transaction"

// EventTypeFor maps an audit action to the outbox event it emits.
func EventTypeFor(action AuditAction) string {
	switch action {
	case AuditActionCreate:
		return EventTypeTransactionCreated
	case AuditActionSoftDelete:
		return EventTypeTransactionDeleted
	case AuditActionRestore:
		return EventTypeTransactionRestored
	default:
		return EventTypeTransactionUpdated
	}
}

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewTransactionEventPayload builds the outbox payload for a transaction change.
func NewTransactionEventPayload(t *Transaction, actorID string) map[string]any {
	return map[string]any{
		"transaction_id": t.ID,
		"type":           string(t.Type),
		"amount":         t.Amount.String(),
		"date":           t.Date.UTC().Format(time.RFC3339),
		"deleted":        t.Deleted,
		"actor_id":       actorID,
		"version":        t.Version,
	}
}
