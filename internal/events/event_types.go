package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCardCreated      EventType = "card_created"
	EventCardUpdated      EventType = "card_updated"
	EventCardClosed       EventType = "card_closed"
	EventCardMessageAdded EventType = "card_message_added"
	EventSenderRejected   EventType = "sender_rejected"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CardID    string      `json:"card_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CardCreatedPayload payload.
type CardCreatedPayload struct {
	Card      *domain.Card `json:"card"`
	MessageID string       `json:"message_id,omitempty"`
}

// CardUpdatedPayload carries the card snapshot and the computed field diff.
type CardUpdatedPayload struct {
	Card *domain.Card         `json:"card"`
	Diff map[string]FieldDiff `json:"diff"`
}

// FieldDiff is a field-level before/after pair. Array fields are reduced to
// added/removed set deltas instead.
type FieldDiff struct {
	Old     any      `json:"old,omitempty"`
	New     any      `json:"new,omitempty"`
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// CardClosedPayload payload.
type CardClosedPayload struct {
	Card *domain.Card `json:"card"`
}

// CardMessageAddedPayload payload.
type CardMessageAddedPayload struct {
	Card        *domain.Card       `json:"card"`
	MessageID   string             `json:"message_id"`
	MessageType domain.MessageType `json:"message_type"`
	Preview     string             `json:"preview"`
}

// SenderRejectedPayload records an inbound sender that failed verification.
type SenderRejectedPayload struct {
	Sender string        `json:"sender"`
	Source domain.Source `json:"source"`
}
