package domain

import "time"

// MessageType differentiates conversation turns.
type MessageType string

const (
	MessageTypeInitial MessageType = "initial"
	MessageTypeReply   MessageType = "reply"
	MessageTypeSystem  MessageType = "system"
	MessageTypeEmail   MessageType = "email"
)

// Message is a single turn in a card's conversation. Messages are created
// append-only and never mutated.
type Message struct {
	ID        string            `db:"id"`
	CardID    string            `db:"card_id"`
	Content   string            `db:"content"`
	Type      MessageType       `db:"type"`
	CreatedBy string            `db:"created_by"`
	Metadata  map[string]string `db:"metadata"`
	CreatedAt time.Time         `db:"created_at"`
}
