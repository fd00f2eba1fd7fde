package domain

import "time"

// CardStatus enumerates lifecycle states for cards. Transitions are
// unconstrained: any status may follow any other.
type CardStatus string

const (
	CardStatusNew        CardStatus = "new"
	CardStatusInProgress CardStatus = "in_progress"
	CardStatusResolved   CardStatus = "resolved"
	CardStatusClosed     CardStatus = "closed"
)

// ValidStatus reports whether s is a known card status.
func ValidStatus(s CardStatus) bool {
	switch s {
	case CardStatusNew, CardStatusInProgress, CardStatusResolved, CardStatusClosed:
		return true
	}
	return false
}

// Card is the aggregate for a tracked support issue. The id is immutable
// and assigned at creation; a card is only removed by an explicit admin
// delete, which cascades to its messages, attachments and activities.
type Card struct {
	ID         string            `db:"id"`
	Title      string            `db:"title"`
	Status     CardStatus        `db:"status"`
	Source     Source            `db:"source"`
	CreatedBy  string            `db:"created_by"`
	AssignedTo *string           `db:"assigned_to"`
	Labels     []string          `db:"labels"`
	Metadata   map[string]string `db:"metadata"`
	CustomerID string            `db:"customer_id"`
	Channel    string            `db:"channel"`
	Space      string            `db:"space"`
	CreatedAt  time.Time         `db:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at"`
}

// Conversation returns the chat scope identifier for the card: the channel
// for slack-sourced cards, the space for chat-sourced ones.
func (c *Card) Conversation() string {
	if c.Channel != "" {
		return c.Channel
	}
	return c.Space
}
