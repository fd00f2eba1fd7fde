package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateCardRequest is the create_card action payload.
type CreateCardRequest struct {
	Title      string            `json:"title"`
	Source     string            `json:"source"`
	AssignedTo *string           `json:"assigned_to,omitempty"`
	Labels     []string          `json:"labels,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Content    string            `json:"content,omitempty"`
}

// UpdateCardRequest is the update_card action payload. Absent fields leave
// the card untouched.
type UpdateCardRequest struct {
	CardID     string             `json:"card_id"`
	Title      *string            `json:"title,omitempty"`
	Status     *string            `json:"status,omitempty"`
	AssignedTo *string            `json:"assigned_to,omitempty"`
	Labels     *[]string          `json:"labels,omitempty"`
	Metadata   *map[string]string `json:"metadata,omitempty"`
}

// ScheduleMeetingRequest is the schedule_meeting action payload.
type ScheduleMeetingRequest struct {
	CardID string `json:"card_id"`
	Topic  string `json:"topic"`
	At     string `json:"at"`
}

// DeleteCardRequest is the delete_card action payload.
type DeleteCardRequest struct {
	CardID string `json:"card_id"`
}

// CardSummary is the card shape returned from actions.
type CardSummary struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Status     domain.CardStatus `json:"status"`
	Source     domain.Source     `json:"source"`
	CreatedBy  string            `json:"created_by"`
	AssignedTo *string           `json:"assigned_to,omitempty"`
	Labels     []string          `json:"labels,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewCardSummary maps a domain card to its response shape.
func NewCardSummary(card *domain.Card) CardSummary {
	return CardSummary{
		ID:         card.ID,
		Title:      card.Title,
		Status:     card.Status,
		Source:     card.Source,
		CreatedBy:  card.CreatedBy,
		AssignedTo: card.AssignedTo,
		Labels:     card.Labels,
		CreatedAt:  card.CreatedAt,
		UpdatedAt:  card.UpdatedAt,
	}
}
