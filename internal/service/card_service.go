package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// CardService coordinates card workflows for both the ingestion pipeline
// and the page router.
type CardService struct {
	cards         repository.CardRepository
	messages      repository.MessageRepository
	attachments   repository.AttachmentRepository
	activities    repository.ActivityRepository
	gateway       *storage.Gateway
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	defaultStatus domain.CardStatus
}

// CardDependencies bundles collaborators for the card service.
// DefaultStatus is the status newly created cards start in; anything
// unrecognized falls back to "new".
type CardDependencies struct {
	CardRepo       repository.CardRepository
	MessageRepo    repository.MessageRepository
	AttachmentRepo repository.AttachmentRepository
	ActivityRepo   repository.ActivityRepository
	Gateway        *storage.Gateway
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	DefaultStatus  domain.CardStatus
}

// AttachmentInput references an already-uploaded object.
type AttachmentInput struct {
	Name        string
	MimeType    string
	SizeBytes   int64
	StoragePath string
}

// CardCreateInput describes card creation, optionally seeded with a first
// message. ID may be pre-generated by the caller when attachment uploads
// need the card's namespace before the row exists.
type CardCreateInput struct {
	ID          string
	Title       string
	Source      domain.Source
	CreatedBy   string
	AssignedTo  *string
	Labels      []string
	Metadata    map[string]string
	CustomerID  string
	Channel     string
	Space       string
	Content     string
	MessageType domain.MessageType
	Attachments []AttachmentInput
}

// MessageInput describes a message appended to an existing card.
type MessageInput struct {
	Content     string
	Type        domain.MessageType
	CreatedBy   string
	Metadata    map[string]string
	Attachments []AttachmentInput
}

// NewCardService constructs the service.
func NewCardService(deps CardDependencies) *CardService {
	defaultStatus := deps.DefaultStatus
	if !domain.ValidStatus(defaultStatus) {
		defaultStatus = domain.CardStatusNew
	}
	return &CardService{
		cards:         deps.CardRepo,
		messages:      deps.MessageRepo,
		attachments:   deps.AttachmentRepo,
		activities:    deps.ActivityRepo,
		gateway:       deps.Gateway,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		defaultStatus: defaultStatus,
	}
}

// CreateCard creates a card and, when Content is set, its seed message.
func (s *CardService) CreateCard(ctx context.Context, input CardCreateInput) (*domain.Card, *domain.Message, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, nil, util.NewValidationError("title required", nil)
	}
	if input.CreatedBy == "" {
		return nil, nil, util.NewValidationError("created_by required", nil)
	}

	card := &domain.Card{
		ID:         input.ID,
		Title:      title,
		Status:     s.defaultStatus,
		Source:     input.Source,
		CreatedBy:  input.CreatedBy,
		AssignedTo: input.AssignedTo,
		Labels:     input.Labels,
		Metadata:   input.Metadata,
		CustomerID: input.CustomerID,
		Channel:    input.Channel,
		Space:      input.Space,
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return nil, nil, err
	}

	var msg *domain.Message
	var msgID *string
	if strings.TrimSpace(input.Content) != "" {
		messageType := input.MessageType
		if messageType == "" {
			messageType = domain.MessageTypeInitial
		}
		msg = &domain.Message{
			CardID:    card.ID,
			Content:   input.Content,
			Type:      messageType,
			CreatedBy: input.CreatedBy,
		}
		if err := s.messages.Create(ctx, msg); err != nil {
			return nil, nil, err
		}
		msgID = &msg.ID
	}
	// Attachment rows attach to the card even without a seed message; an
	// inbound mail can consist of nothing but its files.
	if err := s.createAttachmentRows(ctx, card.ID, msgID, input.Attachments); err != nil {
		return nil, nil, err
	}

	s.recordActivity(ctx, domain.ActivityCardCreated, input.CreatedBy, &card.ID, map[string]any{
		"title":  card.Title,
		"source": card.Source,
	})
	messageID := ""
	if msg != nil {
		messageID = msg.ID
	}
	s.publish(ctx, events.Event{
		Type:   events.EventCardCreated,
		CardID: card.ID,
		Actor:  input.CreatedBy,
		Payload: events.CardCreatedPayload{
			Card:      card,
			MessageID: messageID,
		},
	})
	return card, msg, nil
}

// AppendMessage adds a reply to an existing card and advances its
// updated_at so active-issue ordering reflects the new traffic.
func (s *CardService) AppendMessage(ctx context.Context, cardID string, input MessageInput) (*domain.Message, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, util.NewValidationError("content required", nil)
	}
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}

	messageType := input.Type
	if messageType == "" {
		messageType = domain.MessageTypeReply
	}
	msg := &domain.Message{
		CardID:    card.ID,
		Content:   input.Content,
		Type:      messageType,
		CreatedBy: input.CreatedBy,
		Metadata:  input.Metadata,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.createAttachmentRows(ctx, card.ID, &msg.ID, input.Attachments); err != nil {
		return nil, err
	}
	if err := s.cards.Touch(ctx, card.ID); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, domain.ActivityMessageAdded, input.CreatedBy, &card.ID, map[string]any{
		"message_id": msg.ID,
		"type":       msg.Type,
	})
	s.publish(ctx, events.Event{
		Type:   events.EventCardMessageAdded,
		CardID: card.ID,
		Actor:  input.CreatedBy,
		Payload: events.CardMessageAddedPayload{
			Card:        card,
			MessageID:   msg.ID,
			MessageType: msg.Type,
			Preview:     preview(msg.Content, 120),
		},
	})
	return msg, nil
}

// UpdateCard applies a patch, records the diff, and emits card_updated (or
// card_closed when the patch moves the card to closed). An empty patch only
// bumps updated_at.
func (s *CardService) UpdateCard(ctx context.Context, actor, cardID string, patch repository.CardPatch) (*domain.Card, error) {
	if patch.Status != nil && !domain.ValidStatus(*patch.Status) {
		return nil, util.NewValidationError("unknown status", map[string]any{"status": *patch.Status})
	}
	before, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	after, err := s.cards.Update(ctx, cardID, patch)
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, domain.ActivityCardUpdated, actor, &after.ID, map[string]any{
		"status": after.Status,
	})

	eventType := events.EventCardUpdated
	var payload any = events.CardUpdatedPayload{Card: after, Diff: events.ComputeCardDiff(before, after)}
	if before.Status != domain.CardStatusClosed && after.Status == domain.CardStatusClosed {
		eventType = events.EventCardClosed
		payload = events.CardClosedPayload{Card: after}
	}
	s.publish(ctx, events.Event{
		Type:    eventType,
		CardID:  after.ID,
		Actor:   actor,
		Payload: payload,
	})
	return after, nil
}

// DeleteCard removes a card with all dependent rows and stored objects.
// Row deletes run in one transaction; object deletes follow the commit, and
// any leftovers are swept by the retention cleanup.
func (s *CardService) DeleteCard(ctx context.Context, actor, cardID string) error {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return err
	}
	attachments, err := s.attachments.ListByCard(ctx, cardID)
	if err != nil {
		return err
	}
	if err := s.cards.DeleteCascade(ctx, cardID); err != nil {
		return err
	}
	for _, att := range attachments {
		if err := s.gateway.Delete(ctx, att.StoragePath); err != nil {
			s.logger.Warn("stored object delete failed",
				zap.String("path", att.StoragePath), zap.Error(err))
		}
	}
	s.recordActivity(ctx, domain.ActivityCardDeleted, actor, nil, map[string]any{
		"card_id": card.ID,
		"title":   card.Title,
	})
	return nil
}

// ScheduleMeeting records a meeting request on a card as a system message
// plus an activity entry.
func (s *CardService) ScheduleMeeting(ctx context.Context, actor, cardID, topic string, when time.Time) (*domain.Message, error) {
	if when.IsZero() {
		return nil, util.NewValidationError("meeting time required", nil)
	}
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	msg := &domain.Message{
		CardID:    card.ID,
		Content:   "Meeting scheduled: " + topic + " at " + when.Format(time.RFC3339),
		Type:      domain.MessageTypeSystem,
		CreatedBy: actor,
		Metadata:  map[string]string{"meeting_at": when.Format(time.RFC3339)},
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.cards.Touch(ctx, card.ID); err != nil {
		return nil, err
	}
	s.recordActivity(ctx, domain.ActivityMeetingRequest, actor, &card.ID, map[string]any{
		"topic": topic,
		"at":    when.Format(time.RFC3339),
	})
	return msg, nil
}

// GetCard fetches a card with its conversation thread.
func (s *CardService) GetCard(ctx context.Context, cardID string) (*domain.Card, []domain.Message, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByCard(ctx, cardID)
	if err != nil {
		return nil, nil, err
	}
	return card, msgs, nil
}

// ListCards returns filtered cards, newest first.
func (s *CardService) ListCards(ctx context.Context, filter repository.CardFilter) ([]domain.Card, error) {
	return s.cards.List(ctx, filter)
}

// RecentActivity returns the latest audit entries for the admin page.
func (s *CardService) RecentActivity(ctx context.Context, limit int) ([]domain.Activity, error) {
	return s.activities.ListRecent(ctx, limit)
}

func (s *CardService) createAttachmentRows(ctx context.Context, cardID string, messageID *string, inputs []AttachmentInput) error {
	for _, input := range inputs {
		record := &domain.Attachment{
			CardID:      cardID,
			MessageID:   messageID,
			Name:        input.Name,
			MimeType:    input.MimeType,
			SizeBytes:   input.SizeBytes,
			StoragePath: input.StoragePath,
		}
		if err := s.attachments.Create(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *CardService) recordActivity(ctx context.Context, activityType domain.ActivityType, actor string, cardID *string, details map[string]any) {
	entry := &domain.Activity{
		Type:    activityType,
		Actor:   actor,
		CardID:  cardID,
		Details: details,
	}
	if err := s.activities.Create(ctx, entry); err != nil {
		s.logger.Warn("activity write failed", zap.String("type", string(activityType)), zap.Error(err))
	}
}

func (s *CardService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
