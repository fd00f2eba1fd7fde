package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// Toggles resolves the per-event boolean switches. Backed by the settings
// document with config defaults.
type Toggles interface {
	EmailEnabled(ctx context.Context, event events.EventType) bool
	WebhookEnabled(ctx context.Context, event events.EventType) bool
}

// Notifier fans out card lifecycle events to email and webhook channels.
// Channel sends are independent: a failure in one never blocks the other,
// and there is no queue or retry.
type Notifier struct {
	email   EmailSender
	webhook WebhookSender
	toggles Toggles
	cfg     config.NotificationConfig
	logger  *zap.Logger
}

// NewNotifier creates the notifier.
func NewNotifier(email EmailSender, webhook WebhookSender, toggles Toggles, cfg config.NotificationConfig, logger *zap.Logger) *Notifier {
	return &Notifier{
		email:   email,
		webhook: webhook,
		toggles: toggles,
		cfg:     cfg,
		logger:  logger,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *Notifier) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventCardCreated, n.handleCardCreated)
	dispatcher.Subscribe(events.EventCardUpdated, n.handleCardUpdated)
	dispatcher.Subscribe(events.EventCardClosed, n.handleCardClosed)
	dispatcher.Subscribe(events.EventCardMessageAdded, n.handleMessageAdded)
	dispatcher.Subscribe(events.EventSenderRejected, n.handleSenderRejected)
}

func (n *Notifier) handleCardCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CardCreatedPayload)
	if !ok || payload.Card == nil {
		return nil
	}
	card := payload.Card
	subject := "[helpdesk] New card: " + card.Title
	n.fanOut(ctx, event, card, subject, cardCreatedBody(card))
	return nil
}

func (n *Notifier) handleCardUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CardUpdatedPayload)
	if !ok || payload.Card == nil {
		return nil
	}
	card := payload.Card
	subject := "[helpdesk] Card updated: " + card.Title
	n.fanOut(ctx, event, card, subject, cardUpdatedBody(card, payload.Diff))
	return nil
}

func (n *Notifier) handleCardClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CardClosedPayload)
	if !ok || payload.Card == nil {
		return nil
	}
	card := payload.Card
	subject := "[helpdesk] Card closed: " + card.Title
	n.fanOut(ctx, event, card, subject, cardClosedBody(card))
	return nil
}

func (n *Notifier) handleMessageAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CardMessageAddedPayload)
	if !ok || payload.Card == nil {
		return nil
	}
	card := payload.Card
	subject := "[helpdesk] New reply on: " + card.Title
	n.fanOut(ctx, event, card, subject, messageAddedBody(card, payload.Preview))
	return nil
}

func (n *Notifier) handleSenderRejected(ctx context.Context, event events.Event) error {
	n.logger.Warn("sender rejected", zap.String("actor", event.Actor), zap.Any("payload", event.Payload))
	return nil
}

// fanOut attempts each enabled channel. Failures are logged, not returned:
// overall delivery is best effort.
func (n *Notifier) fanOut(ctx context.Context, event events.Event, card *domain.Card, subject, htmlBody string) {
	if n.email != nil && n.toggles.EmailEnabled(ctx, event.Type) {
		if to := n.recipient(card); to != "" {
			if err := n.email.Send(to, subject, htmlBody); err != nil {
				n.logger.Error("email notification failed",
					zap.String("card_id", card.ID), zap.String("event", string(event.Type)), zap.Error(err))
			}
		}
	}
	if n.webhook != nil && n.toggles.WebhookEnabled(ctx, event.Type) {
		if err := n.webhook.Send(event); err != nil {
			n.logger.Error("webhook notification failed",
				zap.String("card_id", card.ID), zap.String("event", string(event.Type)), zap.Error(err))
		}
	}
}

// recipient picks the notification target: the card's creator when it looks
// like an email address, otherwise the admin inbox.
func (n *Notifier) recipient(card *domain.Card) string {
	if strings.Contains(card.CreatedBy, "@") {
		return card.CreatedBy
	}
	return n.cfg.AdminEmail
}

// criticalPatterns matches failure text that warrants an admin alert.
var criticalPatterns = []string{"database", "storage", "auth", "quota"}

// IsCritical reports whether an error's text matches a known critical
// failure pattern.
func IsCritical(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, pattern := range criticalPatterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}

// CriticalAlert emails the admin address about a critical failure.
func (n *Notifier) CriticalAlert(err error) {
	if n.email == nil || n.cfg.AdminEmail == "" || err == nil {
		return
	}
	body := "<html><body><h2>Critical helpdesk error</h2><p>" + err.Error() + "</p></body></html>"
	if sendErr := n.email.Send(n.cfg.AdminEmail, "[helpdesk] Critical error", body); sendErr != nil {
		n.logger.Error("critical alert email failed", zap.Error(sendErr))
	}
}
