package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// CardWriter is the slice of the card service the pipeline needs.
type CardWriter interface {
	CreateCard(ctx context.Context, input service.CardCreateInput) (*domain.Card, *domain.Message, error)
	AppendMessage(ctx context.Context, cardID string, input service.MessageInput) (*domain.Message, error)
}

// ActiveCardFinder locates the active card for a conversation scope.
type ActiveCardFinder interface {
	FindActive(ctx context.Context, customerID string, source domain.Source, conversation string) (*domain.Card, error)
}

// CustomerStore is the slice of the customer repository the pipeline needs.
type CustomerStore interface {
	GetOrCreate(ctx context.Context, email, name string) (*domain.Customer, error)
}

// ActivityWriter records audit entries.
type ActivityWriter interface {
	Create(ctx context.Context, activity *domain.Activity) error
}

// Uploader validates and uploads an attachment batch.
type Uploader interface {
	Process(ctx context.Context, cardID string, files []storage.InboundFile) storage.BatchResult
	Delete(ctx context.Context, path string) error
}

// Pipeline converts inbound channel envelopes into customer/card/message
// records. Process never lets an error or panic cross back to the host
// delivery system: the caller always receives a Result.
type Pipeline struct {
	cards      ActiveCardFinder
	writer     CardWriter
	customers  CustomerStore
	activities ActivityWriter
	uploader   Uploader
	verifier   CustomerVerifier
	directory  DirectoryLookup
	locker     ConversationLocker
	dispatcher events.Dispatcher
	logger     *zap.Logger

	lookupTimeout time.Duration
}

// PipelineDependencies bundles pipeline collaborators.
type PipelineDependencies struct {
	Cards      ActiveCardFinder
	Writer     CardWriter
	Customers  CustomerStore
	Activities ActivityWriter
	Uploader   Uploader
	Verifier   CustomerVerifier
	Directory  DirectoryLookup
	Locker     ConversationLocker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger

	// LookupTimeout bounds directory lookups; zero means no bound.
	LookupTimeout time.Duration
}

// NewPipeline constructs the pipeline.
func NewPipeline(deps PipelineDependencies) *Pipeline {
	locker := deps.Locker
	if locker == nil {
		locker = NewNoopLocker()
	}
	return &Pipeline{
		cards:      deps.Cards,
		writer:     deps.Writer,
		customers:  deps.Customers,
		activities: deps.Activities,
		uploader:   deps.Uploader,
		verifier:   deps.Verifier,
		directory:  deps.Directory,
		locker:     locker,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,

		lookupTimeout: deps.LookupTimeout,
	}
}

// Process routes one envelope. Unknown sources are logged and ignored;
// unverified senders are rejected with an audit entry and no records.
func (p *Pipeline) Process(ctx context.Context, env Envelope) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("ingestion panic", zap.Any("panic", r), zap.String("source", env.Source))
			result = errorResult("INTERNAL_ERROR", fmt.Sprintf("ingestion failed: %v", r))
		}
	}()

	source, known := domain.ParseSource(env.Source)
	if !known || source == domain.SourceWeb {
		// Generic handler: web envelopes arrive through the page router,
		// anything else is an unrecognized channel.
		p.logger.Info("ignoring envelope from unhandled source", zap.String("source", env.Source))
		return successResult("unrecognized source ignored", "", "")
	}

	email, err := p.resolveSender(ctx, source, env.Sender)
	if err != nil {
		p.logger.Error("sender resolution failed", zap.String("sender", env.Sender), zap.Error(err))
		return errorResult("EXTERNAL_SERVICE", "could not resolve sender identity")
	}

	verified, err := p.verifier.Verify(ctx, email)
	if err != nil {
		p.logger.Error("sender verification failed", zap.String("sender", email), zap.Error(err))
		return errorResult("EXTERNAL_SERVICE", "sender verification unavailable")
	}
	if !verified {
		p.rejectSender(ctx, source, email)
		return errorResult("UNAUTHORIZED_SENDER",
			fmt.Sprintf("sender %s is not a verified customer", email))
	}

	customer, err := p.customers.GetOrCreate(ctx, email, "")
	if err != nil {
		p.logger.Error("customer lookup failed", zap.String("email", email), zap.Error(err))
		return errorResult("EXTERNAL_SERVICE", "customer record unavailable")
	}

	switch source {
	case domain.SourceEmail:
		return p.processEmail(ctx, env, customer)
	default:
		return p.processConversational(ctx, env, source, customer)
	}
}

// processEmail always opens a fresh card. Unlike chat channels there is no
// existing-issue lookup for email; every inbound mail is a new issue.
func (p *Pipeline) processEmail(ctx context.Context, env Envelope, customer *domain.Customer) Result {
	title := strings.TrimSpace(env.Subject)
	if title == "" {
		title = titleFromContent(env.Content)
	}

	cardID := util.NewID("crd")
	attachments, uploaded, result := p.uploadAttachments(ctx, env, cardID)
	if result != nil {
		return *result
	}

	card, msg, err := p.writer.CreateCard(ctx, service.CardCreateInput{
		ID:          cardID,
		Title:       title,
		Source:      domain.SourceEmail,
		CreatedBy:   customer.Email,
		CustomerID:  customer.ID,
		Content:     env.Content,
		MessageType: domain.MessageTypeEmail,
		Attachments: attachments,
	})
	if err != nil {
		p.rollbackUploads(ctx, uploaded)
		p.logger.Error("email card creation failed", zap.Error(err))
		return errorResult("EXTERNAL_SERVICE", "could not create card")
	}
	messageID := ""
	if msg != nil {
		messageID = msg.ID
	}
	return successResult("card created from email", card.ID, messageID)
}

// processConversational appends to the active card for the conversation
// scope, or opens one when none exists. The step is serialized by a
// per-conversation claim so concurrent deliveries cannot both create.
func (p *Pipeline) processConversational(ctx context.Context, env Envelope, source domain.Source, customer *domain.Customer) Result {
	conversation := env.Conversation()
	claimKey := fmt.Sprintf("%s:%s:%s", customer.ID, source, conversation)
	release, acquired := p.locker.Acquire(ctx, claimKey)
	defer release()
	if !acquired {
		p.logger.Warn("processing conversation without claim", zap.String("key", claimKey))
	}

	active, err := p.cards.FindActive(ctx, customer.ID, source, conversation)
	if err != nil && !isNotFound(err) {
		p.logger.Error("active card lookup failed", zap.Error(err))
		return errorResult("EXTERNAL_SERVICE", "could not look up active card")
	}

	if active != nil {
		attachments, uploaded, result := p.uploadAttachments(ctx, env, active.ID)
		if result != nil {
			return *result
		}
		msg, err := p.writer.AppendMessage(ctx, active.ID, service.MessageInput{
			Content:     env.Content,
			Type:        domain.MessageTypeReply,
			CreatedBy:   customer.Email,
			Metadata:    conversationMetadata(env),
			Attachments: attachments,
		})
		if err != nil {
			p.rollbackUploads(ctx, uploaded)
			p.logger.Error("message append failed", zap.String("card_id", active.ID), zap.Error(err))
			return errorResult("EXTERNAL_SERVICE", "could not append message")
		}
		return successResult("message appended to active card", active.ID, msg.ID)
	}

	cardID := util.NewID("crd")
	attachments, uploaded, result := p.uploadAttachments(ctx, env, cardID)
	if result != nil {
		return *result
	}
	card, msg, err := p.writer.CreateCard(ctx, service.CardCreateInput{
		ID:          cardID,
		Title:       titleFromContent(env.Content),
		Source:      source,
		CreatedBy:   customer.Email,
		CustomerID:  customer.ID,
		Channel:     env.Channel,
		Space:       env.Space,
		Metadata:    conversationMetadata(env),
		Content:     env.Content,
		MessageType: domain.MessageTypeInitial,
		Attachments: attachments,
	})
	if err != nil {
		p.rollbackUploads(ctx, uploaded)
		p.logger.Error("conversational card creation failed", zap.Error(err))
		return errorResult("EXTERNAL_SERVICE", "could not create card")
	}
	messageID := ""
	if msg != nil {
		messageID = msg.ID
	}
	return successResult("card created from "+string(source)+" message", card.ID, messageID)
}

// uploadAttachments runs the batch through the storage gateway. Any
// per-file failure fails the whole call: already-uploaded objects from the
// batch are rolled back and a non-nil Result is returned.
func (p *Pipeline) uploadAttachments(ctx context.Context, env Envelope, namespace string) ([]service.AttachmentInput, []string, *Result) {
	if len(env.Attachments) == 0 {
		return nil, nil, nil
	}
	batch := p.uploader.Process(ctx, namespace, env.inboundFiles())

	var uploaded []string
	for _, fr := range batch.Files {
		if fr.Success {
			uploaded = append(uploaded, fr.StoragePath)
		}
	}
	if !batch.Success {
		p.rollbackUploads(ctx, uploaded)
		reasons := make([]string, 0, len(batch.Files))
		for _, fr := range batch.Files {
			if !fr.Success {
				reasons = append(reasons, fmt.Sprintf("%s: %s", fr.Name, fr.Error))
			}
		}
		result := errorResult("VALIDATION_FAILED", "attachment batch rejected: "+strings.Join(reasons, "; "))
		return nil, nil, &result
	}

	inputs := make([]service.AttachmentInput, 0, len(batch.Files))
	for _, fr := range batch.Files {
		inputs = append(inputs, service.AttachmentInput{
			Name:        fr.Name,
			MimeType:    fr.MimeType,
			SizeBytes:   fr.SizeBytes,
			StoragePath: fr.StoragePath,
		})
	}
	return inputs, uploaded, nil
}

func (p *Pipeline) rollbackUploads(ctx context.Context, paths []string) {
	for _, path := range paths {
		if err := p.uploader.Delete(ctx, path); err != nil {
			p.logger.Warn("upload rollback failed", zap.String("path", path), zap.Error(err))
		}
	}
}

// rejectSender logs the rejection and records it in the audit trail. No
// card or message is created and the sender receives no error record.
func (p *Pipeline) rejectSender(ctx context.Context, source domain.Source, email string) {
	p.logger.Warn("rejected unverified sender",
		zap.String("sender", email), zap.String("source", string(source)))
	entry := &domain.Activity{
		Type:  domain.ActivitySenderRejected,
		Actor: email,
		Details: map[string]any{
			"source": string(source),
		},
	}
	if err := p.activities.Create(ctx, entry); err != nil {
		p.logger.Warn("rejection activity write failed", zap.Error(err))
	}
	if p.dispatcher != nil {
		_ = p.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventSenderRejected,
			Actor:     email,
			Timestamp: time.Now(),
			Payload:   events.SenderRejectedPayload{Sender: email, Source: source},
		})
	}
}

func (p *Pipeline) resolveSender(ctx context.Context, source domain.Source, sender string) (string, error) {
	sender = strings.TrimSpace(sender)
	if strings.Contains(sender, "@") {
		return strings.ToLower(sender), nil
	}
	if p.directory == nil {
		return "", fmt.Errorf("no directory lookup configured for sender %q", sender)
	}
	if p.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.lookupTimeout)
		defer cancel()
	}
	return p.directory.ResolveEmail(ctx, source, sender)
}

func conversationMetadata(env Envelope) map[string]string {
	meta := map[string]string{}
	if env.Channel != "" {
		meta["channel"] = env.Channel
	}
	if env.Space != "" {
		meta["space"] = env.Space
	}
	return meta
}

func titleFromContent(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return "(no subject)"
	}
	if idx := strings.IndexByte(content, '\n'); idx > 0 {
		content = content[:idx]
	}
	if len(content) > 80 {
		content = content[:77] + "..."
	}
	return content
}

func isNotFound(err error) bool {
	de := util.ToDomainError(err)
	return de != nil && de.Code == "NOT_FOUND"
}
