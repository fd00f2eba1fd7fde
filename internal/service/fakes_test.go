package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// In-memory repository fakes shared by the service tests.

type fakeCardRepo struct {
	cards    map[string]*domain.Card
	touched  []string
	cascaded []string
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: map[string]*domain.Card{}}
}

func (f *fakeCardRepo) Create(ctx context.Context, card *domain.Card) error {
	if card.ID == "" {
		card.ID = util.NewID("crd")
	}
	now := time.Now()
	card.CreatedAt = now
	card.UpdatedAt = now
	clone := *card
	f.cards[card.ID] = &clone
	return nil
}

func (f *fakeCardRepo) Update(ctx context.Context, id string, patch repository.CardPatch) (*domain.Card, error) {
	card, ok := f.cards[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Title != nil {
		card.Title = *patch.Title
	}
	if patch.Status != nil {
		card.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		card.AssignedTo = patch.AssignedTo
	}
	if patch.Labels != nil {
		card.Labels = *patch.Labels
	}
	if patch.Metadata != nil {
		card.Metadata = *patch.Metadata
	}
	card.UpdatedAt = time.Now()
	clone := *card
	return &clone, nil
}

func (f *fakeCardRepo) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	card, ok := f.cards[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *card
	return &clone, nil
}

func (f *fakeCardRepo) List(ctx context.Context, filter repository.CardFilter) ([]domain.Card, error) {
	var out []domain.Card
	for _, card := range f.cards {
		if filter.Status != nil && card.Status != *filter.Status {
			continue
		}
		if filter.AssignedTo != nil && (card.AssignedTo == nil || *card.AssignedTo != *filter.AssignedTo) {
			continue
		}
		out = append(out, *card)
	}
	return out, nil
}

func (f *fakeCardRepo) FindActive(ctx context.Context, customerID string, source domain.Source, conversation string) (*domain.Card, error) {
	var best *domain.Card
	for _, card := range f.cards {
		if card.CustomerID != customerID || card.Source != source || card.Status == domain.CardStatusClosed {
			continue
		}
		if card.Channel != conversation && card.Space != conversation {
			continue
		}
		if best == nil || card.UpdatedAt.After(best.UpdatedAt) {
			best = card
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	clone := *best
	return &clone, nil
}

func (f *fakeCardRepo) DeleteCascade(ctx context.Context, id string) error {
	if _, ok := f.cards[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.cards, id)
	f.cascaded = append(f.cascaded, id)
	return nil
}

func (f *fakeCardRepo) Touch(ctx context.Context, id string) error {
	card, ok := f.cards[id]
	if !ok {
		return pgx.ErrNoRows
	}
	card.UpdatedAt = card.UpdatedAt.Add(time.Millisecond)
	f.touched = append(f.touched, id)
	return nil
}

type fakeMessageRepo struct {
	messages       []*domain.Message
	orphansRemoved int64
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = util.NewID("msg")
	}
	msg.CreatedAt = time.Now()
	clone := *msg
	f.messages = append(f.messages, &clone)
	return nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	for _, msg := range f.messages {
		if msg.ID == id {
			clone := *msg
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeMessageRepo) ListByCard(ctx context.Context, cardID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, msg := range f.messages {
		if msg.CardID == cardID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	return f.orphansRemoved, nil
}

type fakeAttachmentRepo struct {
	attachments []*domain.Attachment
	orphans     []domain.Attachment
	deleted     []string
}

func (f *fakeAttachmentRepo) Create(ctx context.Context, attachment *domain.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = util.NewID("att")
	}
	attachment.CreatedAt = time.Now()
	clone := *attachment
	f.attachments = append(f.attachments, &clone)
	return nil
}

func (f *fakeAttachmentRepo) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	for _, att := range f.attachments {
		if att.ID == id {
			clone := *att
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAttachmentRepo) ListByCard(ctx context.Context, cardID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, att := range f.attachments {
		if att.CardID == cardID {
			out = append(out, *att)
		}
	}
	return out, nil
}

func (f *fakeAttachmentRepo) ListByMessage(ctx context.Context, messageID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, att := range f.attachments {
		if att.MessageID != nil && *att.MessageID == messageID {
			out = append(out, *att)
		}
	}
	return out, nil
}

func (f *fakeAttachmentRepo) ListOrphans(ctx context.Context) ([]domain.Attachment, error) {
	return f.orphans, nil
}

func (f *fakeAttachmentRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	kept := f.attachments[:0]
	for _, att := range f.attachments {
		if att.ID != id {
			kept = append(kept, att)
		}
	}
	f.attachments = kept
	return nil
}

type fakeActivityRepo struct {
	entries []domain.Activity
	trimmed int64
}

func (f *fakeActivityRepo) Create(ctx context.Context, activity *domain.Activity) error {
	if activity.ID == "" {
		activity.ID = util.NewID("act")
	}
	activity.CreatedAt = time.Now()
	f.entries = append(f.entries, *activity)
	return nil
}

func (f *fakeActivityRepo) ListByCard(ctx context.Context, cardID string, limit int) ([]domain.Activity, error) {
	var out []domain.Activity
	for _, entry := range f.entries {
		if entry.CardID != nil && *entry.CardID == cardID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) ListRecent(ctx context.Context, limit int) ([]domain.Activity, error) {
	return f.entries, nil
}

func (f *fakeActivityRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return f.trimmed, nil
}

func (f *fakeActivityRepo) byType(activityType domain.ActivityType) []domain.Activity {
	var out []domain.Activity
	for _, entry := range f.entries {
		if entry.Type == activityType {
			out = append(out, entry)
		}
	}
	return out
}

type fakeSettingsRepo struct {
	doc map[string]any
}

func (f *fakeSettingsRepo) Load(ctx context.Context, scope string) (map[string]any, error) {
	if f.doc == nil {
		return nil, pgx.ErrNoRows
	}
	return f.doc, nil
}

func (f *fakeSettingsRepo) Save(ctx context.Context, scope string, data map[string]any) error {
	f.doc = data
	return nil
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) Put(key string, data []byte, mimeType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStore) Get(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return data, nil
}

func (f *fakeObjectStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) List(prefix string) ([]storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ObjectInfo
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, LastModified: time.Now()})
		}
	}
	return out, nil
}

type captureDispatcher struct {
	events []events.Event
}

func (c *captureDispatcher) Publish(ctx context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (c *captureDispatcher) byType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, event := range c.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
