package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
)

type fakeWriter struct {
	created  []service.CardCreateInput
	appended []service.MessageInput
	appendTo []string
	panics   bool
}

func (f *fakeWriter) CreateCard(ctx context.Context, input service.CardCreateInput) (*domain.Card, *domain.Message, error) {
	if f.panics {
		panic("writer exploded")
	}
	f.created = append(f.created, input)
	id := input.ID
	if id == "" {
		id = "crd_generated"
	}
	card := &domain.Card{ID: id, Title: input.Title, Source: input.Source}
	var msg *domain.Message
	if input.Content != "" {
		msg = &domain.Message{ID: "msg_seed", CardID: id}
	}
	return card, msg, nil
}

func (f *fakeWriter) AppendMessage(ctx context.Context, cardID string, input service.MessageInput) (*domain.Message, error) {
	f.appended = append(f.appended, input)
	f.appendTo = append(f.appendTo, cardID)
	return &domain.Message{ID: "msg_reply", CardID: cardID}, nil
}

type fakeFinder struct {
	active *domain.Card
}

func (f *fakeFinder) FindActive(ctx context.Context, customerID string, source domain.Source, conversation string) (*domain.Card, error) {
	if f.active == nil {
		return nil, pgx.ErrNoRows
	}
	return f.active, nil
}

type fakeCustomers struct{}

func (fakeCustomers) GetOrCreate(ctx context.Context, email, name string) (*domain.Customer, error) {
	return &domain.Customer{ID: "cus_1", Email: email}, nil
}

type fakeActivities struct {
	entries []domain.Activity
}

func (f *fakeActivities) Create(ctx context.Context, activity *domain.Activity) error {
	f.entries = append(f.entries, *activity)
	return nil
}

type fakeUploader struct {
	failName string
	uploaded []string
	deleted  []string
}

func (f *fakeUploader) Process(ctx context.Context, cardID string, files []storage.InboundFile) storage.BatchResult {
	result := storage.BatchResult{Success: true}
	for _, file := range files {
		fr := storage.FileResult{Name: file.Name, MimeType: file.MimeType, SizeBytes: int64(len(file.Content))}
		if file.Name == f.failName {
			fr.Error = "mime type not allowed"
			result.Success = false
		} else {
			fr.Success = true
			fr.StoragePath = fmt.Sprintf("attachments/%s/%s", cardID, file.Name)
			f.uploaded = append(f.uploaded, fr.StoragePath)
		}
		result.Files = append(result.Files, fr)
	}
	return result
}

func (f *fakeUploader) Delete(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

type fakeVerifier struct {
	verified bool
}

func (f *fakeVerifier) Verify(ctx context.Context, email string) (bool, error) {
	return f.verified, nil
}

type fakeDirectory struct {
	emails map[string]string
}

func (f *fakeDirectory) ResolveEmail(ctx context.Context, source domain.Source, userID string) (string, error) {
	email, ok := f.emails[userID]
	if !ok {
		return "", fmt.Errorf("no directory entry for %q", userID)
	}
	return email, nil
}

type deadlineDirectory struct {
	emails      map[string]string
	hadDeadline bool
}

func (d *deadlineDirectory) ResolveEmail(ctx context.Context, source domain.Source, userID string) (string, error) {
	_, d.hadDeadline = ctx.Deadline()
	email, ok := d.emails[userID]
	if !ok {
		return "", fmt.Errorf("no directory entry for %q", userID)
	}
	return email, nil
}

type pipelineFixture struct {
	pipeline   *Pipeline
	writer     *fakeWriter
	finder     *fakeFinder
	activities *fakeActivities
	uploader   *fakeUploader
	verifier   *fakeVerifier
	dispatcher *captureDispatcher
}

type captureDispatcher struct {
	events []events.Event
}

func (c *captureDispatcher) Publish(ctx context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		writer:     &fakeWriter{},
		finder:     &fakeFinder{},
		activities: &fakeActivities{},
		uploader:   &fakeUploader{},
		verifier:   &fakeVerifier{verified: true},
		dispatcher: &captureDispatcher{},
	}
	f.pipeline = NewPipeline(PipelineDependencies{
		Cards:      f.finder,
		Writer:     f.writer,
		Customers:  fakeCustomers{},
		Activities: f.activities,
		Uploader:   f.uploader,
		Verifier:   f.verifier,
		Directory:  &fakeDirectory{emails: map[string]string{"U123": "jane@customer.test"}},
		Locker:     NewNoopLocker(),
		Dispatcher: f.dispatcher,
		Logger:     zap.NewNop(),
	})
	return f
}

func TestEmailEnvelopeAlwaysCreatesCard(t *testing.T) {
	f := newPipelineFixture()
	// an active email card exists, but email never threads onto it
	f.finder.active = &domain.Card{ID: "crd_active", Source: domain.SourceEmail}

	result := f.pipeline.Process(context.Background(), Envelope{
		Source:  "email",
		Sender:  "jane@customer.test",
		Subject: "printer broken",
		Content: "it is on fire",
	})

	assert.Equal(t, StatusSuccess, result.Status)
	require.Len(t, f.writer.created, 1)
	created := f.writer.created[0]
	assert.Equal(t, domain.SourceEmail, created.Source)
	assert.Equal(t, domain.MessageTypeEmail, created.MessageType)
	assert.Equal(t, "printer broken", created.Title)
	assert.Empty(t, f.writer.appended)
	assert.Equal(t, result.CardID, created.ID)
	assert.Equal(t, "msg_seed", result.MessageID)
}

func TestEmailWithoutSubjectTitlesFromContent(t *testing.T) {
	f := newPipelineFixture()

	result := f.pipeline.Process(context.Background(), Envelope{
		Source:  "email",
		Sender:  "jane@customer.test",
		Content: "first line here\nsecond line",
	})

	assert.Equal(t, StatusSuccess, result.Status)
	require.Len(t, f.writer.created, 1)
	assert.Equal(t, "first line here", f.writer.created[0].Title)
}

func TestChatAppendsToActiveCard(t *testing.T) {
	f := newPipelineFixture()
	f.finder.active = &domain.Card{ID: "crd_active", Source: domain.SourceChat, Space: "general"}

	result := f.pipeline.Process(context.Background(), Envelope{
		Source:  "chat",
		Sender:  "jane@customer.test",
		Content: "still broken",
		Space:   "general",
	})

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Empty(t, f.writer.created)
	require.Len(t, f.writer.appended, 1)
	assert.Equal(t, []string{"crd_active"}, f.writer.appendTo)
	assert.Equal(t, domain.MessageTypeReply, f.writer.appended[0].Type)
	assert.Equal(t, "crd_active", result.CardID)
	assert.Equal(t, "msg_reply", result.MessageID)
}

func TestChatWithoutActiveCardCreatesOne(t *testing.T) {
	f := newPipelineFixture()

	result := f.pipeline.Process(context.Background(), Envelope{
		Source:  "slack",
		Sender:  "U123",
		Content: "help please",
		Channel: "support",
	})

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Empty(t, f.writer.appended)
	require.Len(t, f.writer.created, 1)
	created := f.writer.created[0]
	assert.Equal(t, domain.SourceSlack, created.Source)
	assert.Equal(t, domain.MessageTypeInitial, created.MessageType)
	assert.Equal(t, "support", created.Channel)
	// sender id resolved through the directory
	assert.Equal(t, "jane@customer.test", created.CreatedBy)
}

func TestDirectoryLookupIsBounded(t *testing.T) {
	f := newPipelineFixture()
	directory := &deadlineDirectory{emails: map[string]string{"U123": "jane@customer.test"}}
	f.pipeline = NewPipeline(PipelineDependencies{
		Cards:      f.finder,
		Writer:     f.writer,
		Customers:  fakeCustomers{},
		Activities: f.activities,
		Uploader:   f.uploader,
		Verifier:   f.verifier,
		Directory:  directory,
		Locker:     NewNoopLocker(),
		Dispatcher: f.dispatcher,
		Logger:     zap.NewNop(),

		LookupTimeout: time.Second,
	})

	result := f.pipeline.Process(context.Background(), Envelope{
		Source:  "slack",
		Sender:  "U123",
		Content: "help please",
		Channel: "support",
	})

	assert.Equal(t, StatusSuccess, result.Status)
	assert.True(t, directory.hadDeadline)
}

func TestUnverifiedSenderLeavesNoRecords(t *testing.T) {
	f := newPipelineFixture()
	f.verifier.verified = false

	result := f.pipeline.Process(context.Background(), Envelope{
		Source:  "email",
		Sender:  "stranger@evil.test",
		Content: "let me in",
	})

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "UNAUTHORIZED_SENDER", result.Code)
	assert.Empty(t, f.writer.created)
	assert.Empty(t, f.writer.appended)

	require.Len(t, f.activities.entries, 1)
	assert.Equal(t, domain.ActivitySenderRejected, f.activities.entries[0].Type)
	assert.Equal(t, "stranger@evil.test", f.activities.entries[0].Actor)

	require.Len(t, f.dispatcher.events, 1)
	assert.Equal(t, events.EventSenderRejected, f.dispatcher.events[0].Type)
}

func TestUnknownSourceIsIgnored(t *testing.T) {
	f := newPipelineFixture()

	result := f.pipeline.Process(context.Background(), Envelope{
		Source:  "carrier_pigeon",
		Sender:  "jane@customer.test",
		Content: "coo",
	})

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Empty(t, f.writer.created)
	assert.Empty(t, f.activities.entries)
}

func TestUnresolvableSenderFails(t *testing.T) {
	f := newPipelineFixture()

	result := f.pipeline.Process(context.Background(), Envelope{
		Source:  "slack",
		Sender:  "U999",
		Content: "who am i",
	})

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "EXTERNAL_SERVICE", result.Code)
	assert.Empty(t, f.writer.created)
}

func TestAttachmentBatchFailureRollsBackUploads(t *testing.T) {
	f := newPipelineFixture()
	f.uploader.failName = "bad.bin"

	result := f.pipeline.Process(context.Background(), Envelope{
		Source:  "email",
		Sender:  "jane@customer.test",
		Subject: "two files",
		Content: "see attached",
		Attachments: []EnvelopeFile{
			{Name: "ok.txt", MimeType: "text/plain", Content: []byte("fine")},
			{Name: "bad.bin", MimeType: "application/octet-stream", Content: []byte("nope")},
		},
	})

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "VALIDATION_FAILED", result.Code)
	assert.Contains(t, result.Message, "bad.bin")
	assert.Empty(t, f.writer.created)
	// the file that made it up was deleted again
	assert.Equal(t, f.uploader.uploaded, f.uploader.deleted)
}

func TestProcessRecoversFromPanic(t *testing.T) {
	f := newPipelineFixture()
	f.writer.panics = true

	result := f.pipeline.Process(context.Background(), Envelope{
		Source:  "email",
		Sender:  "jane@customer.test",
		Content: "boom",
	})

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "INTERNAL_ERROR", result.Code)
}
