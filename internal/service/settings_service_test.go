package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

func newSettingsFixture(defaults config.NotificationConfig) (*SettingsService, *fakeSettingsRepo, *fakeActivityRepo) {
	repo := &fakeSettingsRepo{}
	activities := &fakeActivityRepo{}
	return NewSettingsService(repo, activities, defaults, zap.NewNop()), repo, activities
}

func TestSettingsSetThenGet(t *testing.T) {
	svc, repo, activities := newSettingsFixture(config.NotificationConfig{})

	err := svc.Set(context.Background(), "admin@corp.test", "notifications.email.card_created", false)
	require.NoError(t, err)

	value, err := svc.Get(context.Background(), "notifications.email.card_created")
	require.NoError(t, err)
	assert.Equal(t, false, value)

	// whole-document rewrite: the nested structure exists in the stored doc
	notifications, ok := repo.doc["notifications"].(map[string]any)
	require.True(t, ok)
	email, ok := notifications["email"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, email["card_created"])

	assert.Len(t, activities.byType(domain.ActivitySettingsSaved), 1)
}

func TestSettingsGetMissingPath(t *testing.T) {
	svc, _, _ := newSettingsFixture(config.NotificationConfig{})

	_, err := svc.Get(context.Background(), "no.such.path")

	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", util.ToDomainError(err).Code)
}

func TestSettingsSetRefusesNonObjectSegment(t *testing.T) {
	svc, _, _ := newSettingsFixture(config.NotificationConfig{})
	require.NoError(t, svc.Set(context.Background(), "admin@corp.test", "limits.max", 10))

	err := svc.Set(context.Background(), "admin@corp.test", "limits.max.nested", true)

	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", util.ToDomainError(err).Code)
}

func TestSettingsLastWriterWins(t *testing.T) {
	svc, repo, _ := newSettingsFixture(config.NotificationConfig{})
	require.NoError(t, svc.Set(context.Background(), "a@corp.test", "theme", "dark"))
	require.NoError(t, svc.Replace(context.Background(), "b@corp.test", map[string]any{"theme": "light"}))

	assert.Equal(t, map[string]any{"theme": "light"}, repo.doc)
}

func TestTogglesFallBackToConfigDefaults(t *testing.T) {
	svc, _, _ := newSettingsFixture(config.NotificationConfig{EmailEnabled: true, WebhookEnable: false})
	ctx := context.Background()

	assert.True(t, svc.EmailEnabled(ctx, events.EventCardCreated))
	assert.False(t, svc.WebhookEnabled(ctx, events.EventCardCreated))
}

func TestTogglesReadSettingsOverride(t *testing.T) {
	svc, _, _ := newSettingsFixture(config.NotificationConfig{EmailEnabled: true})
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, "admin@corp.test", "notifications.email.card_closed", false))

	assert.False(t, svc.EmailEnabled(ctx, events.EventCardClosed))
	// other events still use the default
	assert.True(t, svc.EmailEnabled(ctx, events.EventCardCreated))
}

func TestGetPathAndSetPath(t *testing.T) {
	doc := map[string]any{}
	require.NoError(t, setPath(doc, "a.b.c", 42))

	value, ok := getPath(doc, "a.b.c")
	assert.True(t, ok)
	assert.Equal(t, 42, value)

	_, ok = getPath(doc, "a.b.missing")
	assert.False(t, ok)

	_, ok = getPath(doc, "a.b.c.too.deep")
	assert.False(t, ok)
}
