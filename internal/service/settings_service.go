package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// GlobalScope is the single settings document the service uses today.
const GlobalScope = "global"

// SettingsService exposes dot-path get/set over a scope's JSON document.
// Every set reads the full document and rewrites it wholesale; the last
// writer wins.
type SettingsService struct {
	repo       repository.SettingsRepository
	activities repository.ActivityRepository
	defaults   config.NotificationConfig
	logger     *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(repo repository.SettingsRepository, activities repository.ActivityRepository, defaults config.NotificationConfig, logger *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, activities: activities, defaults: defaults, logger: logger}
}

// Get resolves a dot-path such as "notifications.email.card_created".
func (s *SettingsService) Get(ctx context.Context, path string) (any, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	value, ok := getPath(doc, path)
	if !ok {
		return nil, util.NewNotFound("setting", map[string]any{"path": path})
	}
	return value, nil
}

// Set writes a value at a dot-path, creating intermediate objects as
// needed, then persists the whole document.
func (s *SettingsService) Set(ctx context.Context, actor, path string, value any) error {
	if strings.TrimSpace(path) == "" {
		return util.NewValidationError("setting path required", nil)
	}
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := setPath(doc, path, value); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, GlobalScope, doc); err != nil {
		return err
	}
	s.recordSave(ctx, actor, map[string]any{"path": path})
	return nil
}

// Document returns the full settings document.
func (s *SettingsService) Document(ctx context.Context) (map[string]any, error) {
	return s.load(ctx)
}

// Replace overwrites the whole document.
func (s *SettingsService) Replace(ctx context.Context, actor string, doc map[string]any) error {
	if doc == nil {
		doc = map[string]any{}
	}
	if err := s.repo.Save(ctx, GlobalScope, doc); err != nil {
		return err
	}
	s.recordSave(ctx, actor, map[string]any{"replaced": true})
	return nil
}

func (s *SettingsService) recordSave(ctx context.Context, actor string, details map[string]any) {
	if s.activities == nil {
		return
	}
	entry := &domain.Activity{Type: domain.ActivitySettingsSaved, Actor: actor, Details: details}
	if err := s.activities.Create(ctx, entry); err != nil && s.logger != nil {
		s.logger.Warn("settings activity write failed", zap.Error(err))
	}
}

func (s *SettingsService) load(ctx context.Context) (map[string]any, error) {
	doc, err := s.repo.Load(ctx, GlobalScope)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// EmailEnabled implements notify.Toggles.
func (s *SettingsService) EmailEnabled(ctx context.Context, event events.EventType) bool {
	return s.toggle(ctx, "notifications.email."+string(event), s.defaults.EmailEnabled)
}

// WebhookEnabled implements notify.Toggles.
func (s *SettingsService) WebhookEnabled(ctx context.Context, event events.EventType) bool {
	return s.toggle(ctx, "notifications.webhook."+string(event), s.defaults.WebhookEnable)
}

func (s *SettingsService) toggle(ctx context.Context, path string, fallback bool) bool {
	doc, err := s.load(ctx)
	if err != nil {
		return fallback
	}
	value, ok := getPath(doc, path)
	if !ok {
		return fallback
	}
	enabled, ok := value.(bool)
	if !ok {
		return fallback
	}
	return enabled
}

// getPath walks a dot-path through nested string-keyed maps.
func getPath(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// setPath writes value at a dot-path, materializing intermediate maps. It
// refuses to descend through a non-object value.
func setPath(doc map[string]any, path string, value any) error {
	parts := strings.Split(path, ".")
	node := doc
	for i, part := range parts {
		if i == len(parts)-1 {
			node[part] = value
			return nil
		}
		next, ok := node[part]
		if !ok {
			child := map[string]any{}
			node[part] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return util.NewValidationError("setting path crosses a non-object value",
				map[string]any{"path": path, "segment": part})
		}
		node = child
	}
	return nil
}
