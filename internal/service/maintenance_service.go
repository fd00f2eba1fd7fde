package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// MaintenanceService repairs referential integrity and enforces retention.
// Every step is idempotent: the job is the compensating action for the
// system's non-transactional write paths.
type MaintenanceService struct {
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	activities  repository.ActivityRepository
	gateway     *storage.Gateway
	cfg         config.MaintenanceConfig
	retention   time.Duration
	logger      *zap.Logger
}

// NewMaintenanceService constructs the service.
func NewMaintenanceService(
	messages repository.MessageRepository,
	attachments repository.AttachmentRepository,
	activities repository.ActivityRepository,
	gateway *storage.Gateway,
	cfg config.MaintenanceConfig,
	storageCfg config.StorageConfig,
	logger *zap.Logger,
) *MaintenanceService {
	return &MaintenanceService{
		messages:    messages,
		attachments: attachments,
		activities:  activities,
		gateway:     gateway,
		cfg:         cfg,
		retention:   time.Duration(storageCfg.RetentionDays) * 24 * time.Hour,
		logger:      logger,
	}
}

// Run executes one maintenance pass. Steps are independent; a failing step
// is logged and the rest still run.
func (m *MaintenanceService) Run(ctx context.Context) {
	if err := m.retried(ctx, m.repairOrphans); err != nil {
		m.logger.Error("orphan repair failed", zap.Error(err))
	}
	if err := m.retried(ctx, m.trimActivities); err != nil {
		m.logger.Error("activity retention failed", zap.Error(err))
	}
	if err := m.retried(ctx, m.sweepStorage); err != nil {
		m.logger.Error("storage retention failed", zap.Error(err))
	}
}

func (m *MaintenanceService) retried(ctx context.Context, step func(context.Context) error) error {
	return util.Retry(ctx, m.cfg.RetryAttempts, m.cfg.RetryDelay(), func() error {
		return step(ctx)
	})
}

// repairOrphans deletes messages and attachments whose owning card is gone,
// including the orphaned attachments' stored objects.
func (m *MaintenanceService) repairOrphans(ctx context.Context) error {
	orphans, err := m.attachments.ListOrphans(ctx)
	if err != nil {
		return err
	}
	for _, att := range orphans {
		if err := m.gateway.Delete(ctx, att.StoragePath); err != nil {
			m.logger.Warn("orphaned object delete failed",
				zap.String("path", att.StoragePath), zap.Error(err))
		}
		if err := m.attachments.Delete(ctx, att.ID); err != nil {
			return err
		}
	}

	removed, err := m.messages.DeleteOrphans(ctx)
	if err != nil {
		return err
	}
	if removed > 0 || len(orphans) > 0 {
		m.logger.Info("orphans removed",
			zap.Int64("messages", removed), zap.Int("attachments", len(orphans)))
		m.recordRepair(ctx, removed, len(orphans))
	}
	return nil
}

func (m *MaintenanceService) recordRepair(ctx context.Context, messages int64, attachments int) {
	entry := &domain.Activity{
		Type:  domain.ActivityOrphansRemoved,
		Actor: "maintenance",
		Details: map[string]any{
			"messages":    messages,
			"attachments": attachments,
		},
	}
	if err := m.activities.Create(ctx, entry); err != nil {
		m.logger.Warn("repair activity write failed", zap.Error(err))
	}
}

func (m *MaintenanceService) trimActivities(ctx context.Context) error {
	days := m.cfg.ActivityRetentionDays
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	removed, err := m.activities.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		m.logger.Info("activities trimmed", zap.Int64("count", removed))
	}
	return nil
}

func (m *MaintenanceService) sweepStorage(ctx context.Context) error {
	deleted, err := m.gateway.Cleanup(ctx, m.retention)
	if err != nil {
		return err
	}
	if deleted > 0 {
		m.logger.Info("stored objects swept", zap.Int("count", deleted))
	}
	return nil
}
