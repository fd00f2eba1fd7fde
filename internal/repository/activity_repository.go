package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

const activityColumns = `id, type, actor, card_id, details, created_at`

// ActivityRepository stores append-only audit entries.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByCard(ctx context.Context, cardID string, limit int) ([]domain.Activity, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Activity, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	if activity.ID == "" {
		activity.ID = util.NewID("act")
	}
	if activity.Details == nil {
		activity.Details = map[string]any{}
	}
	const query = `
        INSERT INTO activities (id, type, actor, card_id, details)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		activity.ID,
		activity.Type,
		activity.Actor,
		activity.CardID,
		activity.Details,
	).Scan(&activity.CreatedAt)
}

func (r *activityRepository) ListByCard(ctx context.Context, cardID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE card_id=$1 ORDER BY created_at DESC LIMIT %d`,
		activityColumns, limit)
	rows, err := r.pool.Query(ctx, query, cardID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.Activity])
}

func (r *activityRepository) ListRecent(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM activities ORDER BY created_at DESC LIMIT %d`, activityColumns, limit)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.Activity])
}

// DeleteOlderThan trims the audit log past the retention window.
func (r *activityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
