package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

const messageColumns = `id, card_id, content, type, created_by, metadata, created_at`

// MessageRepository manages card conversation messages. Messages are
// append-only; there is no update path.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByCard(ctx context.Context, cardID string) ([]domain.Message, error)
	DeleteOrphans(ctx context.Context) (int64, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = util.NewID("msg")
	}
	if msg.Metadata == nil {
		msg.Metadata = map[string]string{}
	}
	const query = `
        INSERT INTO messages (id, card_id, content, type, created_by, metadata)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		msg.ID,
		msg.CardID,
		msg.Content,
		msg.Type,
		msg.CreatedBy,
		msg.Metadata,
	).Scan(&msg.CreatedAt)
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE id=$1`, messageColumns)
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	msg, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domain.Message])
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByCard(ctx context.Context, cardID string) ([]domain.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE card_id=$1 ORDER BY created_at ASC`, messageColumns)
	rows, err := r.pool.Query(ctx, query, cardID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.Message])
}

// DeleteOrphans removes messages whose owning card no longer exists.
func (r *messageRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM messages WHERE NOT EXISTS (SELECT 1 FROM cards WHERE cards.id = messages.card_id)`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
