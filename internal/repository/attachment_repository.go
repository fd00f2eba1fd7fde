package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

const attachmentColumns = `id, card_id, message_id, name, mime_type, size_bytes, storage_path, created_at`

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	ListByCard(ctx context.Context, cardID string) ([]domain.Attachment, error)
	ListByMessage(ctx context.Context, messageID string) ([]domain.Attachment, error)
	ListOrphans(ctx context.Context) ([]domain.Attachment, error)
	Delete(ctx context.Context, id string) error
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = util.NewID("att")
	}
	const query = `
        INSERT INTO attachments (id, card_id, message_id, name, mime_type, size_bytes, storage_path)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		attachment.ID,
		attachment.CardID,
		attachment.MessageID,
		attachment.Name,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.StoragePath,
	).Scan(&attachment.CreatedAt)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	query := fmt.Sprintf(`SELECT %s FROM attachments WHERE id=$1`, attachmentColumns)
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	attachment, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domain.Attachment])
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByCard(ctx context.Context, cardID string) ([]domain.Attachment, error) {
	query := fmt.Sprintf(`SELECT %s FROM attachments WHERE card_id=$1 ORDER BY created_at ASC`, attachmentColumns)
	rows, err := r.pool.Query(ctx, query, cardID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.Attachment])
}

func (r *attachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]domain.Attachment, error) {
	query := fmt.Sprintf(`SELECT %s FROM attachments WHERE message_id=$1 ORDER BY created_at ASC`, attachmentColumns)
	rows, err := r.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.Attachment])
}

// ListOrphans returns attachments whose owning card no longer exists, so the
// maintenance job can remove both the rows and the stored objects.
func (r *attachmentRepository) ListOrphans(ctx context.Context) ([]domain.Attachment, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM attachments WHERE NOT EXISTS (SELECT 1 FROM cards WHERE cards.id = attachments.card_id)`,
		attachmentColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.Attachment])
}

func (r *attachmentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM attachments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
