package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// cardColumns is the canonical SELECT list. Rows are decoded by column name
// (RowToStructByName), so reordering here cannot silently corrupt decoding.
const cardColumns = `id, title, status, source, created_by, assigned_to, labels, metadata,
       customer_id, channel, space, created_at, updated_at`

// CardFilter captures list parameters. Only present fields are ANDed into
// the WHERE clause.
type CardFilter struct {
	Status     *domain.CardStatus
	AssignedTo *string
	CreatedBy  *string
	Label      *string
	Limit      int
}

// CardPatch carries the fields an update may touch. Nil fields are left
// untouched; updated_at is always bumped, even for an empty patch.
type CardPatch struct {
	Title      *string
	Status     *domain.CardStatus
	AssignedTo *string
	Labels     *[]string
	Metadata   *map[string]string
}

// CardRepository encapsulates card persistence.
type CardRepository interface {
	Create(ctx context.Context, card *domain.Card) error
	Update(ctx context.Context, id string, patch CardPatch) (*domain.Card, error)
	GetByID(ctx context.Context, id string) (*domain.Card, error)
	List(ctx context.Context, filter CardFilter) ([]domain.Card, error)
	FindActive(ctx context.Context, customerID string, source domain.Source, conversation string) (*domain.Card, error)
	DeleteCascade(ctx context.Context, id string) error
	Touch(ctx context.Context, id string) error
}

type cardRepository struct {
	pool *pgxpool.Pool
}

// NewCardRepository instantiates repository.
func NewCardRepository(pool *pgxpool.Pool) CardRepository {
	return &cardRepository{pool: pool}
}

func (r *cardRepository) Create(ctx context.Context, card *domain.Card) error {
	if card.ID == "" {
		card.ID = util.NewID("crd")
	}
	if card.Labels == nil {
		card.Labels = []string{}
	}
	if card.Metadata == nil {
		card.Metadata = map[string]string{}
	}
	const query = `
        INSERT INTO cards (id, title, status, source, created_by, assigned_to, labels, metadata, customer_id, channel, space)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		card.ID,
		card.Title,
		card.Status,
		card.Source,
		card.CreatedBy,
		card.AssignedTo,
		card.Labels,
		card.Metadata,
		card.CustomerID,
		card.Channel,
		card.Space,
	).Scan(&card.CreatedAt, &card.UpdatedAt)
}

func (r *cardRepository) Update(ctx context.Context, id string, patch CardPatch) (*domain.Card, error) {
	set, args := buildCardUpdate(patch)
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE cards SET %s WHERE id=$%d`, set, len(args))
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

// buildCardUpdate assembles the SET clause from present patch fields. The
// updated_at bump always comes first so an empty patch is still a valid
// statement.
func buildCardUpdate(patch CardPatch) (string, []any) {
	clauses := []string{"updated_at=NOW()"}
	args := []any{}

	add := func(col string, val any) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf("%s=$%d", col, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.AssignedTo != nil {
		add("assigned_to", *patch.AssignedTo)
	}
	if patch.Labels != nil {
		add("labels", *patch.Labels)
	}
	if patch.Metadata != nil {
		add("metadata", *patch.Metadata)
	}
	return strings.Join(clauses, ", "), args
}

func (r *cardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE id=$1`, cardColumns)
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	card, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domain.Card])
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) List(ctx context.Context, filter CardFilter) ([]domain.Card, error) {
	where, args, limit := buildCardWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM cards WHERE %s ORDER BY updated_at DESC LIMIT %d`,
		cardColumns, where, limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[domain.Card])
}

// buildCardWhere ANDs only the filters that are present.
func buildCardWhere(filter CardFilter) (string, []any, int) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.Label != nil {
		args = append(args, fmt.Sprintf(`["%s"]`, *filter.Label))
		clauses = append(clauses, fmt.Sprintf("labels @> $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	return strings.Join(clauses, " AND "), args, limit
}

// FindActive returns the most recently updated non-closed card scoped to
// (customer, source, channel-or-space). First match wins under concurrent
// creation; the ingestion pipeline serializes callers with a claim lock.
func (r *cardRepository) FindActive(ctx context.Context, customerID string, source domain.Source, conversation string) (*domain.Card, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM cards
        WHERE customer_id=$1 AND source=$2 AND (channel=$3 OR space=$3) AND status <> $4
        ORDER BY updated_at DESC LIMIT 1`, cardColumns)
	rows, err := r.pool.Query(ctx, query, customerID, source, conversation, domain.CardStatusClosed)
	if err != nil {
		return nil, err
	}
	card, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domain.Card])
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// DeleteCascade removes the card and all dependent rows in one transaction.
// Stored objects are the caller's responsibility once this commits.
func (r *cardRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, stmt := range []string{
		`DELETE FROM attachments WHERE card_id=$1`,
		`DELETE FROM messages WHERE card_id=$1`,
		`DELETE FROM activities WHERE card_id=$1`,
	} {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return err
		}
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM cards WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

// Touch bumps updated_at, advancing the card in active-issue ordering.
func (r *cardRepository) Touch(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE cards SET updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
