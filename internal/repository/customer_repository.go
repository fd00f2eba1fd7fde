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

const customerColumns = `id, email, name, created_at, updated_at`

// CustomerRepository persists verified senders.
type CustomerRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetOrCreate(ctx context.Context, email, name string) (*domain.Customer, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository constructs repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE email=$1`, customerColumns)
	rows, err := r.pool.Query(ctx, query, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	customer, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domain.Customer])
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetOrCreate upserts by email. ON CONFLICT gives the insert get-or-insert
// semantics under concurrent delivery.
func (r *customerRepository) GetOrCreate(ctx context.Context, email, name string) (*domain.Customer, error) {
	query := fmt.Sprintf(`
        INSERT INTO customers (id, email, name)
        VALUES ($1, $2, $3)
        ON CONFLICT (email) DO UPDATE SET updated_at=NOW()
        RETURNING %s`, customerColumns)
	rows, err := r.pool.Query(ctx, query, util.NewID("cus"), strings.ToLower(email), name)
	if err != nil {
		return nil, err
	}
	customer, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domain.Customer])
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
