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

const agentColumns = `id, email, name, password_hash, created_at`

// AgentRepository persists helpdesk operators.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository constructs repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	if agent.ID == "" {
		agent.ID = util.NewID("agt")
	}
	const query = `
        INSERT INTO agents (id, email, name, password_hash)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		agent.ID,
		strings.ToLower(agent.Email),
		agent.Name,
		agent.PasswordHash,
	).Scan(&agent.CreatedAt)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	query := fmt.Sprintf(`SELECT %s FROM agents WHERE email=$1`, agentColumns)
	rows, err := r.pool.Query(ctx, query, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	agent, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[domain.Agent])
	if err != nil {
		return nil, err
	}
	return &agent, nil
}
