package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository reads and rewrites a scope's settings document
// wholesale. There is no merge; the last writer wins.
type SettingsRepository interface {
	Load(ctx context.Context, scope string) (map[string]any, error)
	Save(ctx context.Context, scope string, data map[string]any) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository constructs repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Load(ctx context.Context, scope string) (map[string]any, error) {
	var data map[string]any
	err := r.pool.QueryRow(ctx, `SELECT data FROM settings WHERE scope=$1`, scope).Scan(&data)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *settingsRepository) Save(ctx context.Context, scope string, data map[string]any) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO settings (scope, data, updated_at) VALUES ($1, $2, NOW())
        ON CONFLICT (scope) DO UPDATE SET data=EXCLUDED.data, updated_at=NOW()`,
		scope, data)
	return err
}
