package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shestoi/warungpos/internal/repository"
)

// Repository реализует StateStore используя PostgreSQL
// Снапшоты хранятся в таблице pos_state: один ряд на ключ, значение в jsonb
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый PostgreSQL StateStore
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// Load читает снапшот по ключу из pos_state
// Возвращает ErrNotFound, если ключ отсутствует
func (r *Repository) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM pos_state WHERE key = $1`,
		key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return data, nil
}

// Save записывает снапшот по ключу в pos_state
// Save идемпотентен: повторная запись того же ключа перезаписывает значение
func (r *Repository) Save(ctx context.Context, key string, data []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pos_state (key, data, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET
		   data = EXCLUDED.data,
		   updated_at = EXCLUDED.updated_at`,
		key, data)
	return err
}
