//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib" //для goose миграций

	"github.com/shestoi/warungpos/internal/repository"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()

	// Поднимаем PostgreSQL контейнер через testcontainers
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("warungpos"),
		postgres.WithUsername("pos_user"),
		postgres.WithPassword("pos_password"),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, postgresContainer.Terminate(ctx))
	}()

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Открываем *sql.DB через pgx stdlib для goose миграций
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	// Ждём готовности БД через ping с retry
	var pingErr error
	for i := 0; i < 10; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, pingErr, "Failed to ping database after retries")

	// Вычисляем путь к migrations относительно текущего файла
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	// Текущий файл: internal/repository/postgres/repository_integration_test.go
	// Нужно получить: <module root>/migrations
	testDir := filepath.Dir(filename)
	moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(testDir)))
	migrationsDir := filepath.Join(moduleRoot, "migrations")

	err = goose.UpContext(ctx, db, migrationsDir)
	require.NoError(t, err, "Failed to run migrations")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)

	t.Run("Save and Load", func(t *testing.T) {
		payload := []byte(`[{"id":1,"code":"P001","name":"Indomie Goreng","price":3500,"stock":100,"minStock":10}]`)

		err := repo.Save(ctx, repository.KeyProducts, payload)
		require.NoError(t, err)

		got, err := repo.Load(ctx, repository.KeyProducts)
		require.NoError(t, err)
		require.JSONEq(t, string(payload), string(got))
	})

	t.Run("Save overwrites snapshot", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, repository.KeyCounters, []byte(`{"products":8}`)))
		require.NoError(t, repo.Save(ctx, repository.KeyCounters, []byte(`{"products":9}`)))

		got, err := repo.Load(ctx, repository.KeyCounters)
		require.NoError(t, err)
		require.JSONEq(t, `{"products":9}`, string(got))
	})

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := repo.Load(ctx, "missing")
		require.Error(t, err)
		require.True(t, errors.Is(err, repository.ErrNotFound), "Expected ErrNotFound, got: %v", err)
	})
}
