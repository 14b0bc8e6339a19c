//go:build integration

package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/shestoi/warungpos/internal/repository"
)

func TestRepository_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Поднимаем MongoDB контейнер без auth
	mongoC, err := mongodb.RunContainer(ctx,
		tc.WithImage("mongo:6"),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, mongoC.Terminate(ctx)) }()

	mongoURI, err := mongoC.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(ctx) }()

	// Ждём готовности MongoDB (ping с retry)
	var pingErr error
	for i := 0; i < 20; i++ {
		pingErr = client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
		if pingErr == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, pingErr, "MongoDB did not become ready in time")

	repo := NewRepository(client, "warungpos_test")

	t.Run("Save and Load", func(t *testing.T) {
		payload := []byte(`[{"id":1,"transactionNumber":"TRX1718443200000","total":12000}]`)

		err := repo.Save(ctx, repository.KeyTransactions, payload)
		require.NoError(t, err)

		got, err := repo.Load(ctx, repository.KeyTransactions)
		require.NoError(t, err)
		require.Equal(t, payload, got)
	})

	t.Run("Save overwrites snapshot", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, repository.KeyCounters, []byte(`{"transactions":1}`)))
		require.NoError(t, repo.Save(ctx, repository.KeyCounters, []byte(`{"transactions":2}`)))

		got, err := repo.Load(ctx, repository.KeyCounters)
		require.NoError(t, err)
		require.Equal(t, []byte(`{"transactions":2}`), got)
	})

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := repo.Load(ctx, "missing")
		require.Error(t, err)
		require.True(t, errors.Is(err, repository.ErrNotFound), "Expected ErrNotFound, got: %v", err)
	})
}
