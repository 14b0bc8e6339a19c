package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	httpapi "github.com/shestoi/warungpos/internal/api/http"
	"github.com/shestoi/warungpos/internal/config"
	"github.com/shestoi/warungpos/internal/event/kafka"
	"github.com/shestoi/warungpos/internal/logging"
	"github.com/shestoi/warungpos/internal/observability"
	"github.com/shestoi/warungpos/internal/repository"
	filerepo "github.com/shestoi/warungpos/internal/repository/file"
	"github.com/shestoi/warungpos/internal/repository/memory"
	mongorepo "github.com/shestoi/warungpos/internal/repository/mongo"
	postgresrepo "github.com/shestoi/warungpos/internal/repository/postgres"
	"github.com/shestoi/warungpos/internal/service"
	"github.com/shestoi/warungpos/internal/shutdown"
	"github.com/shestoi/warungpos/migrations"
)

// App содержит собранный POS сервис со всеми зависимостями
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	server   *http.Server
	shutdown *shutdown.Manager
}

// Build собирает приложение: логгер, телеметрия, хранилище, store,
// publisher, HTTP сервер. Все ресурсы регистрируются в shutdown менеджере
// в порядке создания и закрываются в обратном порядке.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(logging.Config{Env: string(cfg.AppEnv)})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	sm := shutdown.New(cfg.ShutdownTimeout, logger)
	sm.Add("logger", func(context.Context) error {
		logging.Sync(logger)
		return nil
	})

	otelShutdown, err := observability.Init(ctx, observability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTelEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	sm.Add("observability", otelShutdown)

	state, readiness, err := buildStateStore(ctx, cfg, logger, sm)
	if err != nil {
		return nil, err
	}

	var publisher service.SaleEventPublisher
	kafkaCfg, err := kafka.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("load kafka config: %w", err)
	}
	if kafkaCfg.Enabled() {
		kp := kafka.NewSaleEventPublisher(logger, kafkaCfg)
		sm.Add("kafka publisher", shutdown.CloseWriter(kp))
		publisher = kp
		logger.Info("sale event publishing enabled",
			zap.Strings("brokers", kafkaCfg.Brokers),
			zap.String("topic", kafkaCfg.Topic))
	}

	store, err := service.NewStore(ctx, state, logger, service.Options{
		AllowNegativeStock: cfg.AllowNegativeStock,
		Publisher:          publisher,
	})
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	handler := httpapi.NewHandler(store, logger)
	router := httpapi.NewRouter(handler, readiness, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	sm.Add("http server", shutdown.ShutdownHTTPServer(server))

	return &App{
		cfg:      cfg,
		logger:   logger,
		server:   server,
		shutdown: sm,
	}, nil
}

// buildStateStore создаёт StateStore согласно cfg.Storage и возвращает
// также readiness функцию для health endpoint
func buildStateStore(ctx context.Context, cfg config.Config, logger *zap.Logger, sm *shutdown.Manager) (repository.StateStore, func() bool, error) {
	alwaysReady := func() bool { return true }

	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data will not survive restarts")
		return memory.NewMemoryStore(), alwaysReady, nil

	case config.StorageFile:
		fs, err := filerepo.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("init file storage: %w", err)
		}
		logger.Info("using file storage", zap.String("dir", cfg.DataDir))
		return fs, alwaysReady, nil

	case config.StoragePostgres:
		if err := migrateUp(cfg.PostgresDSN); err != nil {
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}

		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		sm.Add("postgres pool", shutdown.ClosePool(pool))

		logger.Info("using postgres storage")
		readiness := func() bool {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx) == nil
		}
		return postgresrepo.NewRepository(pool), readiness, nil

	case config.StorageMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("ping mongo: %w", err)
		}
		sm.Add("mongo client", shutdown.DisconnectMongo(client))

		logger.Info("using mongo storage", zap.String("db", cfg.MongoDBName))
		readiness := func() bool {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx, readpref.Primary()) == nil
		}
		return mongorepo.NewRepository(client, cfg.MongoDBName), readiness, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage)
	}
}

// migrateUp применяет goose миграции через database/sql поверх pgx stdlib
func migrateUp(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

// Run запускает HTTP сервер и блокируется до сигнала завершения
func (a *App) Run() error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	done := make(chan struct{})
	go func() {
		a.shutdown.Wait()
		close(done)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case <-done:
		return nil
	}
}
