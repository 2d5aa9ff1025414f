package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/ogurasousui/codex-user-admin/internal/adapters/grpc/handler"
	"github.com/ogurasousui/codex-user-admin/internal/adapters/repository/memory"
	mongorepo "github.com/ogurasousui/codex-user-admin/internal/adapters/repository/mongo"
	"github.com/ogurasousui/codex-user-admin/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-user-admin/internal/adapters/rest"
	"github.com/ogurasousui/codex-user-admin/internal/core/user"
	"github.com/ogurasousui/codex-user-admin/internal/platform/config"
	mongodb "github.com/ogurasousui/codex-user-admin/internal/platform/db/mongo"
	pg "github.com/ogurasousui/codex-user-admin/internal/platform/db/postgres"
	"github.com/ogurasousui/codex-user-admin/internal/platform/logging"
	"github.com/ogurasousui/codex-user-admin/internal/platform/metrics"
	"github.com/ogurasousui/codex-user-admin/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(os.Stdout, cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	repo, tx, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	svc := user.NewService(repo, nil, tx,
		user.WithLogger(logger),
		user.WithListObserver(m),
	)

	grpcServer := server.New(cfg.Server.ListenAddr, handler.NewUserGrpcHandler(svc), logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gRPC server listening", slog.String("addr", cfg.Server.ListenAddr))
		return grpcServer.Run(gctx)
	})

	if cfg.Server.HTTPListenAddr != "" {
		router := rest.NewRouter(svc, rest.RouterOptions{
			Logger:         logger,
			Observer:       m,
			MetricsHandler: m.Handler(),
		})
		httpServer := server.NewHTTP(cfg.Server.HTTPListenAddr, router, cfg.Server.ShutdownTimeout)

		g.Go(func() error {
			logger.Info("HTTP gateway listening", slog.String("addr", cfg.Server.HTTPListenAddr))
			return httpServer.Run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

// openStore は storage.driver に応じたユーザーストアを構築します。
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (user.Repository, user.TransactionManager, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := pg.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init postgres pool: %w", err)
		}
		logger.Info("connected to postgres", slog.String("host", cfg.Database.Host), slog.String("database", cfg.Database.Name))
		return postgres.NewUserRepository(pool), pg.NewTransactionManager(pool), pool.Close, nil

	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init mongo: %w", err)
		}
		cleanup := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("failed to disconnect mongo", slog.String("error", err.Error()))
			}
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		logger.Info("connected to mongo", slog.String("database", cfg.Mongo.Database))
		repo := mongorepo.NewUserRepository(db.Collection(mongodb.CollectionUsers), mongorepo.WithLogger(logger))
		return repo, nil, cleanup, nil

	default:
		repo := memory.NewUserRepository()
		if cfg.Storage.Seed {
			if err := repo.Seed(ctx, memory.DefaultSeed()); err != nil {
				return nil, nil, nil, fmt.Errorf("seed memory store: %w", err)
			}
			logger.Info("seeded memory store", slog.Int("users", repo.Len()))
		}
		return repo, nil, func() {}, nil
	}
}
