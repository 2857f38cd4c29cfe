package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/panda1920/docker-kubernates/internal/infra"
	"github.com/panda1920/docker-kubernates/internal/values"
	"github.com/panda1920/docker-kubernates/migrations"
)

func main() {
	godotenv.Load()

	logger, err := infra.NewLogger(infra.ParseLogConfig(), "server")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if err := run(logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(logger *zap.Logger) error {
	secrets := infra.NewEnvSecrets()

	dbCfg := infra.ParsePostgresDBConfig()
	db, err := infra.NewDB(dbCfg, &secrets)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := values.NewPostgresRepo(db)
	ensure, err := schemaStep(dbCfg, db, repo)
	if err != nil {
		return err
	}
	schema := values.NewSchemaInitializer(ensure, values.WithSchemaLogger(logger))

	cache := infra.NewCache(infra.ParseRedisConfig(), &secrets, logger)
	defer cache.Close()

	cfg := values.ParseServerConfig()
	server := values.NewServer(cfg, values.NewApp(repo, cache, cfg.MaxIndex), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schema.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cache.KeepAlive(gctx)
		return nil
	})
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	})

	return g.Wait()
}

func schemaStep(cfg *infra.PostgresDBConfig, db *sql.DB, repo *values.PostgresRepo) (func(context.Context) error, error) {
	switch cfg.SchemaMode {
	case infra.SchemaModeExec:
		return repo.EnsureTable, nil
	case infra.SchemaModeMigrate:
		return func(ctx context.Context) error {
			return infra.Migrate(ctx, db, migrations.FS, migrations.ValuesDir)
		}, nil
	default:
		return nil, fmt.Errorf("unknown schema mode %q", cfg.SchemaMode)
	}
}
