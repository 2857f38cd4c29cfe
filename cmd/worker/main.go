package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/panda1920/docker-kubernates/internal/infra"
	"github.com/panda1920/docker-kubernates/internal/worker"
)

func main() {
	godotenv.Load()

	logger, err := infra.NewLogger(infra.ParseLogConfig(), "worker")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if err := run(logger); err != nil {
		logger.Error("worker stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(logger *zap.Logger) error {
	secrets := infra.NewEnvSecrets()
	redisCfg := infra.ParseRedisConfig()
	cache := infra.NewCache(redisCfg, &secrets, logger)
	defer cache.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cache.KeepAlive(gctx)
		return nil
	})
	g.Go(func() error {
		return worker.New(cache, redisCfg.RetryDelay, logger).Run(gctx)
	})

	return g.Wait()
}
