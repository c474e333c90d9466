package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"photogallery/internal/cache"
	"photogallery/internal/config"
	"photogallery/internal/log"
	"photogallery/internal/queue"
	"photogallery/internal/storage"
	"photogallery/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	if client == nil {
		logger.Fatal().Msg("worker needs redis.addr")
	}
	defer client.Close()

	local, err := storage.NewLocal(cfg.Storage.Local)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init local storage")
	}

	processor := tasks.NewProcessor(
		local,
		func(driver string) (storage.Store, error) {
			return storage.NewRemote(cfg.Storage, driver)
		},
		tasks.Options{
			CleanupAge:  cfg.Worker.CleanupAge,
			PurgeRemote: cfg.Storage.PurgeRemote,
		},
		logger,
	)
	consumer := queue.NewConsumer(
		client,
		cfg.Worker.Stream,
		cfg.Worker.Group,
		cfg.Worker.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("worker exited cleanly")
}
