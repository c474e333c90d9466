package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"photogallery/internal/cache"
	"photogallery/internal/config"
	"photogallery/internal/database"
	"photogallery/internal/events"
	"photogallery/internal/handlers"
	"photogallery/internal/jobs"
	"photogallery/internal/log"
	"photogallery/internal/metrics"
	"photogallery/internal/repository"
	"photogallery/internal/server"
	"photogallery/internal/service"
	"photogallery/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	if redisClient == nil {
		logger.Warn().Msg("redis not configured, events disabled")
	}

	// Local storage stays mounted under any driver so earlier uploads keep resolving.
	local, err := storage.NewLocal(cfg.Storage.Local)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init local storage")
	}
	store, err := activeStore(ctx, cfg.Storage, local, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to init object store")
	}

	provider, shutdownMetrics, err := metrics.NewMeterProvider(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init metrics")
	}
	recorder, err := metrics.NewRecorder(provider)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create instruments")
	}

	publisher := events.NewPublisher(redisClient, cfg.Worker.Stream)
	photos := repository.NewPhotoRepository(db.Gorm)
	uploadService := service.NewUploadService(photos, store, publisher, recorder, int64(cfg.Upload.MaxFileSize), logger)
	photoService := service.NewPhotoService(photos, local, publisher, recorder, cfg.Gallery.PageSize, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, db, redisClient, uploadService, photoService)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, local)

	scheduler := jobs.NewScheduler(publisher, cfg.Worker.CleanupSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	logger.Info().
		Str("storage", store.Driver()).
		Str("database", cfg.Database.Driver).
		Str("max_file_size", cfg.Upload.MaxFileSize.String()).
		Int("page_size", cfg.Gallery.PageSize).
		Msg("gallery api configured")

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, db, redisClient, shutdownMetrics)
}

func activeStore(ctx context.Context, cfg config.StorageConfig, local *storage.Local, logger zerolog.Logger) (storage.Store, error) {
	if cfg.Driver == local.Driver() {
		return local, nil
	}
	store, err := storage.NewRemote(cfg, cfg.Driver)
	if err != nil {
		return nil, err
	}
	if m, ok := store.(*storage.Minio); ok {
		if err := m.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Str("bucket", cfg.Minio.Bucket).Msg("ensure bucket failed")
		}
	}
	return store, nil
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *database.DB, redisClient *redis.Client, shutdownMetrics func(context.Context) error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop(5 * time.Second)

	if err := shutdownMetrics(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("metrics shutdown error")
	}
	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("database close error")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
