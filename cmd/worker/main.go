package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/agrovault/coldchain-service/internal/core/services/intake"
	"github.com/agrovault/coldchain-service/internal/infrastructure/cache"
	"github.com/agrovault/coldchain-service/internal/infrastructure/database"
	"github.com/agrovault/coldchain-service/internal/infrastructure/database/repositories"
	"github.com/agrovault/coldchain-service/internal/infrastructure/feed"
	"github.com/agrovault/coldchain-service/internal/infrastructure/manifest"
	"github.com/agrovault/coldchain-service/internal/infrastructure/queue"
	"github.com/agrovault/coldchain-service/internal/pkg/config"
	"github.com/agrovault/coldchain-service/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.Initialize(cfg.Environment)

	db, err := database.NewPostgresDB(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(&cfg.Cache, appLogger)
	if err != nil {
		appLogger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	batchRepo := repositories.NewBatchRepository(db.DB, appLogger)
	publisher := feed.NewPublisher(redisCache, cfg.Monitor.FeedChannel, appLogger)
	intakeService := intake.NewService(batchRepo, publisher, appLogger)

	manifestStore, err := manifest.NewStore(&manifest.StoreConfig{BasePath: cfg.Monitor.ManifestDir}, appLogger)
	if err != nil {
		appLogger.Error("failed to create manifest store", "error", err)
		os.Exit(1)
	}
	registry := manifest.NewRegistry(nil)
	importer := intake.NewImporter(intakeService, registry, manifestStore, appLogger)

	queueClient, err := queue.NewAsynqClient(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to create asynq client", "error", err)
		os.Exit(1)
	}
	defer queueClient.Close()

	dispatcher := manifest.NewDispatcher(manifestStore, registry, queueClient, &manifest.DispatcherConfig{
		ScanInterval: time.Duration(cfg.Monitor.ManifestScanSeconds) * time.Second,
		Retention:    time.Duration(cfg.Monitor.ManifestRetentionDays) * 24 * time.Hour,
	}, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go dispatcher.Run(ctx)

	server, err := queue.NewAsynqServer(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to create asynq server", "error", err)
		os.Exit(1)
	}

	server.HandleFunc(intake.TaskTypeRecompute, intakeService.HandleRecomputeTask)
	server.HandleFunc(intake.TaskTypeRecomputeAll, intakeService.HandleRecomputeAllTask)
	server.HandleFunc(intake.TaskTypeExpireSweep, intakeService.HandleExpireSweepTask)
	server.HandleFunc(intake.TaskTypeImportManifest, importer.HandleImportManifestTask)

	scheduler := newScheduler(cfg)
	if err := registerPeriodicTasks(scheduler, cfg); err != nil {
		appLogger.Error("failed to register periodic tasks", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			appLogger.Error("scheduler stopped", "error", err)
		}
	}()

	appLogger.Info("inventory worker started",
		"recompute_minutes", cfg.Monitor.RecomputeMinutes,
		"expiry_sweep_minutes", cfg.Monitor.ExpirySweepMinutes,
		"manifest_dir", cfg.Monitor.ManifestDir,
	)

	// Run blocks until SIGINT/SIGTERM and drains in-flight tasks.
	if err := server.Start(); err != nil {
		appLogger.Error("asynq server exited", "error", err)
		os.Exit(1)
	}

	scheduler.Shutdown()
}

func newScheduler(cfg *config.Config) *asynq.Scheduler {
	return asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		},
		nil,
	)
}

func registerPeriodicTasks(scheduler *asynq.Scheduler, cfg *config.Config) error {
	recomputeSpec := fmt.Sprintf("@every %dm", cfg.Monitor.RecomputeMinutes)
	if _, err := scheduler.Register(recomputeSpec, intake.NewRecomputeAllTask()); err != nil {
		return fmt.Errorf("failed to register recompute schedule: %w", err)
	}

	sweepSpec := fmt.Sprintf("@every %dm", cfg.Monitor.ExpirySweepMinutes)
	if _, err := scheduler.Register(sweepSpec, intake.NewExpireSweepTask()); err != nil {
		return fmt.Errorf("failed to register expiry sweep schedule: %w", err)
	}
	return nil
}
