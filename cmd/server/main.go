package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/agrovault/coldchain-service/internal/core/services/alerts"
	"github.com/agrovault/coldchain-service/internal/core/services/intake"
	"github.com/agrovault/coldchain-service/internal/core/services/livecache"
	"github.com/agrovault/coldchain-service/internal/infrastructure/cache"
	"github.com/agrovault/coldchain-service/internal/infrastructure/database"
	"github.com/agrovault/coldchain-service/internal/infrastructure/database/repositories"
	"github.com/agrovault/coldchain-service/internal/infrastructure/feed"
	"github.com/agrovault/coldchain-service/internal/infrastructure/queue"
	"github.com/agrovault/coldchain-service/internal/pkg/config"
	"github.com/agrovault/coldchain-service/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.LogConfig()

	appLogger := logger.Initialize(cfg.Environment)

	db, err := database.NewPostgresDB(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		appLogger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	redisCache, err := cache.NewRedisCache(&cfg.Cache, appLogger)
	if err != nil {
		appLogger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	batchRepo := repositories.NewBatchRepository(db.DB, appLogger)
	alertRepo := repositories.NewAlertRepository(db.DB, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scope := monitorScope(cfg, appLogger)

	// Live inventory view kept in sync with the change feed.
	changeFeed := feed.NewRedisFeed(batchRepo, redisCache, cfg.Monitor.FeedChannel, appLogger)
	inventory := livecache.New(changeFeed, livecache.Scope{WarehouseID: scope.WarehouseID}, appLogger)
	if err := inventory.Initialize(ctx); err != nil {
		// Subscription may already be live; a later retry refills the view.
		appLogger.Warn("initial inventory load failed", "error", err)
	}
	defer inventory.Teardown()

	// Unacknowledged alert badge for the configured scope.
	aggregator := alerts.New(alerts.Config{
		RefreshInterval: time.Duration(cfg.Monitor.AlertRefreshSeconds) * time.Second,
		OrderAlertRoles: alerts.DefaultConfig().OrderAlertRoles,
	}, appLogger)
	aggregator.AddSource(repositories.NewEnvironmentAlertSource(alertRepo))
	aggregator.AddRoleGatedSource(repositories.NewOrderAlertSource(alertRepo))

	ackSignal := feed.NewAckSignal(redisCache, cfg.Monitor.AckChannel, appLogger)
	acknowledged, cancelAck, err := ackSignal.Listen(ctx)
	if err != nil {
		appLogger.Warn("acknowledged signal unavailable, polling only", "error", err)
	} else {
		defer cancelAck()
	}

	go aggregator.Run(ctx, scope, acknowledged)

	queueClient, err := queue.NewAsynqClient(cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to create asynq client", "error", err)
		os.Exit(1)
	}
	defer queueClient.Close()

	go repairScores(ctx, inventory, queueClient, appLogger)

	go reportStats(ctx, inventory, aggregator, appLogger)

	go reportHealth(ctx, db, redisCache, appLogger)

	appLogger.Info("cold chain monitor started")
	<-ctx.Done()
	appLogger.Info("shutting down")
}

// monitorScope builds the aggregation scope from configuration. An invalid
// warehouse id is treated as no scope selected.
func monitorScope(cfg *config.Config, logger *slog.Logger) alerts.Scope {
	scope := alerts.Scope{ViewerRole: cfg.Monitor.ViewerRole}

	if cfg.Monitor.WarehouseID != "" {
		id, err := uuid.Parse(cfg.Monitor.WarehouseID)
		if err != nil {
			logger.Warn("ignoring invalid MONITOR_WAREHOUSE_ID",
				slog.String("value", cfg.Monitor.WarehouseID))
		} else {
			scope.WarehouseID = &id
		}
	}
	return scope
}

// reportHealth pings the backing stores once a minute and logs when one
// goes unreachable
func reportHealth(ctx context.Context, db *database.PostgresDB, redisCache *cache.RedisCache, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := db.Ping(pingCtx); err != nil {
				logger.Error("database unreachable", "error", err)
			}
			if err := redisCache.Ping(pingCtx); err != nil {
				logger.Error("redis unreachable", "error", err)
			}
			cancel()
		}
	}
}

// repairScores periodically enqueues a score refresh for every cached batch
// still missing a risk score, so gaps left by readings ingested before the
// worker came up close themselves. Task IDs are keyed by batch, so a batch
// still pending from the previous pass is not enqueued twice.
func repairScores(ctx context.Context, inventory *livecache.Cache, queueClient *queue.AsynqClient, logger *slog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, batch := range inventory.Unscored() {
				task, err := intake.NewRecomputeTask(batch.ID)
				if err != nil {
					logger.Error("failed to build recompute task", "error", err)
					continue
				}

				_, err = queueClient.EnqueueContext(ctx, task,
					asynq.TaskID("recompute:"+batch.ID.String()))
				if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
					logger.Warn("failed to enqueue score repair",
						slog.String("batch_id", batch.ID.String()), "error", err)
				}
			}
		}
	}
}

// reportStats periodically logs the live inventory breakdown and the
// current alert count
func reportStats(ctx context.Context, inventory *livecache.Cache, aggregator *alerts.Aggregator, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := inventory.Stats()
			count, state := aggregator.LastCount()
			logger.Info("inventory snapshot",
				slog.Int("total", stats.Total),
				slog.Int("fresh", stats.Fresh),
				slog.Int("moderate", stats.Moderate),
				slog.Int("high", stats.High),
				slog.Int("unscored", stats.Unscored),
				slog.Float64("quantity", stats.TotalQuantity),
				slog.Int("unacknowledged_alerts", count),
				slog.String("alert_state", string(state)),
			)
		}
	}
}
