package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sellerdesk/sellerdesk/internal/analytics"
	"github.com/sellerdesk/sellerdesk/internal/app"
	"github.com/sellerdesk/sellerdesk/internal/catalog"
	"github.com/sellerdesk/sellerdesk/internal/classify"
	jobmetrics "github.com/sellerdesk/sellerdesk/internal/jobs"
	"github.com/sellerdesk/sellerdesk/internal/platform/db"
	"github.com/sellerdesk/sellerdesk/internal/pricing"
	"github.com/sellerdesk/sellerdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	policy := pricing.DefaultPolicy()
	policy.ProfitMarginPercent = cfg.ProfitMarginPercent
	policy.MinAbsoluteProfit = cfg.MinAbsoluteProfit
	policy.RoundingIncrement = cfg.RoundingIncrement
	if err := policy.Validate(); err != nil {
		logger.Error("pricing policy", slog.Any("error", err))
		os.Exit(1)
	}
	calculator := pricing.NewCalculator(policy)
	classifier := classify.New(classify.DefaultTable())

	store := catalog.NewRepository(pool)
	catalogService := catalog.NewService(logger, store, calculator, classifier)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(store, analyticsCache)

	metrics := jobmetrics.NewMetrics(nil)
	bulkJob := jobs.NewBulkJob(catalogService, analyticsService, logger, metrics)
	scanJob := jobs.NewDuplicateScanJob(catalogService, logger, metrics)
	warmupJob := jobs.NewAnalyticsWarmupJob(analyticsService, logger, metrics)

	scanTask, err := jobs.NewDuplicateScanTask(time.Now().UTC())
	if err != nil {
		logger.Error("build duplicate scan task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewAnalyticsWarmupTask(time.Now().UTC())
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBulkReprice, Handler: bulkJob.HandleReprice},
			{Type: jobs.TaskBulkStatus, Handler: bulkJob.HandleStatus},
			{Type: jobs.TaskBulkTag, Handler: bulkJob.HandleTag},
			{Type: jobs.TaskDuplicateScan, Handler: scanJob.Handle},
			{Type: jobs.TaskAnalyticsWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 2 * * *", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 */6 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
