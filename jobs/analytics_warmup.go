package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sellerdesk/sellerdesk/internal/analytics"
	jobmetrics "github.com/sellerdesk/sellerdesk/internal/jobs"
)

const warmupTopN = 10
const warmupLowStockThreshold = 5

// AnalyticsWarmupJob pre-populates the cached reporting views so the first
// dashboard hit after an invalidation stays fast.
type AnalyticsWarmupJob struct {
	Analytics *analytics.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(analyticsSvc *analytics.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsWarmupJob{Analytics: analyticsSvc, Logger: logger, Metrics: metrics}
}

// Handle processes TaskAnalyticsWarmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track("analytics_warmup")
	if err := j.warm(ctx); err != nil {
		return tracker.End(err)
	}
	j.Logger.Info("analytics warmup done")
	return tracker.End(nil)
}

func (j *AnalyticsWarmupJob) warm(ctx context.Context) error {
	if _, err := j.Analytics.GetSummary(ctx); err != nil {
		return err
	}
	if _, err := j.Analytics.GetCategoryBreakdown(ctx); err != nil {
		return err
	}
	if _, err := j.Analytics.GetMarginDistribution(ctx); err != nil {
		return err
	}
	if _, err := j.Analytics.GetTopProfit(ctx, warmupTopN); err != nil {
		return err
	}
	if _, err := j.Analytics.GetLowStock(ctx, warmupLowStockThreshold); err != nil {
		return err
	}
	return nil
}
