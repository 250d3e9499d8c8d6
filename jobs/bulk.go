package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sellerdesk/sellerdesk/internal/analytics"
	"github.com/sellerdesk/sellerdesk/internal/bulk"
	"github.com/sellerdesk/sellerdesk/internal/catalog"
	jobmetrics "github.com/sellerdesk/sellerdesk/internal/jobs"
)

// BulkJob executes the bulk catalog tasks. Each task gets a fresh runner so
// concurrently dequeued tasks never trip over each other's run state.
type BulkJob struct {
	Catalog   *catalog.Service
	Analytics *analytics.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewBulkJob wires dependencies for the bulk task handlers.
func NewBulkJob(catalogSvc *catalog.Service, analyticsSvc *analytics.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *BulkJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkJob{Catalog: catalogSvc, Analytics: analyticsSvc, Logger: logger, Metrics: metrics}
}

// HandleReprice processes TaskBulkReprice tasks.
func (j *BulkJob) HandleReprice(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("bulk reprice: handler not configured")
	}
	var payload BulkRepricePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	ids := payload.IDs
	if len(ids) == 0 {
		products, err := j.Catalog.List(ctx, catalog.ListFilter{})
		if err != nil {
			return err
		}
		for _, p := range products {
			ids = append(ids, p.ID)
		}
	}

	op := func(ctx context.Context, id string) error {
		_, err := j.Catalog.Reprice(ctx, id)
		return err
	}
	return j.execute(ctx, "reprice", ids, op, bulk.Options{
		Mode:      bulk.Mode(payload.Mode),
		BatchSize: payload.BatchSize,
		Delay:     time.Duration(payload.DelayMs) * time.Millisecond,
	})
}

// HandleStatus processes TaskBulkStatus tasks.
func (j *BulkJob) HandleStatus(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("bulk status: handler not configured")
	}
	var payload BulkStatusPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	status := catalog.Status(payload.Status)
	if !status.Valid() {
		j.Logger.Warn("bulk status task with invalid status", slog.String("status", payload.Status))
		return asynq.SkipRetry
	}

	op := func(ctx context.Context, id string) error {
		_, err := j.Catalog.SetStatus(ctx, id, status)
		return err
	}
	return j.execute(ctx, "status", payload.IDs, op, bulk.Options{
		Mode:  bulk.ModeSequential,
		Delay: time.Duration(payload.DelayMs) * time.Millisecond,
	})
}

// HandleTag processes TaskBulkTag tasks.
func (j *BulkJob) HandleTag(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("bulk tag: handler not configured")
	}
	var payload BulkTagPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	op := func(ctx context.Context, id string) error {
		_, err := j.Catalog.AddTags(ctx, id, payload.Tags)
		return err
	}
	return j.execute(ctx, "tag", payload.IDs, op, bulk.Options{
		Mode:  bulk.ModeSequential,
		Delay: time.Duration(payload.DelayMs) * time.Millisecond,
	})
}

// execute runs the operation and reports the aggregate. Per-item failures
// stay inside the result; only infrastructure errors bubble up to Asynq.
func (j *BulkJob) execute(ctx context.Context, kind string, ids []string, op bulk.Operation, opts bulk.Options) error {
	tracker := j.Metrics.Track("bulk_" + kind)
	runner := bulk.NewRunner(j.Logger)
	_ = runner.OnProgress(func(p bulk.Progress) {
		j.Logger.Debug("bulk progress",
			slog.String("kind", kind),
			slog.Int("completed", p.Completed),
			slog.Int("total", p.Total))
	})

	result, err := runner.Run(ctx, ids, op, opts)
	if err != nil {
		return tracker.End(err)
	}
	j.Metrics.AddItemFailures("bulk_"+kind, result.FailedCount)
	j.Logger.Info("bulk task done",
		slog.String("kind", kind),
		slog.Int("succeeded", result.SuccessCount),
		slog.Int("failed", result.FailedCount),
		slog.Bool("cancelled", result.Cancelled))

	if j.Analytics != nil && result.SuccessCount > 0 {
		if err := j.Analytics.Invalidate(ctx); err != nil {
			j.Logger.Warn("analytics invalidate", slog.Any("error", err))
		}
	}
	return tracker.End(nil)
}
