package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sellerdesk/sellerdesk/internal/catalog"
	jobmetrics "github.com/sellerdesk/sellerdesk/internal/jobs"
)

// DuplicateScanJob walks the whole catalog and flags fingerprint collisions
// that slipped past creation-time checks (imports, direct store writes).
type DuplicateScanJob struct {
	Catalog *catalog.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDuplicateScanJob wires dependencies for the scan handler.
func NewDuplicateScanJob(catalogSvc *catalog.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DuplicateScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DuplicateScanJob{Catalog: catalogSvc, Logger: logger, Metrics: metrics}
}

// Handle processes TaskDuplicateScan tasks.
func (j *DuplicateScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("duplicate scan: handler not configured")
	}
	var payload DuplicateScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track("duplicate_scan")
	collisions, err := j.Catalog.FlagDuplicates(ctx)
	if err != nil {
		return tracker.End(err)
	}
	j.Logger.Info("duplicate scan done", slog.Int("collisions", len(collisions)))
	return tracker.End(nil)
}
