// Package jobs defines the background task types and the Asynq worker that
// executes bulk catalog operations off the request path.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskBulkReprice recomputes sale prices across a product set.
	TaskBulkReprice = "catalog:bulk_reprice"
	// TaskBulkStatus transitions a product set to a new status.
	TaskBulkStatus = "catalog:bulk_status"
	// TaskBulkTag merges tags into a product set.
	TaskBulkTag = "catalog:bulk_tag"
	// TaskDuplicateScan flags fingerprint collisions across the catalog.
	TaskDuplicateScan = "catalog:duplicate_scan"
	// TaskAnalyticsWarmup pre-populates the analytics cache.
	TaskAnalyticsWarmup = "analytics:warmup"
)

// BulkRepricePayload selects the products to reprice. An empty ID list means
// the whole catalog.
type BulkRepricePayload struct {
	IDs       []string `json:"ids,omitempty"`
	Mode      string   `json:"mode,omitempty"`
	BatchSize int      `json:"batch_size,omitempty"`
	DelayMs   int      `json:"delay_ms,omitempty"`
}

// BulkStatusPayload carries a status transition for a product set.
type BulkStatusPayload struct {
	IDs     []string `json:"ids"`
	Status  string   `json:"status"`
	DelayMs int      `json:"delay_ms,omitempty"`
}

// BulkTagPayload carries tags to merge into a product set.
type BulkTagPayload struct {
	IDs     []string `json:"ids"`
	Tags    []string `json:"tags"`
	DelayMs int      `json:"delay_ms,omitempty"`
}

// DuplicateScanPayload carries scheduling metadata.
type DuplicateScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// AnalyticsWarmupPayload carries scheduling metadata.
type AnalyticsWarmupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewBulkRepriceTask constructs an Asynq task for bulk repricing.
func NewBulkRepriceTask(payload BulkRepricePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBulkReprice, body, asynq.Queue(QueueDefault)), nil
}

// NewBulkStatusTask constructs an Asynq task for a bulk status change.
func NewBulkStatusTask(payload BulkStatusPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBulkStatus, body, asynq.Queue(QueueDefault)), nil
}

// NewBulkTagTask constructs an Asynq task for bulk tagging.
func NewBulkTagTask(payload BulkTagPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBulkTag, body, asynq.Queue(QueueDefault)), nil
}

// NewDuplicateScanTask constructs an Asynq task for a catalog-wide scan.
func NewDuplicateScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(DuplicateScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDuplicateScan, body, asynq.Queue(QueueDefault)), nil
}

// NewAnalyticsWarmupTask constructs an Asynq task for cache warmup.
func NewAnalyticsWarmupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(AnalyticsWarmupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, body, asynq.Queue(QueueDefault)), nil
}
