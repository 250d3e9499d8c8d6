package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/sellerdesk/sellerdesk/internal/platform/httpx"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  []TaskHandler
	Cron      []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueBulkReprice queues a bulk reprice run.
func (c *Client) EnqueueBulkReprice(ctx context.Context, payload BulkRepricePayload) (*asynq.TaskInfo, error) {
	task, err := NewBulkRepriceTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// EnqueueBulkStatus queues a bulk status change.
func (c *Client) EnqueueBulkStatus(ctx context.Context, payload BulkStatusPayload) (*asynq.TaskInfo, error) {
	task, err := NewBulkStatusTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// EnqueueBulkTag queues a bulk tagging run.
func (c *Client) EnqueueBulkTag(ctx context.Context, payload BulkTagPayload) (*asynq.TaskInfo, error) {
	task, err := NewBulkTagTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// EnqueueDuplicateScan queues an immediate catalog-wide duplicate scan.
func (c *Client) EnqueueDuplicateScan(ctx context.Context) (*asynq.TaskInfo, error) {
	task, err := NewDuplicateScanTask(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Handler exposes HTTP endpoints for enqueueing bulk runs and observing the
// queue.
type Handler struct {
	client    *Client
	inspector *asynq.Inspector
	logger    *slog.Logger
	validator *validator.Validate
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(client *Client, inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	return &Handler{client: client, inspector: inspector, logger: logger, validator: validator.New()}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/reprice", h.enqueueReprice)
	r.Post("/status", h.enqueueStatus)
	r.Post("/tags", h.enqueueTags)
	r.Post("/duplicate-scan", h.enqueueDuplicateScan)
}

type bulkRepriceRequest struct {
	IDs       []string `json:"ids"`
	Mode      string   `json:"mode" validate:"omitempty,oneof=sequential batched"`
	BatchSize int      `json:"batch_size" validate:"omitempty,gt=0"`
	DelayMs   int      `json:"delay_ms" validate:"omitempty,gte=0"`
}

type bulkStatusRequest struct {
	IDs     []string `json:"ids" validate:"required,min=1"`
	Status  string   `json:"status" validate:"required,oneof=draft pending approved published archived"`
	DelayMs int      `json:"delay_ms" validate:"omitempty,gte=0"`
}

type bulkTagRequest struct {
	IDs     []string `json:"ids" validate:"required,min=1"`
	Tags    []string `json:"tags" validate:"required,min=1,dive,required"`
	DelayMs int      `json:"delay_ms" validate:"omitempty,gte=0"`
}

func (h *Handler) enqueueReprice(w http.ResponseWriter, r *http.Request) {
	var req bulkRepriceRequest
	if !h.decode(w, r, &req) {
		return
	}
	info, err := h.client.EnqueueBulkReprice(r.Context(), BulkRepricePayload(req))
	h.respondEnqueue(w, info, err)
}

func (h *Handler) enqueueStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	info, err := h.client.EnqueueBulkStatus(r.Context(), BulkStatusPayload(req))
	h.respondEnqueue(w, info, err)
}

func (h *Handler) enqueueTags(w http.ResponseWriter, r *http.Request) {
	var req bulkTagRequest
	if !h.decode(w, r, &req) {
		return
	}
	info, err := h.client.EnqueueBulkTag(r.Context(), BulkTagPayload(req))
	h.respondEnqueue(w, info, err)
}

func (h *Handler) enqueueDuplicateScan(w http.ResponseWriter, r *http.Request) {
	info, err := h.client.EnqueueDuplicateScan(r.Context())
	h.respondEnqueue(w, info, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.ValidationProblem(w, err)
		return false
	}
	return true
}

func (h *Handler) respondEnqueue(w http.ResponseWriter, info *asynq.TaskInfo, err error) {
	if err != nil {
		h.logger.Error("enqueue task", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID, "queue": info.Queue})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"queue": QueueDefault, "pending": 0})
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	pending := 0
	queueName := QueueDefault
	if info != nil {
		pending = int(info.Pending)
		queueName = info.Queue
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queue": queueName, "pending": pending})
}
