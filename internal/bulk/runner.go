// Package bulk applies a mutation across many product identifiers with
// progress reporting, pacing for rate-limited collaborators, and per-item
// failure isolation.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Mode selects how items are scheduled within a run.
type Mode string

const (
	// ModeSequential processes one item at a time, in list order. Use it
	// for side-effecting or rate-limited operations.
	ModeSequential Mode = "sequential"
	// ModeBatched processes items concurrently in fixed-size chunks. Use
	// it for independent transforms; intra-chunk order is unspecified.
	ModeBatched Mode = "batched"
)

// State describes the runner lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

var (
	// ErrOperationInProgress is returned when a run is started while
	// another run on the same Runner is still active.
	ErrOperationInProgress = errors.New("bulk: operation already in progress")
	// ErrNilOperation indicates a programmer error in the call.
	ErrNilOperation = errors.New("bulk: operation func required")
)

const defaultBatchSize = 10

// Operation is the per-item mutation. Any returned error or panic becomes an
// error entry in the result; it never aborts the run.
type Operation func(ctx context.Context, id string) error

// Options tunes a single run.
type Options struct {
	Mode Mode
	// BatchSize is the chunk width in batched mode.
	BatchSize int
	// Delay paces items (sequential) or chunks (batched), for external
	// APIs with rate limits.
	Delay time.Duration
}

// Progress is emitted after every item in sequential mode and after every
// chunk in batched mode.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// ItemError records one failed item.
type ItemError struct {
	ItemID  string `json:"item_id"`
	Message string `json:"message"`
}

// Result aggregates a whole run. It is always complete: a failure on one
// item never discards the outcome of the others.
type Result struct {
	SuccessCount int         `json:"success_count"`
	FailedCount  int         `json:"failed_count"`
	Cancelled    bool        `json:"cancelled"`
	Errors       []ItemError `json:"errors,omitempty"`
}

// ProgressFunc receives progress events during a run.
type ProgressFunc func(Progress)

// Runner executes bulk operations. A Runner admits one active run at a time;
// construct one per logical pipeline.
type Runner struct {
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	cancelled bool
	observers []ProgressFunc
}

// NewRunner builds an idle Runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, state: StateIdle}
}

// State reports the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OnProgress attaches an observer. Observers can only change while no run is
// active.
func (r *Runner) OnProgress(fn ProgressFunc) error {
	if fn == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRunning {
		return ErrOperationInProgress
	}
	r.observers = append(r.observers, fn)
	return nil
}

// Cancel requests cooperative cancellation of the active run. Items already
// in flight finish; no further items start.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRunning {
		r.cancelled = true
	}
}

// Run applies op to every item. The returned Result is complete even when
// every item fails; per-item errors and panics are converted into entries,
// never propagated. The only call-level errors are ErrOperationInProgress
// and ErrNilOperation.
func (r *Runner) Run(ctx context.Context, itemIDs []string, op Operation, opts Options) (Result, error) {
	if op == nil {
		return Result{}, ErrNilOperation
	}

	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return Result{}, ErrOperationInProgress
	}
	r.state = StateRunning
	r.cancelled = false
	observers := make([]ProgressFunc, len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	var limiter *rate.Limiter
	if opts.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
		// Drain the initial token so the very first pause already waits.
		limiter.Allow()
	}

	run := &activeRun{
		runner:    r,
		op:        op,
		limiter:   limiter,
		observers: observers,
		total:     len(itemIDs),
	}

	var result Result
	switch opts.Mode {
	case ModeBatched:
		result = run.batched(ctx, itemIDs, opts.BatchSize)
	default:
		result = run.sequential(ctx, itemIDs)
	}

	final := StateCompleted
	if result.Cancelled {
		final = StateCancelled
	}
	r.mu.Lock()
	r.state = final
	r.mu.Unlock()

	r.logger.Info("bulk run finished",
		slog.Int("total", len(itemIDs)),
		slog.Int("succeeded", result.SuccessCount),
		slog.Int("failed", result.FailedCount),
		slog.Bool("cancelled", result.Cancelled))
	return result, nil
}

// activeRun carries the per-run bookkeeping so Runner itself stays lean.
type activeRun struct {
	runner    *Runner
	op        Operation
	limiter   *rate.Limiter
	observers []ProgressFunc
	total     int

	mu     sync.Mutex
	result Result
}

func (a *activeRun) sequential(ctx context.Context, itemIDs []string) Result {
	completed := 0
	for i, id := range itemIDs {
		if a.stopped(ctx) {
			a.result.Cancelled = true
			break
		}
		if i > 0 && !a.pace(ctx) {
			a.result.Cancelled = true
			break
		}
		a.record(id, attempt(ctx, a.op, id))
		completed++
		a.emit(completed)
	}
	return a.result
}

func (a *activeRun) batched(ctx context.Context, itemIDs []string, batchSize int) Result {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	completed := 0
	for start := 0; start < len(itemIDs); start += batchSize {
		if a.stopped(ctx) {
			a.result.Cancelled = true
			break
		}
		if start > 0 && !a.pace(ctx) {
			a.result.Cancelled = true
			break
		}
		end := start + batchSize
		if end > len(itemIDs) {
			end = len(itemIDs)
		}
		chunk := itemIDs[start:end]

		var g errgroup.Group
		for _, id := range chunk {
			g.Go(func() error {
				a.record(id, attempt(ctx, a.op, id))
				return nil
			})
		}
		_ = g.Wait()

		completed += len(chunk)
		a.emit(completed)
	}
	return a.result
}

// stopped reports whether cancellation was requested, either cooperatively
// through Cancel or by the caller's context.
func (a *activeRun) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	a.runner.mu.Lock()
	defer a.runner.mu.Unlock()
	return a.runner.cancelled
}

// pace blocks on the rate limiter; false means the context ended first.
func (a *activeRun) pace(ctx context.Context) bool {
	if a.limiter == nil {
		return true
	}
	return a.limiter.Wait(ctx) == nil
}

func (a *activeRun) record(id string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.result.FailedCount++
		a.result.Errors = append(a.result.Errors, ItemError{ItemID: id, Message: err.Error()})
		return
	}
	a.result.SuccessCount++
}

func (a *activeRun) emit(completed int) {
	progress := Progress{Completed: completed, Total: a.total}
	if a.total > 0 {
		progress.Percent = float64(completed) / float64(a.total) * 100
	}
	for _, fn := range a.observers {
		fn(progress)
	}
}

// attempt shields the run from panics in the operation callback.
func attempt(ctx context.Context, op Operation, id string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return op(ctx, id)
}
