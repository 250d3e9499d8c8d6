package bulk

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunSequentialPartialFailure(t *testing.T) {
	r := NewRunner(nil)
	var attempted []string
	op := func(ctx context.Context, id string) error {
		attempted = append(attempted, id)
		if id == "p2" {
			return errors.New("store unreachable")
		}
		return nil
	}

	result, err := r.Run(context.Background(), []string{"p1", "p2", "p3"}, op, Options{Mode: ModeSequential})
	require.NoError(t, err)
	require.Equal(t, 2, result.SuccessCount)
	require.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "p2", result.Errors[0].ItemID)
	require.Contains(t, result.Errors[0].Message, "store unreachable")
	require.Equal(t, []string{"p1", "p2", "p3"}, attempted)
	require.False(t, result.Cancelled)
	require.Equal(t, StateCompleted, r.State())
}

func TestRunSequentialOrderPreserved(t *testing.T) {
	r := NewRunner(nil)
	ids := []string{"a", "b", "c", "d", "e"}
	var seen []string
	op := func(ctx context.Context, id string) error {
		seen = append(seen, id)
		return nil
	}
	_, err := r.Run(context.Background(), ids, op, Options{Mode: ModeSequential})
	require.NoError(t, err)
	require.Equal(t, ids, seen)
}

func TestRunAllItemsFail(t *testing.T) {
	r := NewRunner(nil)
	op := func(ctx context.Context, id string) error { return errors.New("boom") }

	result, err := r.Run(context.Background(), []string{"x", "y"}, op, Options{})
	require.NoError(t, err)
	require.Equal(t, 0, result.SuccessCount)
	require.Equal(t, 2, result.FailedCount)
	require.Len(t, result.Errors, 2)
}

func TestRunRecoversPanics(t *testing.T) {
	r := NewRunner(nil)
	op := func(ctx context.Context, id string) error {
		if id == "p1" {
			panic("nil pointer somewhere in the callback")
		}
		return nil
	}
	result, err := r.Run(context.Background(), []string{"p1", "p2"}, op, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, result.SuccessCount)
	require.Equal(t, 1, result.FailedCount)
	require.Contains(t, result.Errors[0].Message, "panic")
}

func TestRunRejectsConcurrentStart(t *testing.T) {
	r := NewRunner(nil)
	started := make(chan struct{})
	release := make(chan struct{})
	op := func(ctx context.Context, id string) error {
		close(started)
		<-release
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := r.Run(context.Background(), []string{"p1"}, op, Options{})
		require.NoError(t, err)
	}()

	<-started
	require.Equal(t, StateRunning, r.State())
	_, err := r.Run(context.Background(), []string{"p2"}, op, Options{})
	require.ErrorIs(t, err, ErrOperationInProgress)

	close(release)
	<-done
	require.Equal(t, StateCompleted, r.State())
}

func TestRunNilOperation(t *testing.T) {
	r := NewRunner(nil)
	_, err := r.Run(context.Background(), []string{"p1"}, nil, Options{})
	require.ErrorIs(t, err, ErrNilOperation)
}

func TestRunEmptyList(t *testing.T) {
	r := NewRunner(nil)
	result, err := r.Run(context.Background(), nil, func(ctx context.Context, id string) error { return nil }, Options{})
	require.NoError(t, err)
	require.Equal(t, Result{}, result)
	require.Equal(t, StateCompleted, r.State())
}

func TestRunProgressSequential(t *testing.T) {
	r := NewRunner(nil)
	var events []Progress
	require.NoError(t, r.OnProgress(func(p Progress) { events = append(events, p) }))

	op := func(ctx context.Context, id string) error { return nil }
	_, err := r.Run(context.Background(), []string{"a", "b", "c", "d"}, op, Options{Mode: ModeSequential})
	require.NoError(t, err)

	require.Len(t, events, 4)
	require.Equal(t, Progress{Completed: 1, Total: 4, Percent: 25}, events[0])
	require.Equal(t, Progress{Completed: 4, Total: 4, Percent: 100}, events[3])
}

func TestRunProgressBatchedPerChunk(t *testing.T) {
	r := NewRunner(nil)
	var events []Progress
	require.NoError(t, r.OnProgress(func(p Progress) { events = append(events, p) }))

	op := func(ctx context.Context, id string) error { return nil }
	_, err := r.Run(context.Background(), []string{"a", "b", "c", "d", "e"}, op, Options{Mode: ModeBatched, BatchSize: 2})
	require.NoError(t, err)

	require.Len(t, events, 3)
	require.Equal(t, 2, events[0].Completed)
	require.Equal(t, 4, events[1].Completed)
	require.Equal(t, 5, events[2].Completed)
}

func TestRunBatchedAllAttempted(t *testing.T) {
	r := NewRunner(nil)
	var mu sync.Mutex
	var attempted []string
	op := func(ctx context.Context, id string) error {
		mu.Lock()
		attempted = append(attempted, id)
		mu.Unlock()
		if id == "c" {
			return errors.New("bad item")
		}
		return nil
	}
	result, err := r.Run(context.Background(), []string{"a", "b", "c", "d", "e"}, op, Options{Mode: ModeBatched, BatchSize: 3})
	require.NoError(t, err)

	sort.Strings(attempted)
	require.Equal(t, []string{"a", "b", "c", "d", "e"}, attempted)
	require.Equal(t, 4, result.SuccessCount)
	require.Equal(t, 1, result.FailedCount)
}

func TestCancelStopsFurtherItems(t *testing.T) {
	r := NewRunner(nil)
	var attempted []string
	op := func(ctx context.Context, id string) error {
		attempted = append(attempted, id)
		if id == "p2" {
			r.Cancel()
		}
		return nil
	}

	result, err := r.Run(context.Background(), []string{"p1", "p2", "p3", "p4"}, op, Options{Mode: ModeSequential})
	require.NoError(t, err)
	require.True(t, result.Cancelled)
	require.Equal(t, []string{"p1", "p2"}, attempted)
	require.Equal(t, 2, result.SuccessCount)
	require.Equal(t, StateCancelled, r.State())
}

func TestContextCancellationStopsRun(t *testing.T) {
	r := NewRunner(nil)
	ctx, cancel := context.WithCancel(context.Background())
	op := func(ctx context.Context, id string) error {
		if id == "p1" {
			cancel()
		}
		return nil
	}
	result, err := r.Run(ctx, []string{"p1", "p2", "p3"}, op, Options{Mode: ModeSequential})
	require.NoError(t, err)
	require.True(t, result.Cancelled)
	require.Equal(t, 1, result.SuccessCount)
}

func TestRunPacingBetweenItems(t *testing.T) {
	r := NewRunner(nil)
	delay := 30 * time.Millisecond
	start := time.Now()
	op := func(ctx context.Context, id string) error { return nil }
	_, err := r.Run(context.Background(), []string{"a", "b", "c"}, op, Options{Mode: ModeSequential, Delay: delay})
	require.NoError(t, err)
	// Two inter-item pauses for three items.
	require.GreaterOrEqual(t, time.Since(start), 2*delay-5*time.Millisecond)
}

func TestRunnerReusableAfterCompletion(t *testing.T) {
	r := NewRunner(nil)
	op := func(ctx context.Context, id string) error { return nil }

	_, err := r.Run(context.Background(), []string{"a"}, op, Options{})
	require.NoError(t, err)
	result, err := r.Run(context.Background(), []string{"b", "c"}, op, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, result.SuccessCount)
}
