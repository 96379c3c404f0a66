package pipeline

import (
	"context"
	"fmt"
	"sync"

	"statlab/internal"
	"statlab/internal/errors"

	"golang.org/x/sync/semaphore"
)

// Progress is the pollable view of a pipeline run. Reads never block on
// computation: the tracker's lock is held only for field copies.
type Progress struct {
	Percent     float64 `json:"percent"`
	CurrentTask string  `json:"current_task"`
	IsComplete  bool    `json:"is_complete"`
	Error       string  `json:"error,omitempty"`
}

// Tracker is the pollable cross-goroutine state of a run. Percent advances
// monotonically within one run and resets on Reset.
type Tracker struct {
	mu    sync.Mutex
	state Progress
}

// NewTracker creates a tracker in the idle state.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Reset clears the tracker for a new run or dataset.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Progress{}
}

// Advance moves the tracker forward. Regressions are ignored so percent stays
// monotonic even if a stage reports out of order.
func (t *Tracker) Advance(percent float64, task string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if percent > t.state.Percent {
		t.state.Percent = percent
	}
	t.state.CurrentTask = task
}

// SetTask updates the current task label without touching percent.
func (t *Tracker) SetTask(task string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.CurrentTask = task
}

// Complete marks the run finished successfully.
func (t *Tracker) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Percent = 100
	t.state.IsComplete = true
	t.state.Error = ""
}

// Fail marks the run terminated with an error. The run cannot resume; callers
// restart from the first stage.
func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.IsComplete = true
	t.state.Error = err.Error()
}

// Snapshot returns a copy of the current state without blocking.
func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Stage is one step of the staged computation: a task label, the percent the
// tracker reaches when the stage finishes, and the work itself.
type Stage struct {
	Name   string
	Target float64
	Run    func(ctx context.Context) error
}

// Runner executes stages on a single background goroutine. A weighted
// semaphore of size one refuses concurrent starts instead of interleaving
// runs; Cancel stops a run cooperatively between stages.
type Runner struct {
	tracker *Tracker
	logger  *internal.Logger
	slot    *semaphore.Weighted

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner reporting into the given tracker.
func NewRunner(tracker *Tracker, logger *internal.Logger) *Runner {
	return &Runner{
		tracker: tracker,
		logger:  logger.WithTag("pipeline"),
		slot:    semaphore.NewWeighted(1),
	}
}

// TryExclusive claims the run slot for a competing mutation, so flag or
// structure edits cannot interleave with a run's stages. Returns false while
// a run is in flight; release with EndExclusive.
func (r *Runner) TryExclusive() bool {
	return r.slot.TryAcquire(1)
}

// EndExclusive releases a slot claimed by TryExclusive.
func (r *Runner) EndExclusive() {
	r.slot.Release(1)
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool {
	if !r.slot.TryAcquire(1) {
		return true
	}
	r.slot.Release(1)
	return false
}

// Start launches the stages on a background goroutine. It returns
// AlreadyRunning when a run is still in flight.
func (r *Runner) Start(ctx context.Context, stages []Stage) error {
	if !r.slot.TryAcquire(1) {
		return errors.AlreadyRunning("analysis pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	r.tracker.Reset()
	go func() {
		defer close(done)
		defer r.slot.Release(1)
		defer cancel()
		r.run(runCtx, stages)
	}()
	return nil
}

// Cancel requests cooperative cancellation and waits for the worker to exit.
// No-op when idle.
func (r *Runner) Cancel() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

// Wait blocks until the current run finishes. No-op when idle.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (r *Runner) run(ctx context.Context, stages []Stage) {
	// A stage panic must surface as a failed run, not kill the process.
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("pipeline panicked: %v", p)
			r.tracker.Fail(fmt.Errorf("internal failure: %v", p))
		}
	}()
	for _, stage := range stages {
		// Cancellation is checked between stages: the fits inside a stage are
		// the dominant cost and run to completion once begun.
		if err := ctx.Err(); err != nil {
			r.logger.Info("pipeline cancelled before stage %s", stage.Name)
			r.tracker.Fail(err)
			return
		}
		r.tracker.SetTask(stage.Name)
		if err := stage.Run(ctx); err != nil {
			r.logger.Error("pipeline stage %s failed: %v", stage.Name, err)
			r.tracker.Fail(err)
			return
		}
		r.tracker.Advance(stage.Target, stage.Name)
	}
	r.tracker.Complete()
}
