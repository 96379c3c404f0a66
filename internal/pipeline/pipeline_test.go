package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"statlab/internal"
	"statlab/internal/errors"
)

func testStages(percents ...float64) []Stage {
	stages := make([]Stage, len(percents))
	for i, p := range percents {
		stages[i] = Stage{
			Name:   fmt.Sprintf("stage_%d", i),
			Target: p,
			Run:    func(context.Context) error { return nil },
		}
	}
	return stages
}

func TestTracker_MonotonicPercent(t *testing.T) {
	tr := NewTracker()
	tr.Advance(20, "a")
	tr.Advance(40, "b")
	tr.Advance(10, "c") // regression ignored

	snap := tr.Snapshot()
	if snap.Percent != 40 {
		t.Errorf("Percent = %v, want 40", snap.Percent)
	}
	if snap.CurrentTask != "c" {
		t.Errorf("CurrentTask = %q, want %q", snap.CurrentTask, "c")
	}
	if snap.IsComplete {
		t.Error("IsComplete before Complete()")
	}

	tr.Complete()
	snap = tr.Snapshot()
	if snap.Percent != 100 || !snap.IsComplete || snap.Error != "" {
		t.Errorf("after Complete: %+v", snap)
	}
}

func TestTracker_FailIsTerminal(t *testing.T) {
	tr := NewTracker()
	tr.Advance(60, "working")
	tr.Fail(fmt.Errorf("disk on fire"))

	snap := tr.Snapshot()
	if !snap.IsComplete {
		t.Error("failed run not marked complete")
	}
	if snap.Error != "disk on fire" {
		t.Errorf("Error = %q", snap.Error)
	}
	if snap.Percent != 60 {
		t.Errorf("Percent = %v, want frozen at 60", snap.Percent)
	}
}

func TestTracker_SetTaskKeepsPercent(t *testing.T) {
	tr := NewTracker()
	tr.Advance(40, "a")
	tr.SetTask("b")

	snap := tr.Snapshot()
	if snap.Percent != 40 {
		t.Errorf("Percent = %v, want 40", snap.Percent)
	}
	if snap.CurrentTask != "b" {
		t.Errorf("CurrentTask = %q, want %q", snap.CurrentTask, "b")
	}
}

func TestRunner_RunsStagesToCompletion(t *testing.T) {
	tr := NewTracker()
	r := NewRunner(tr, internal.DefaultLogger)

	var order []string
	var mu sync.Mutex
	stages := []Stage{
		{Name: "first", Target: 50, Run: func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			return nil
		}},
		{Name: "second", Target: 100, Run: func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		}},
	}

	if err := r.Start(context.Background(), stages); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("stage order = %v", order)
	}
	snap := tr.Snapshot()
	if !snap.IsComplete || snap.Percent != 100 || snap.Error != "" {
		t.Errorf("final state = %+v", snap)
	}
	if r.Running() {
		t.Error("Running() true after completion")
	}
}

func TestRunner_RefusesConcurrentStart(t *testing.T) {
	tr := NewTracker()
	r := NewRunner(tr, internal.DefaultLogger)

	release := make(chan struct{})
	entered := make(chan struct{})
	stages := []Stage{{Name: "block", Target: 100, Run: func(context.Context) error {
		close(entered)
		<-release
		return nil
	}}}

	if err := r.Start(context.Background(), stages); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	<-entered

	err := r.Start(context.Background(), testStages(100))
	if err == nil {
		t.Fatal("second Start accepted while running")
	}
	if !errors.HasCode(err, errors.CodeAlreadyRunning) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeAlreadyRunning)
	}

	close(release)
	r.Wait()

	// Slot is free again after the run drains.
	if err := r.Start(context.Background(), testStages(100)); err != nil {
		t.Errorf("Start after completion failed: %v", err)
	}
	r.Wait()
}

func TestRunner_CancelBetweenStages(t *testing.T) {
	tr := NewTracker()
	r := NewRunner(tr, internal.DefaultLogger)

	entered := make(chan struct{})
	release := make(chan struct{})
	var secondRan bool
	var mu sync.Mutex
	stages := []Stage{
		{Name: "slow", Target: 50, Run: func(context.Context) error {
			close(entered)
			<-release
			return nil
		}},
		{Name: "never", Target: 100, Run: func(context.Context) error {
			mu.Lock()
			secondRan = true
			mu.Unlock()
			return nil
		}},
	}

	if err := r.Start(context.Background(), stages); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-entered

	go func() {
		// Let Cancel observe the in-flight stage, then unblock it.
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	r.Cancel()

	mu.Lock()
	defer mu.Unlock()
	if secondRan {
		t.Error("stage after cancellation still ran")
	}
	snap := tr.Snapshot()
	if !snap.IsComplete || snap.Error == "" {
		t.Errorf("cancelled run state = %+v", snap)
	}
	if r.Running() {
		t.Error("Running() true after cancel drained")
	}
}

func TestRunner_StageFailureStopsRun(t *testing.T) {
	tr := NewTracker()
	r := NewRunner(tr, internal.DefaultLogger)

	boom := fmt.Errorf("bad column")
	var secondRan bool
	var mu sync.Mutex
	stages := []Stage{
		{Name: "explode", Target: 50, Run: func(context.Context) error { return boom }},
		{Name: "after", Target: 100, Run: func(context.Context) error {
			mu.Lock()
			secondRan = true
			mu.Unlock()
			return nil
		}},
	}

	if err := r.Start(context.Background(), stages); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	if secondRan {
		t.Error("stage after failure still ran")
	}
	snap := tr.Snapshot()
	if !snap.IsComplete || snap.Error != "bad column" {
		t.Errorf("failed run state = %+v", snap)
	}
}

func TestRunner_CancelWhenIdleIsNoop(t *testing.T) {
	r := NewRunner(NewTracker(), internal.DefaultLogger)
	r.Cancel() // must not block or panic
	r.Wait()
}

func TestProgressPollingDuringRun(t *testing.T) {
	tr := NewTracker()
	r := NewRunner(tr, internal.DefaultLogger)

	step := make(chan struct{})
	stages := []Stage{
		{Name: "a", Target: 30, Run: func(context.Context) error { <-step; return nil }},
		{Name: "b", Target: 100, Run: func(context.Context) error { <-step; return nil }},
	}

	if err := r.Start(context.Background(), stages); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Polls never block and percent never decreases.
	last := -1.0
	for i := 0; i < 2; i++ {
		step <- struct{}{}
		snap := tr.Snapshot()
		if snap.Percent < last {
			t.Errorf("percent regressed: %v < %v", snap.Percent, last)
		}
		last = snap.Percent
	}
	r.Wait()

	if snap := tr.Snapshot(); snap.Percent != 100 || !snap.IsComplete {
		t.Errorf("final state = %+v", snap)
	}
}

func TestRunner_PanicBecomesFailure(t *testing.T) {
	tr := NewTracker()
	r := NewRunner(tr, internal.DefaultLogger)

	stages := []Stage{
		{Name: "first", Target: 50, Run: func(context.Context) error { return nil }},
		{Name: "boom", Target: 100, Run: func(context.Context) error {
			var types []string
			_ = types[3]
			return nil
		}},
	}

	if err := r.Start(context.Background(), stages); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.Wait()

	snap := tr.Snapshot()
	if !snap.IsComplete {
		t.Error("panicked run not marked complete")
	}
	if snap.Error == "" {
		t.Error("panicked run has no error")
	}
	if r.Running() {
		t.Error("Running() true after panic")
	}
	if err := r.Start(context.Background(), testStages(100)); err != nil {
		t.Errorf("restart after panic failed: %v", err)
	}
	r.Wait()
}

func TestRunner_ExclusiveExcludesRuns(t *testing.T) {
	tr := NewTracker()
	r := NewRunner(tr, internal.DefaultLogger)

	if !r.TryExclusive() {
		t.Fatal("TryExclusive failed on an idle runner")
	}
	if err := r.Start(context.Background(), testStages(100)); !errors.HasCode(err, errors.CodeAlreadyRunning) {
		t.Errorf("Start during exclusive hold: err = %v", err)
	}
	r.EndExclusive()

	release := make(chan struct{})
	entered := make(chan struct{})
	stages := []Stage{{Name: "block", Target: 100, Run: func(context.Context) error {
		close(entered)
		<-release
		return nil
	}}}
	if err := r.Start(context.Background(), stages); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-entered
	if r.TryExclusive() {
		t.Error("TryExclusive succeeded during a run")
	}
	close(release)
	r.Wait()

	if !r.TryExclusive() {
		t.Error("TryExclusive failed after the run drained")
	}
	r.EndExclusive()
}
