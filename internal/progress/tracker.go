package progress

import (
	"encoding/json"
	"sync"
)

// Tracker folds successive task snapshots into a step model. It is
// safe for concurrent use: update channels deliver snapshots on their
// own goroutine while renderers read from another.
//
// Snapshots carry no sequence numbers, so progress monotonicity is the
// staleness signal: a non-terminal snapshot reporting less progress
// than already shown (a late poll response racing a newer push event)
// is dropped. Terminal snapshots always apply. After a terminal
// snapshot has been applied, further Apply calls are no-ops.
type Tracker struct {
	mu      sync.Mutex
	steps   []Step
	overall int
	last    TaskSnapshot
	done    bool

	completeFn func(result json.RawMessage)
	failFn     func(errText string)
}

// NewTracker returns a tracker over the default pipeline steps.
func NewTracker() *Tracker {
	return &Tracker{steps: DefaultSteps()}
}

// OnComplete registers fn to run exactly once, when the first completed
// snapshot is applied. The result payload may be empty. Register before
// snapshots start arriving.
func (t *Tracker) OnComplete(fn func(result json.RawMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completeFn = fn
}

// OnFail registers fn to run exactly once, when the first failed
// snapshot is applied.
func (t *Tracker) OnFail(fn func(errText string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failFn = fn
}

// Apply folds one snapshot into the model and reports whether the model
// changed. Callbacks registered via OnComplete/OnFail are invoked from
// the caller's goroutine, outside the tracker lock.
func (t *Tracker) Apply(snap TaskSnapshot) bool {
	if snap.Status == "" {
		snap.Status = TaskRunning
	}

	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return false
	}
	if !snap.Status.Terminal() && clamp(snap.Progress, 0, 100) < t.overall {
		t.mu.Unlock()
		return false
	}

	t.steps, t.overall = Reduce(t.steps, snap)
	t.last = snap
	t.done = snap.Status.Terminal()

	completeFn, failFn := t.completeFn, t.failFn
	done := t.done
	t.mu.Unlock()

	if done {
		switch snap.Status {
		case TaskCompleted:
			if completeFn != nil {
				completeFn(snap.Result)
			}
		case TaskFailed:
			if failFn != nil {
				failFn(snap.Error)
			}
		}
	}
	return true
}

// Steps returns a copy of the current step model.
func (t *Tracker) Steps() []Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	return CloneSteps(t.steps)
}

// Overall returns the overall progress percent, 0-100.
func (t *Tracker) Overall() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overall
}

// Status returns the task status from the last applied snapshot, or
// TaskRunning before any snapshot has arrived.
func (t *Tracker) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last.Status == "" {
		return TaskRunning
	}
	return t.last.Status
}

// Terminal reports whether a terminal snapshot has been applied.
func (t *Tracker) Terminal() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Snapshot returns the last applied snapshot.
func (t *Tracker) Snapshot() TaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
