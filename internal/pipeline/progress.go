package pipeline

import (
	"sync"

	"pagetrust/internal/models"
	"pagetrust/internal/steps"
)

// StepUpdate is a snapshot of the whole step list, pushed to subscribers
// on every transition.
type StepUpdate struct {
	RunID string                `json:"runId"`
	Steps []models.AnalysisStep `json:"steps"`
	Done  bool                  `json:"done"`
}

// Tracker owns the step-status sequence for one run. The executor is the
// only writer; consumers read snapshots or subscribe for updates.
type Tracker struct {
	runID string

	mu    sync.Mutex
	steps []models.AnalysisStep
	subs  map[chan StepUpdate]struct{}
	done  bool
}

func newTracker(runID string) *Tracker {
	return &Tracker{
		runID: runID,
		steps: steps.Initialize(),
		subs:  make(map[chan StepUpdate]struct{}),
	}
}

func (t *Tracker) RunID() string { return t.runID }

// Steps returns a copy of the current step list.
func (t *Tracker) Steps() []models.AnalysisStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.AnalysisStep, len(t.steps))
	copy(out, t.steps)
	return out
}

func (t *Tracker) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Subscribe registers a channel for step updates. The returned cancel
// func is safe to call more than once. A tracker that already finished
// delivers one final snapshot and closes the channel immediately.
func (t *Tracker) Subscribe() (<-chan StepUpdate, func()) {
	// sized to hold every transition a full run can emit
	ch := make(chan StepUpdate, 32)

	t.mu.Lock()
	if t.done {
		ch <- t.snapshotLocked()
		close(ch)
		t.mu.Unlock()
		return ch, func() {}
	}
	t.subs[ch] = struct{}{}
	ch <- t.snapshotLocked()
	t.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if _, ok := t.subs[ch]; ok {
				delete(t.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (t *Tracker) setStatus(id string, status models.StepStatus, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = steps.UpdateStatus(t.steps, id, status, errMsg)
	t.broadcastLocked()
}

func (t *Tracker) loading(id string)  { t.setStatus(id, models.StepStatusLoading, "") }
func (t *Tracker) complete(id string) { t.setStatus(id, models.StepStatusCompleted, "") }
func (t *Tracker) fail(id, msg string) {
	t.setStatus(id, models.StepStatusError, msg)
}

// finish marks the run as settled and releases all subscribers.
func (t *Tracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	t.broadcastLocked()
	for ch := range t.subs {
		close(ch)
	}
	t.subs = make(map[chan StepUpdate]struct{})
}

func (t *Tracker) snapshotLocked() StepUpdate {
	out := make([]models.AnalysisStep, len(t.steps))
	copy(out, t.steps)
	return StepUpdate{RunID: t.runID, Steps: out, Done: t.done}
}

// broadcastLocked fans out without blocking; a slow subscriber may miss
// intermediate updates. Channel close signals run completion.
func (t *Tracker) broadcastLocked() {
	update := t.snapshotLocked()
	for ch := range t.subs {
		select {
		case ch <- update:
		default:
		}
	}
}
