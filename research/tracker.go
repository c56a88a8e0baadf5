package research

import "sync"

// StepTracker records which stages finished so a stage never runs twice.
type StepTracker struct {
	mu   sync.Mutex
	done map[Stage]bool
}

// NewStepTracker returns an empty tracker.
func NewStepTracker() *StepTracker {
	return &StepTracker{done: make(map[Stage]bool)}
}

// Done reports whether stage has completed.
func (t *StepTracker) Done(stage Stage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done[stage]
}

// MarkDone records stage as completed.
func (t *StepTracker) MarkDone(stage Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done[stage] = true
}

// Completed returns the completed stages in execution order.
func (t *StepTracker) Completed() []Stage {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Stage
	for _, s := range Stages {
		if t.done[s] {
			out = append(out, s)
		}
	}
	return out
}
