package pipeline

import (
	"sync"
	"time"

	"github.com/artpar/fnship/internal/core/domain"
)

// =============================================================================
// Observer Sinks
// =============================================================================

// LogSink receives append-only log lines for an external presentation layer.
type LogSink func(line string)

// StepSink receives partial step updates keyed by step ID.
type StepSink func(stepID string, patch domain.StepPatch)

// =============================================================================
// Step Registry
// =============================================================================

// StepRegistry holds the steps of one run and pushes every transition to the
// step sink. The orchestrator is the only writer; the mutex exists because a
// presentation layer may snapshot concurrently.
type StepRegistry struct {
	mu      sync.Mutex
	order   []string
	steps   map[string]*domain.Step
	started map[string]time.Time
	onStep  StepSink
	now     func() time.Time
}

// NewStepRegistry creates an empty registry reporting to onStep (may be nil).
func NewStepRegistry(onStep StepSink) *StepRegistry {
	if onStep == nil {
		onStep = func(string, domain.StepPatch) {}
	}
	return &StepRegistry{
		steps:   make(map[string]*domain.Step),
		started: make(map[string]time.Time),
		onStep:  onStep,
		now:     time.Now,
	}
}

// Add registers a planned step and reports its initial status, so pre-marked
// skips reach the observer before anything executes.
func (r *StepRegistry) Add(step domain.Step) {
	r.mu.Lock()
	s := step
	r.order = append(r.order, s.ID)
	r.steps[s.ID] = &s
	status := s.Status
	msg := s.Message
	r.mu.Unlock()

	patch := domain.StepPatch{Status: &status}
	if msg != "" {
		patch.Message = &msg
	}
	r.onStep(s.ID, patch)
}

// Start transitions a step to running and records the start instant.
func (r *StepRegistry) Start(id string) {
	r.transition(id, domain.StepRunning, "")
}

// Succeed transitions a step to success with the given message.
func (r *StepRegistry) Succeed(id, message string) {
	r.transition(id, domain.StepSuccess, message)
}

// Fail transitions a step to error with the given message.
func (r *StepRegistry) Fail(id, message string) {
	r.transition(id, domain.StepError, message)
}

// Skip transitions a step to skipped with a message naming the missing
// precondition.
func (r *StepRegistry) Skip(id, message string) {
	r.transition(id, domain.StepSkipped, message)
}

// SetMessage updates a running step's message without changing status, used
// for live poll progress.
func (r *StepRegistry) SetMessage(id, message string) {
	r.mu.Lock()
	step, ok := r.steps[id]
	if ok {
		step.Message = message
	}
	r.mu.Unlock()
	if ok {
		r.onStep(id, domain.StepPatch{Message: &message})
	}
}

// Steps returns a snapshot of all steps in creation order.
func (r *StepRegistry) Steps() []domain.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Step, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.steps[id])
	}
	return out
}

// Get returns one step by ID.
func (r *StepRegistry) Get(id string) (domain.Step, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	step, ok := r.steps[id]
	if !ok {
		return domain.Step{}, false
	}
	return *step, true
}

func (r *StepRegistry) transition(id string, to domain.StepStatus, message string) {
	r.mu.Lock()
	step, ok := r.steps[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	if err := step.Transition(to); err != nil {
		r.mu.Unlock()
		return
	}

	now := r.now()
	var duration *int64
	switch to {
	case domain.StepRunning:
		r.started[id] = now
	case domain.StepSuccess, domain.StepError:
		if startedAt, started := r.started[id]; started {
			ms := now.Sub(startedAt).Milliseconds()
			step.DurationMS = ms
			duration = &ms
		}
	}
	if message != "" {
		step.Message = message
	}
	r.mu.Unlock()

	patch := domain.StepPatch{Status: &to, DurationMS: duration}
	if message != "" {
		patch.Message = &message
	}
	r.onStep(id, patch)
}
