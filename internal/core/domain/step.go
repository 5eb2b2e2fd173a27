package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Step Errors
// =============================================================================

var (
	// ErrStepTerminal is returned when transitioning a step that already
	// reached a terminal status.
	ErrStepTerminal = errors.New("step is already in a terminal status")

	// ErrInvalidStepTransition is returned for transitions that would move a
	// step backwards (e.g. running -> pending).
	ErrInvalidStepTransition = errors.New("invalid step status transition")
)

// =============================================================================
// Step Status
// =============================================================================

// StepStatus is the observable status of one pipeline step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
	StepSkipped StepStatus = "skipped"
)

// Terminal reports whether the status admits no further transitions.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepSuccess, StepError, StepSkipped:
		return true
	}
	return false
}

// =============================================================================
// Phases
// =============================================================================

// Phase is one of the six fixed pipeline phases applied per service.
type Phase string

const (
	PhaseBuild       Phase = "build"
	PhasePush        Phase = "push"
	PhaseUpdate      Phase = "update"
	PhaseSync        Phase = "sync"
	PhaseRelease     Phase = "release"
	PhaseWaitRelease Phase = "wait-release"
)

// Phases lists the pipeline phases in execution order.
func Phases() []Phase {
	return []Phase{PhaseBuild, PhasePush, PhaseUpdate, PhaseSync, PhaseRelease, PhaseWaitRelease}
}

// =============================================================================
// Step
// =============================================================================

// Step is one unit of observable work. Steps are created when a run is
// planned, transitioned by the orchestrator as phases execute, and never
// deleted.
type Step struct {
	ID         string     `json:"id"` // "<service>/<phase>"
	Service    string     `json:"service"`
	Phase      Phase      `json:"phase"`
	Name       string     `json:"name"` // display name
	Status     StepStatus `json:"status"`
	Message    string     `json:"message,omitempty"`
	DurationMS int64      `json:"duration_ms,omitempty"`
}

// StepID builds the canonical step identifier for a service and phase.
func StepID(service string, phase Phase) string {
	return service + "/" + string(phase)
}

// NewStep creates a pending step for a service and phase.
func NewStep(service string, phase Phase) Step {
	return Step{
		ID:      StepID(service, phase),
		Service: service,
		Phase:   phase,
		Name:    fmt.Sprintf("%s %s", string(phase), service),
		Status:  StepPending,
	}
}

// Transition validates and applies a status change. Status is monotonic:
// pending -> running -> {success|error|skipped}, with pending -> skipped
// allowed for pre-marked skips.
func (s *Step) Transition(to StepStatus) error {
	if s.Status.Terminal() {
		return fmt.Errorf("step %s: %w", s.ID, ErrStepTerminal)
	}
	switch {
	case s.Status == StepPending && (to == StepRunning || to == StepSkipped):
	case s.Status == StepRunning && to.Terminal():
	default:
		return fmt.Errorf("step %s: %s -> %s: %w", s.ID, s.Status, to, ErrInvalidStepTransition)
	}
	s.Status = to
	return nil
}

// =============================================================================
// Step Patch
// =============================================================================

// StepPatch is a partial step update delivered to the step observer sink.
// Nil fields are unchanged.
type StepPatch struct {
	Status     *StepStatus `json:"status,omitempty"`
	Message    *string     `json:"message,omitempty"`
	DurationMS *int64      `json:"duration_ms,omitempty"`
}
