package domain

import "time"

// =============================================================================
// Run Status
// =============================================================================

// RunStatus is the terminal state of one deploy invocation.
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunRunning RunStatus = "running"
	RunDone    RunStatus = "done"
	RunError   RunStatus = "error"
)

// =============================================================================
// Run Record
// =============================================================================

// RunRecord is the persisted outcome of one deploy invocation, kept for the
// history view. The step registry is flattened into Steps when the run ends.
type RunRecord struct {
	ID           string    `json:"id" db:"id"`
	Status       RunStatus `json:"status" db:"status"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	StartedAt    time.Time `json:"started_at" db:"started_at"`
	FinishedAt   time.Time `json:"finished_at" db:"finished_at"`
	Steps        []Step    `json:"steps,omitempty" db:"-"`
}
