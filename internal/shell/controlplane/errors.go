package controlplane

import (
	"fmt"
	"time"
)

// =============================================================================
// Error Types
// =============================================================================

// APIError is returned when a control-plane response has a non-2xx transport
// status or its envelope carries no Result. Code and Message are the
// envelope's embedded error detail when present.
type APIError struct {
	Action     string
	StatusCode int
	Body       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	detail := e.Body
	if e.Code != "" || e.Message != "" {
		detail = fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Action, e.StatusCode, detail)
}

// RemoteFailedError is returned when a polled remote operation reached a
// remote-reported failure state.
type RemoteFailedError struct {
	Operation   string
	Status      string
	Description string
}

func (e *RemoteFailedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s failed with status %q: %s", e.Operation, e.Status, e.Description)
	}
	return fmt.Sprintf("%s failed with status %q", e.Operation, e.Status)
}

// PollTimeoutError is returned when the local timeout budget is exhausted
// before the polled operation reached a terminal state. Distinguishable from
// RemoteFailedError so callers can decide whether a retry is safe.
type PollTimeoutError struct {
	Operation  string
	Timeout    time.Duration
	LastStatus string
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("%s did not finish within %s (last status %q)", e.Operation, e.Timeout, e.LastStatus)
}
