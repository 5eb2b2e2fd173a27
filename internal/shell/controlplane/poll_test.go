package controlplane

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// PollUntil Tests
// =============================================================================

func TestPollUntil_ReturnsOnTerminalSuccess(t *testing.T) {
	calls := 0
	var progress []string
	fetch := func(ctx context.Context) (PollResult, error) {
		calls++
		if calls == 3 {
			return PollResult{Status: "Succeeded"}, nil
		}
		return PollResult{Status: "Syncing"}, nil
	}

	err := PollUntil(context.Background(), "image sync", fetch,
		func(r PollResult) bool { return r.Status == "Succeeded" },
		func(r PollResult) bool { return r.Status == "Failed" },
		func(r PollResult) { progress = append(progress, r.Status) },
		PollConfig{Timeout: time.Second, Interval: 0},
	)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// onProgress sees every observed status, terminal included, and nothing after.
	assert.Equal(t, []string{"Syncing", "Syncing", "Succeeded"}, progress)
}

func TestPollUntil_RemoteFailure(t *testing.T) {
	fetch := func(ctx context.Context) (PollResult, error) {
		return PollResult{Status: "Failed", Description: "image not found"}, nil
	}

	err := PollUntil(context.Background(), "image sync", fetch,
		func(r PollResult) bool { return r.Status == "Succeeded" },
		func(r PollResult) bool { return r.Status == "Failed" },
		nil,
		PollConfig{Timeout: time.Second, Interval: 0},
	)

	var remoteErr *RemoteFailedError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "Failed", remoteErr.Status)
	assert.Contains(t, remoteErr.Error(), "image not found")
}

func TestPollUntil_TimeoutBeforeFirstInterval(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) (PollResult, error) {
		calls++
		return PollResult{Status: "Syncing"}, nil
	}

	err := PollUntil(context.Background(), "image sync", fetch,
		func(r PollResult) bool { return false },
		func(r PollResult) bool { return false },
		nil,
		PollConfig{Timeout: 10 * time.Millisecond, Interval: time.Hour},
	)

	var timeoutErr *PollTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "Syncing", timeoutErr.LastStatus)
	assert.Equal(t, 1, calls)
}

func TestPollUntil_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(ctx context.Context) (PollResult, error) {
		return PollResult{}, boom
	}

	err := PollUntil(context.Background(), "release", fetch,
		func(PollResult) bool { return false },
		func(PollResult) bool { return false },
		nil,
		PollConfig{Timeout: time.Second, Interval: 0},
	)

	assert.ErrorIs(t, err, boom)
}

func TestPollUntil_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context) (PollResult, error) {
		cancel()
		return PollResult{Status: "inprogress"}, nil
	}

	err := PollUntil(ctx, "release", fetch,
		func(PollResult) bool { return false },
		func(PollResult) bool { return false },
		nil,
		PollConfig{Timeout: time.Minute, Interval: time.Minute},
	)

	assert.ErrorIs(t, err, context.Canceled)
}
