package controlplane

import (
	"context"
	"time"
)

// =============================================================================
// Poll Defaults
// =============================================================================

const (
	// Image-sync polling: terminal success Succeeded, terminal failure
	// Failed or Canceled.
	ImageSyncTimeout  = 300 * time.Second
	ImageSyncInterval = 5 * time.Second

	// Release polling: terminal success done, terminal failure failed.
	ReleaseTimeout  = 300 * time.Second
	ReleaseInterval = 3 * time.Second
)

// =============================================================================
// Generic Bounded Poll
// =============================================================================

// PollConfig bounds one poll loop. The timeout is a local wall-clock budget;
// there is no retry once it is spent.
type PollConfig struct {
	Timeout  time.Duration
	Interval time.Duration
}

// FetchFunc retrieves the current remote status.
type FetchFunc func(ctx context.Context) (PollResult, error)

// PollUntil repeatedly fetches remote status and reports every observed
// result through onProgress, including non-terminal ones. It returns nil the
// instant isSuccess holds, a *RemoteFailedError the instant isFailure holds,
// and a *PollTimeoutError when the budget elapses first. Errors from fetch
// propagate as-is. The loop checks ctx each iteration and between sleeps.
func PollUntil(ctx context.Context, operation string, fetch FetchFunc, isSuccess, isFailure func(PollResult) bool, onProgress func(PollResult), cfg PollConfig) error {
	deadline := time.NewTimer(cfg.Timeout)
	defer deadline.Stop()

	var last PollResult
	for {
		res, err := fetch(ctx)
		if err != nil {
			return err
		}
		last = res
		if onProgress != nil {
			onProgress(res)
		}

		if isSuccess(res) {
			return nil
		}
		if isFailure(res) {
			return &RemoteFailedError{
				Operation:   operation,
				Status:      res.Status,
				Description: res.Description,
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &PollTimeoutError{
				Operation:  operation,
				Timeout:    cfg.Timeout,
				LastStatus: last.Status,
			}
		case <-time.After(cfg.Interval):
		}
	}
}

// =============================================================================
// Concrete Pollers
// =============================================================================

// WaitForImageSync polls the platform's image pull/cache state until the
// image a function was pointed at is ready to serve traffic.
func (c *Client) WaitForImageSync(ctx context.Context, functionID, source string, onProgress func(PollResult)) error {
	return PollUntil(ctx, "image sync",
		func(ctx context.Context) (PollResult, error) {
			return c.GetImageSyncStatus(ctx, functionID, source)
		},
		func(r PollResult) bool { return r.Status == "Succeeded" },
		func(r PollResult) bool { return r.Status == "Failed" || r.Status == "Canceled" },
		onProgress,
		PollConfig{Timeout: ImageSyncTimeout, Interval: ImageSyncInterval},
	)
}

// WaitForRelease polls the traffic release until it completes.
func (c *Client) WaitForRelease(ctx context.Context, functionID string, onProgress func(PollResult)) error {
	return PollUntil(ctx, "release",
		func(ctx context.Context) (PollResult, error) {
			return c.GetReleaseStatus(ctx, functionID)
		},
		func(r PollResult) bool { return r.Status == "done" },
		func(r PollResult) bool { return r.Status == "failed" },
		onProgress,
		PollConfig{Timeout: ReleaseTimeout, Interval: ReleaseInterval},
	)
}
