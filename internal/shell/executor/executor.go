// Package executor runs external build and push tooling as subprocesses,
// streaming output line-by-line so callers can render live progress.
package executor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// maxLineSize bounds a single output line; docker build can emit long ones.
const maxLineSize = 1024 * 1024

// =============================================================================
// Error Types
// =============================================================================

// ProcessError is returned when a subprocess exits non-zero or the binary is
// missing. Stderr carries the captured error output for diagnosis.
type ProcessError struct {
	Command  string
	ExitCode int // -1 when the process never started
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, stderr)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Runner
// =============================================================================

// OutputSink receives one line of subprocess output at a time, in the order
// produced by each stream. Interleaving between stdout and stderr is not
// guaranteed.
type OutputSink func(line string)

// Runner executes external commands.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a new subprocess runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Run executes name with args in dir, forwarding every stdout/stderr line to
// sink as it arrives. It returns a *ProcessError on non-zero exit or when
// the binary cannot be started.
func (r *Runner) Run(ctx context.Context, name string, args []string, dir string, sink OutputSink) error {
	if sink == nil {
		sink = func(string) {}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	r.logger.Debug("running command", "command", name, "args", args, "dir", dir)

	if err := cmd.Start(); err != nil {
		return &ProcessError{Command: name, ExitCode: -1, Stderr: err.Error(), Err: err}
	}

	var stderrBuf bytes.Buffer
	var mu sync.Mutex // stderrBuf is written from the stderr pump only, but sink runs on both
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pumpLines(stdout, func(line string) {
			mu.Lock()
			sink(line)
			mu.Unlock()
		})
	}()
	go func() {
		defer wg.Done()
		pumpLines(stderr, func(line string) {
			stderrBuf.WriteString(line)
			stderrBuf.WriteString("\n")
			mu.Lock()
			sink(line)
			mu.Unlock()
		})
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ProcessError{Command: name, ExitCode: code, Stderr: stderrBuf.String(), Err: err}
	}
	return nil
}

// Available probes whether a command can be invoked at all, using a no-op
// flag. Any failure means unavailable; no error escapes.
func (r *Runner) Available(ctx context.Context, name string) bool {
	err := r.Run(ctx, name, []string{"--version"}, "", nil)
	if err != nil {
		r.logger.Debug("command unavailable", "command", name, "error", err)
		return false
	}
	return true
}

// pumpLines forwards each line from rd to fn until EOF.
func pumpLines(rd io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		fn(scanner.Text())
	}
}
