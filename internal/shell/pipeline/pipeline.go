// Package pipeline drives services through the deploy phase sequence:
// build, push, point the remote function at the image, wait for the image
// sync, trigger a traffic release, and wait for it to finish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/fnship/internal/core/domain"
	"github.com/artpar/fnship/internal/core/plan"
	"github.com/artpar/fnship/internal/shell/controlplane"
	"github.com/artpar/fnship/internal/shell/executor"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// CommandRunner runs build/push tooling as subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, dir string, sink executor.OutputSink) error
}

// ControlPlane is the subset of the control-plane client the pipeline uses.
type ControlPlane interface {
	UpdateFunction(ctx context.Context, id, imageSource string) error
	Release(ctx context.Context, functionID, description string) error
	WaitForImageSync(ctx context.Context, functionID, source string, onProgress func(controlplane.PollResult)) error
	WaitForRelease(ctx context.Context, functionID string, onProgress func(controlplane.PollResult)) error
}

// =============================================================================
// Orchestrator
// =============================================================================

// Config holds everything one run needs.
type Config struct {
	// Registry and Namespace qualify image tags: registry/namespace/image:version.
	Registry  string
	Namespace string

	// Services are the configured descriptors, in manifest order.
	Services []domain.ServiceDescriptor

	// Runner shells out to docker. Required.
	Runner CommandRunner

	// Client is the authenticated control-plane client. Nil means no
	// credential is configured and every remote phase is skipped per-service.
	Client ControlPlane

	Logger *slog.Logger

	// OnLog and OnStep feed an external presentation layer. Optional.
	OnLog  LogSink
	OnStep StepSink
}

// Orchestrator executes the deploy pipeline, one service at a time, six
// phases per service in fixed order. Its step registry is the only state a
// presentation layer reads.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
	log    LogSink
	steps  *StepRegistry
}

// NewOrchestrator creates an orchestrator for one run.
func NewOrchestrator(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logSink := cfg.OnLog
	if logSink == nil {
		logSink = func(string) {}
	}
	return &Orchestrator{
		cfg:    cfg,
		logger: logger,
		log:    logSink,
		steps:  NewStepRegistry(cfg.OnStep),
	}
}

// Steps returns a snapshot of the run's step registry.
func (o *Orchestrator) Steps() []domain.Step {
	return o.steps.Steps()
}

// Deploy runs the pipeline for the request. Any fatal failure aborts the
// whole run at the point it occurs: remaining phases and services are left
// in whatever status they were in, and the returned record carries the first
// fatal error. The record is returned for both outcomes so callers can
// persist partial progress.
func (o *Orchestrator) Deploy(ctx context.Context, req domain.DeployRequest) (*domain.RunRecord, error) {
	record := &domain.RunRecord{
		ID:        uuid.New().String(),
		Status:    domain.RunRunning,
		StartedAt: time.Now().UTC(),
	}

	p, err := plan.Build(o.cfg.Services, req, o.cfg.Registry, o.cfg.Namespace)
	if err != nil {
		return o.finish(record, err)
	}

	for _, sp := range p.Services {
		for _, step := range sp.Steps {
			o.steps.Add(step)
		}
	}

	if req.DryRun {
		o.log("dry-run: no commands or remote calls will be made")
		for _, step := range o.steps.Steps() {
			if !step.Status.Terminal() {
				o.steps.Skip(step.ID, "dry-run")
			}
		}
		return o.finish(record, nil)
	}

	for _, sp := range p.Services {
		if err := o.deployService(ctx, sp); err != nil {
			return o.finish(record, err)
		}
	}
	return o.finish(record, nil)
}

// finish seals the record with the terminal run state and step snapshot.
func (o *Orchestrator) finish(record *domain.RunRecord, err error) (*domain.RunRecord, error) {
	record.FinishedAt = time.Now().UTC()
	record.Steps = o.steps.Steps()
	if err != nil {
		record.Status = domain.RunError
		record.ErrorMessage = err.Error()
		o.logger.Error("deploy run failed", "run_id", record.ID, "error", err)
		return record, err
	}
	record.Status = domain.RunDone
	o.logger.Info("deploy run finished", "run_id", record.ID, "steps", len(record.Steps))
	return record, nil
}

// =============================================================================
// Per-Service Phases
// =============================================================================

func (o *Orchestrator) deployService(ctx context.Context, sp plan.ServicePlan) error {
	svc := sp.Service
	o.logger.Info("deploying service", "service", svc.Name, "version", sp.Version, "image", sp.ImageTag)

	if err := o.buildImage(ctx, sp); err != nil {
		return err
	}
	if err := o.pushImage(ctx, sp); err != nil {
		return err
	}

	// Remote phases need an authenticated client and a function binding.
	if reason := o.remotePrecondition(svc); reason != "" {
		for _, phase := range []domain.Phase{domain.PhaseUpdate, domain.PhaseSync, domain.PhaseRelease, domain.PhaseWaitRelease} {
			o.steps.Skip(domain.StepID(svc.Name, phase), reason)
		}
		o.log(fmt.Sprintf("%s: skipping remote phases: %s", svc.Name, reason))
		return nil
	}

	if err := o.updateFunction(ctx, sp); err != nil {
		return err
	}
	if err := o.waitImageSync(ctx, sp); err != nil {
		return err
	}
	if err := o.releaseFunction(ctx, sp); err != nil {
		return err
	}
	return o.waitRelease(ctx, sp)
}

// remotePrecondition names the missing precondition for the remote phases,
// or returns empty when they can run.
func (o *Orchestrator) remotePrecondition(svc domain.ServiceDescriptor) string {
	if o.cfg.Client == nil {
		return "no control-plane credential configured"
	}
	if svc.FunctionID == "" {
		return "no function id configured for service"
	}
	return ""
}

func (o *Orchestrator) buildImage(ctx context.Context, sp plan.ServicePlan) error {
	id := domain.StepID(sp.Service.Name, domain.PhaseBuild)
	if step, ok := o.steps.Get(id); ok && step.Status == domain.StepSkipped {
		return nil
	}
	o.steps.Start(id)

	args := []string{"build"}
	if sp.Service.Platform != "" {
		args = append(args, "--platform", sp.Service.Platform)
	}
	args = append(args, "-f", sp.Service.Dockerfile, "-t", sp.ImageTag, sp.Service.Context)

	if err := o.runDocker(ctx, id, args); err != nil {
		return err
	}
	o.steps.Succeed(id, sp.ImageTag)
	return nil
}

func (o *Orchestrator) pushImage(ctx context.Context, sp plan.ServicePlan) error {
	id := domain.StepID(sp.Service.Name, domain.PhasePush)
	if step, ok := o.steps.Get(id); ok && step.Status == domain.StepSkipped {
		return nil
	}
	o.steps.Start(id)

	if err := o.runDocker(ctx, id, []string{"push", sp.ImageTag}); err != nil {
		return err
	}
	o.steps.Succeed(id, sp.ImageTag)
	return nil
}

// runDocker shells out to docker, streaming output to the log sink. A
// failure marks the step with the captured stderr and aborts the run.
func (o *Orchestrator) runDocker(ctx context.Context, stepID string, args []string) error {
	err := o.cfg.Runner.Run(ctx, "docker", args, "", func(line string) {
		o.log(line)
	})
	if err != nil {
		var procErr *executor.ProcessError
		if errors.As(err, &procErr) {
			o.steps.Fail(stepID, procErr.Stderr)
		} else {
			o.steps.Fail(stepID, err.Error())
		}
		return err
	}
	return nil
}

func (o *Orchestrator) updateFunction(ctx context.Context, sp plan.ServicePlan) error {
	id := domain.StepID(sp.Service.Name, domain.PhaseUpdate)
	o.steps.Start(id)

	if err := o.cfg.Client.UpdateFunction(ctx, sp.Service.FunctionID, sp.ImageTag); err != nil {
		o.steps.Fail(id, err.Error())
		return err
	}
	o.steps.Succeed(id, fmt.Sprintf("function %s -> %s", sp.Service.FunctionID, sp.ImageTag))
	return nil
}

func (o *Orchestrator) waitImageSync(ctx context.Context, sp plan.ServicePlan) error {
	id := domain.StepID(sp.Service.Name, domain.PhaseSync)
	o.steps.Start(id)

	err := o.cfg.Client.WaitForImageSync(ctx, sp.Service.FunctionID, sp.ImageTag, func(r controlplane.PollResult) {
		o.steps.SetMessage(id, pollMessage(r))
	})
	if err != nil {
		o.steps.Fail(id, err.Error())
		return err
	}
	o.steps.Succeed(id, "image synced")
	return nil
}

func (o *Orchestrator) releaseFunction(ctx context.Context, sp plan.ServicePlan) error {
	id := domain.StepID(sp.Service.Name, domain.PhaseRelease)
	o.steps.Start(id)

	description := fmt.Sprintf("deploy %s %s", sp.Service.Name, sp.Version)
	if err := o.cfg.Client.Release(ctx, sp.Service.FunctionID, description); err != nil {
		o.steps.Fail(id, err.Error())
		return err
	}
	o.steps.Succeed(id, description)
	return nil
}

func (o *Orchestrator) waitRelease(ctx context.Context, sp plan.ServicePlan) error {
	id := domain.StepID(sp.Service.Name, domain.PhaseWaitRelease)
	o.steps.Start(id)

	err := o.cfg.Client.WaitForRelease(ctx, sp.Service.FunctionID, func(r controlplane.PollResult) {
		o.steps.SetMessage(id, pollMessage(r))
	})
	if err != nil {
		o.steps.Fail(id, err.Error())
		return err
	}
	o.steps.Succeed(id, "release complete")
	return nil
}

func pollMessage(r controlplane.PollResult) string {
	if r.Description != "" {
		return r.Status + ": " + r.Description
	}
	return r.Status
}
