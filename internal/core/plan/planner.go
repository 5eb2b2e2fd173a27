// Package plan expands a deploy request over the configured services into
// the fixed step plan the orchestrator executes. This is part of the
// Functional Core - all functions are pure with no I/O.
package plan

import (
	"errors"
	"fmt"

	"github.com/artpar/fnship/internal/core/domain"
)

// =============================================================================
// Planner Errors
// =============================================================================

var (
	// ErrUnknownService is returned when the request names a service that is
	// not in the manifest.
	ErrUnknownService = errors.New("service is not configured")

	// ErrMissingVersion is returned when a selected service has no version
	// in the request.
	ErrMissingVersion = errors.New("no version for service")

	// ErrNoServices is returned when the request selects nothing.
	ErrNoServices = errors.New("no services selected")
)

// =============================================================================
// Plan Types
// =============================================================================

// ServicePlan is the resolved work for one service: the image tag to produce
// and the six steps in execution order.
type ServicePlan struct {
	Service  domain.ServiceDescriptor
	Version  string
	ImageTag string // registry/namespace/image:version
	Steps    []domain.Step
}

// Plan is the full resolved run, services in manifest order.
type Plan struct {
	Services []ServicePlan
}

// AllSteps flattens the plan's steps in execution order.
func (p Plan) AllSteps() []domain.Step {
	var steps []domain.Step
	for _, sp := range p.Services {
		steps = append(steps, sp.Steps...)
	}
	return steps
}

// =============================================================================
// Planning
// =============================================================================

// ImageTag builds the fully qualified image tag for a service version.
func ImageTag(registry, namespace, image, version string) string {
	return fmt.Sprintf("%s/%s/%s:%s", registry, namespace, image, version)
}

// Build resolves a deploy request against the configured services.
//
// Selection: an empty request selects every service; otherwise every named
// service must exist. Each selected service gets exactly six steps in the
// fixed phase order, with build and push pre-marked skipped when the request
// says so. Every selected service must have a version.
func Build(services []domain.ServiceDescriptor, req domain.DeployRequest, registry, namespace string) (*Plan, error) {
	known := make(map[string]bool, len(services))
	for _, svc := range services {
		known[svc.Name] = true
	}
	for _, name := range req.Services {
		if !known[name] {
			return nil, fmt.Errorf("%q: %w", name, ErrUnknownService)
		}
	}

	p := &Plan{}
	for _, svc := range services {
		if !req.Selected(svc.Name) {
			continue
		}
		version, ok := req.Versions[svc.Name]
		if !ok || version == "" {
			return nil, fmt.Errorf("%q: %w", svc.Name, ErrMissingVersion)
		}

		sp := ServicePlan{
			Service:  svc,
			Version:  version,
			ImageTag: ImageTag(registry, namespace, svc.Image, version),
		}
		for _, phase := range domain.Phases() {
			step := domain.NewStep(svc.Name, phase)
			switch {
			case phase == domain.PhaseBuild && req.SkipBuild:
				step.Status = domain.StepSkipped
				step.Message = "build skipped by request"
			case phase == domain.PhasePush && req.SkipPush:
				step.Status = domain.StepSkipped
				step.Message = "push skipped by request"
			}
			sp.Steps = append(sp.Steps, step)
		}
		p.Services = append(p.Services, sp)
	}

	if len(p.Services) == 0 {
		return nil, ErrNoServices
	}
	return p, nil
}
