// Package domain contains the core types for the deploy pipeline.
// This is part of the Functional Core - plain value types with no I/O.
package domain

// =============================================================================
// Service Descriptor
// =============================================================================

// ServiceDescriptor identifies one deployable unit: where to build it from,
// what image to produce, and (optionally) which remote function it feeds.
// Descriptors are owned by the caller's configuration and read-only here.
type ServiceDescriptor struct {
	// Name is the service name, unique within a manifest.
	Name string `json:"name" yaml:"-"`

	// Dockerfile is the path to the Dockerfile, relative to the manifest.
	Dockerfile string `json:"dockerfile" yaml:"dockerfile"`

	// Context is the docker build context directory.
	Context string `json:"context" yaml:"context"`

	// Image is the image name without registry or tag (e.g. "api").
	Image string `json:"image" yaml:"image"`

	// Platform is the target platform string (e.g. "linux/amd64").
	Platform string `json:"platform" yaml:"platform"`

	// FunctionID is the remote function this service's image is attached to.
	// Empty means the remote phases are skipped for this service.
	FunctionID string `json:"function_id,omitempty" yaml:"function_id,omitempty"`
}

// =============================================================================
// Deploy Request
// =============================================================================

// DeployRequest describes one deploy invocation. It is constructed once per
// run and never mutated while the run executes.
type DeployRequest struct {
	// Services is the set of service names to deploy. Empty means all
	// configured services.
	Services []string `json:"services,omitempty"`

	// Versions maps service name to the version string used as image tag.
	Versions map[string]string `json:"versions"`

	// SkipBuild pre-marks every build step skipped.
	SkipBuild bool `json:"skip_build"`

	// SkipPush pre-marks every push step skipped.
	SkipPush bool `json:"skip_push"`

	// DryRun plans and reports steps without running anything.
	DryRun bool `json:"dry_run"`
}

// Selected reports whether the named service is in scope for this request.
func (r DeployRequest) Selected(name string) bool {
	if len(r.Services) == 0 {
		return true
	}
	for _, s := range r.Services {
		if s == name {
			return true
		}
	}
	return false
}
