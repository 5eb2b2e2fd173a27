package manifest

import (
	"context"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"

	"github.com/artpar/fnship/internal/core/domain"
)

// =============================================================================
// Compose Import
// =============================================================================

// ImportCompose converts a docker compose file into service descriptors so
// an existing project can be onboarded without writing a manifest by hand.
// Only buildable services are imported; services that merely reference a
// prebuilt image have nothing to deploy here and are skipped.
func ImportCompose(yamlContent string) ([]domain.ServiceDescriptor, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, NewManifestError("", "compose file is empty", ErrInvalidYAML)
	}

	project, err := loadComposeProject(yamlContent)
	if err != nil {
		return nil, err
	}
	if len(project.Services) == 0 {
		return nil, NewManifestError("services", "compose file defines no services", ErrNoServices)
	}

	services := make([]domain.ServiceDescriptor, 0, len(project.Services))
	for _, svc := range project.Services {
		if svc.Build == nil {
			continue
		}
		d := domain.ServiceDescriptor{
			Name:       svc.Name,
			Image:      imageName(svc),
			Dockerfile: svc.Build.Dockerfile,
			Context:    svc.Build.Context,
		}
		if len(svc.Platform) > 0 {
			d.Platform = svc.Platform
		}
		if d.Dockerfile == "" {
			d.Dockerfile = "Dockerfile"
		}
		if d.Context == "" {
			d.Context = "."
		}
		services = append(services, d)
	}
	if len(services) == 0 {
		return nil, NewManifestError("services", "no buildable services in compose file", ErrNoServices)
	}

	// compose-go hands services back in map order; keep the output stable.
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

// imageName derives the repository-local image name for a service. Compose
// image references may carry a registry and tag; only the last path element
// matters for our registry/namespace/image:version scheme.
func imageName(svc types.ServiceConfig) string {
	if svc.Image == "" {
		return svc.Name
	}
	ref := svc.Image
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		ref = ref[idx+1:]
	}
	if idx := strings.Index(ref, ":"); idx >= 0 {
		ref = ref[:idx]
	}
	if ref == "" {
		return svc.Name
	}
	return ref
}

// loadComposeProject parses compose YAML in-memory.
func loadComposeProject(yamlContent string) (*types.Project, error) {
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil {
		return nil, NewManifestError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return nil, NewManifestError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(yamlContent),
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("fnship-import", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// In-memory parse: no path resolution, no external files.
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, NewManifestError("", err.Error(), ErrInvalidYAML)
	}
	return project, nil
}
