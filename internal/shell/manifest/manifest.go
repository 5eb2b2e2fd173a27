package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/artpar/fnship/internal/core/domain"
)

// DefaultFile is the manifest filename looked up in the working directory.
const DefaultFile = "fnship.yaml"

// =============================================================================
// Manifest
// =============================================================================

// serviceEntry is the on-disk shape of one service. Field names follow the
// manifest file format, not the domain type.
type serviceEntry struct {
	Name       string `yaml:"name"`
	Image      string `yaml:"image,omitempty"`
	Dockerfile string `yaml:"dockerfile,omitempty"`
	Context    string `yaml:"context,omitempty"`
	Platform   string `yaml:"platform,omitempty"`
	FunctionID string `yaml:"function_id,omitempty"`
}

// Manifest is the persisted project configuration: where images go and which
// services exist, in deploy order.
type Manifest struct {
	Registry  string         `yaml:"registry"`
	Namespace string         `yaml:"namespace"`
	Services  []serviceEntry `yaml:"services"`
}

// Descriptors converts the manifest's service list into deploy descriptors,
// applying defaults: image defaults to the service name, dockerfile to
// "Dockerfile", context to ".".
func (m *Manifest) Descriptors() []domain.ServiceDescriptor {
	out := make([]domain.ServiceDescriptor, 0, len(m.Services))
	for _, e := range m.Services {
		d := domain.ServiceDescriptor{
			Name:       e.Name,
			Image:      e.Image,
			Dockerfile: e.Dockerfile,
			Context:    e.Context,
			Platform:   e.Platform,
			FunctionID: e.FunctionID,
		}
		if d.Image == "" {
			d.Image = d.Name
		}
		if d.Dockerfile == "" {
			d.Dockerfile = "Dockerfile"
		}
		if d.Context == "" {
			d.Context = "."
		}
		out = append(out, d)
	}
	return out
}

// SetServices replaces the manifest's service list from descriptors,
// preserving order.
func (m *Manifest) SetServices(services []domain.ServiceDescriptor) {
	m.Services = make([]serviceEntry, 0, len(services))
	for _, d := range services {
		m.Services = append(m.Services, serviceEntry{
			Name:       d.Name,
			Image:      d.Image,
			Dockerfile: d.Dockerfile,
			Context:    d.Context,
			Platform:   d.Platform,
			FunctionID: d.FunctionID,
		})
	}
}

// Validate checks the manifest for structural problems.
func (m *Manifest) Validate() error {
	if len(m.Services) == 0 {
		return NewManifestError("services", "at least one service is required", ErrNoServices)
	}
	seen := make(map[string]bool, len(m.Services))
	for i, e := range m.Services {
		field := fmt.Sprintf("services[%d]", i)
		if e.Name == "" {
			return NewManifestError(field+".name", "service name is required", ErrInvalidService)
		}
		if seen[e.Name] {
			return NewManifestError(field+".name", "duplicate service "+e.Name, ErrDuplicateService)
		}
		seen[e.Name] = true
	}
	return nil
}

// =============================================================================
// File I/O
// =============================================================================

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, NewManifestError(path, "file not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, NewManifestError(path, err.Error(), ErrInvalidYAML)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the manifest to path, creating or replacing the file.
func Save(path string, m *Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
