package plan

import (
	"testing"

	"github.com/artpar/fnship/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServices() []domain.ServiceDescriptor {
	return []domain.ServiceDescriptor{
		{Name: "api", Image: "api", Dockerfile: "api/Dockerfile", Context: "api", FunctionID: "fn-api"},
		{Name: "worker", Image: "worker", Dockerfile: "worker/Dockerfile", Context: "worker"},
	}
}

// =============================================================================
// Build Tests
// =============================================================================

func TestBuild_AllServicesSixStepsEach(t *testing.T) {
	req := domain.DeployRequest{
		Versions: map[string]string{"api": "v1.0.1", "worker": "v0.3.0"},
	}

	p, err := Build(testServices(), req, "cr.example.com", "team")

	require.NoError(t, err)
	require.Len(t, p.Services, 2)
	assert.Equal(t, "api", p.Services[0].Service.Name)
	assert.Equal(t, "worker", p.Services[1].Service.Name)
	assert.Len(t, p.AllSteps(), 12)

	// Six phases per service, fixed order.
	for _, sp := range p.Services {
		require.Len(t, sp.Steps, 6)
		for i, phase := range domain.Phases() {
			assert.Equal(t, phase, sp.Steps[i].Phase)
		}
	}
}

func TestBuild_ImageTagFormat(t *testing.T) {
	req := domain.DeployRequest{
		Services: []string{"api"},
		Versions: map[string]string{"api": "v1.0.1"},
	}

	p, err := Build(testServices(), req, "cr.example.com", "team")

	require.NoError(t, err)
	assert.Equal(t, "cr.example.com/team/api:v1.0.1", p.Services[0].ImageTag)
}

func TestBuild_SkipBuildPreMarksOnlyBuild(t *testing.T) {
	req := domain.DeployRequest{
		Services:  []string{"api"},
		Versions:  map[string]string{"api": "v1"},
		SkipBuild: true,
	}

	p, err := Build(testServices(), req, "cr.example.com", "team")

	require.NoError(t, err)
	steps := p.Services[0].Steps
	assert.Equal(t, domain.StepSkipped, steps[0].Status)
	assert.Equal(t, domain.StepPending, steps[1].Status)
}

func TestBuild_SkipPush(t *testing.T) {
	req := domain.DeployRequest{
		Services: []string{"api"},
		Versions: map[string]string{"api": "v1"},
		SkipPush: true,
	}

	p, err := Build(testServices(), req, "cr.example.com", "team")

	require.NoError(t, err)
	steps := p.Services[0].Steps
	assert.Equal(t, domain.StepPending, steps[0].Status)
	assert.Equal(t, domain.StepSkipped, steps[1].Status)
}

func TestBuild_UnknownServiceRejected(t *testing.T) {
	req := domain.DeployRequest{
		Services: []string{"api", "missing"},
		Versions: map[string]string{"api": "v1"},
	}

	_, err := Build(testServices(), req, "cr.example.com", "team")

	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestBuild_MissingVersionRejected(t *testing.T) {
	req := domain.DeployRequest{
		Versions: map[string]string{"api": "v1"}, // worker has none
	}

	_, err := Build(testServices(), req, "cr.example.com", "team")

	assert.ErrorIs(t, err, ErrMissingVersion)
}

func TestBuild_NoServicesConfigured(t *testing.T) {
	_, err := Build(nil, domain.DeployRequest{}, "cr.example.com", "team")

	assert.ErrorIs(t, err, ErrNoServices)
}
