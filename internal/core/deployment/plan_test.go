package deployment

import (
	"testing"

	"github.com/artpar/stackup/internal/core/compose"
	"github.com/artpar/stackup/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stackProfile() domain.Profile {
	return domain.Profile{
		Method:      domain.MethodLocal,
		ComposeFile: "docker-compose.yaml",
		BuildMode:   domain.BuildModeBuild,
		Services: []domain.ServiceDescriptor{
			{Name: "frontend", Health: domain.HealthProbe{Type: domain.ProbeHTTP, URL: "http://localhost:3000"}},
			{Name: "backend", DependsOn: []string{"redis"}, Health: domain.HealthProbe{Type: domain.ProbeHTTP, URL: "http://localhost:8000/api/health"}},
			{Name: "redis", Health: domain.HealthProbe{Type: domain.ProbeCommand, Command: []string{"redis-cli", "ping"}}},
		},
		Timing: domain.DefaultTiming(),
	}
}

func stackCompose() *compose.ParsedSpec {
	return &compose.ParsedSpec{Services: []compose.Service{
		{Name: "backend", Build: &compose.BuildConfig{Context: "./backend"}, DependsOn: []string{"redis"}},
		{Name: "frontend", Build: &compose.BuildConfig{Context: "./frontend"}, DependsOn: []string{"backend"}},
		{Name: "redis", Image: "redis:7-alpine"},
	}}
}

func TestBuildPlan_MergesComposeDependencies(t *testing.T) {
	plan, err := BuildPlan(stackProfile(), stackCompose())
	require.NoError(t, err)

	assert.Equal(t, []string{"redis", "backend", "frontend"}, plan.Names())
	assert.Equal(t, []string{"backend"}, plan.Services[2].DependsOn)
	assert.Equal(t, []string{"frontend", "backend"}, plan.Built)
	assert.Equal(t, []string{"redis"}, plan.Pulled)
}

func TestBuildPlan_ServiceMissingFromCompose(t *testing.T) {
	spec := stackCompose()
	spec.Services = spec.Services[:2]

	_, err := BuildPlan(stackProfile(), spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "redis")
}

func TestBuildPlan_UnconfiguredComposeDependency(t *testing.T) {
	spec := stackCompose()
	spec.Services[0].DependsOn = []string{"postgres", "redis"}

	_, err := BuildPlan(stackProfile(), spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "postgres")
}

func TestBuildPlan_CycleAcrossSources(t *testing.T) {
	profile := stackProfile()
	profile.Services[2].DependsOn = []string{"frontend"}

	_, err := BuildPlan(profile, stackCompose())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "cycle")
}

func TestBuildPlan_NilSpec(t *testing.T) {
	_, err := BuildPlan(stackProfile(), nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
