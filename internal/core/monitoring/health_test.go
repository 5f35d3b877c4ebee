package monitoring

import (
	"errors"
	"testing"

	"github.com/artpar/stackup/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// AggregateHealth Tests
// =============================================================================

func TestAggregateHealth(t *testing.T) {
	tests := []struct {
		name     string
		services []domain.ServiceHealth
		expected domain.HealthStatus
	}{
		{
			name: "all healthy",
			services: []domain.ServiceHealth{
				{Name: "redis", Health: domain.HealthStatusHealthy},
				{Name: "backend", Health: domain.HealthStatusHealthy},
			},
			expected: domain.HealthStatusHealthy,
		},
		{
			name: "one unhealthy",
			services: []domain.ServiceHealth{
				{Name: "redis", Health: domain.HealthStatusHealthy},
				{Name: "backend", Health: domain.HealthStatusUnhealthy},
			},
			expected: domain.HealthStatusDegraded,
		},
		{
			name: "all unhealthy",
			services: []domain.ServiceHealth{
				{Name: "redis", Health: domain.HealthStatusUnhealthy},
				{Name: "backend", Health: domain.HealthStatusUnhealthy},
			},
			expected: domain.HealthStatusUnhealthy,
		},
		{
			name: "one degraded",
			services: []domain.ServiceHealth{
				{Name: "redis", Health: domain.HealthStatusHealthy},
				{Name: "frontend", Health: domain.HealthStatusDegraded},
			},
			expected: domain.HealthStatusDegraded,
		},
		{
			name: "unknown counts as degraded",
			services: []domain.ServiceHealth{
				{Name: "frontend", Health: domain.HealthStatusUnknown},
			},
			expected: domain.HealthStatusDegraded,
		},
		{
			name:     "empty",
			services: nil,
			expected: domain.HealthStatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AggregateHealth(tt.services))
		})
	}
}

// =============================================================================
// DetermineServiceHealth Tests
// =============================================================================

func TestDetermineServiceHealth(t *testing.T) {
	refused := errors.New("connection refused")

	tests := []struct {
		name            string
		state           string
		containerHealth string
		probeErr        error
		expected        domain.HealthStatus
	}{
		{"running", "running", "", nil, domain.HealthStatusHealthy},
		{"running healthy", "running", "healthy", nil, domain.HealthStatusHealthy},
		{"no container", "", "", nil, domain.HealthStatusUnhealthy},
		{"exited", "exited", "", nil, domain.HealthStatusUnhealthy},
		{"restarting", "restarting", "", nil, domain.HealthStatusUnhealthy},
		{"container unhealthy", "running", "unhealthy", nil, domain.HealthStatusUnhealthy},
		{"starting", "running", "starting", nil, domain.HealthStatusDegraded},
		{"probe failing", "running", "healthy", refused, domain.HealthStatusDegraded},
		{"exited and probe failing", "exited", "", refused, domain.HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineServiceHealth(tt.state, tt.containerHealth, tt.probeErr))
		})
	}
}

// =============================================================================
// Message Tests
// =============================================================================

func TestHealthMessage(t *testing.T) {
	assert.Equal(t, "redis has no container", HealthMessage("redis", "", "", nil))
	assert.Equal(t, "backend is exited", HealthMessage("backend", "exited", "", nil))
	assert.Equal(t, "backend container healthcheck failing", HealthMessage("backend", "running", "unhealthy", nil))
	assert.Equal(t, "frontend is running but not responding: status 502",
		HealthMessage("frontend", "running", "", errors.New("status 502")))
	assert.Equal(t, "redis is starting", HealthMessage("redis", "running", "starting", nil))
	assert.Equal(t, "redis is healthy", HealthMessage("redis", "running", "healthy", nil))
}

func TestSummary(t *testing.T) {
	services := []domain.ServiceHealth{
		{Name: "redis", Health: domain.HealthStatusHealthy},
		{Name: "backend", Health: domain.HealthStatusHealthy},
		{Name: "frontend", Health: domain.HealthStatusDegraded},
	}
	assert.Equal(t, "2/3 services healthy", Summary(services))
	assert.Equal(t, "0/0 services healthy", Summary(nil))
}
