package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stackup/internal/core/domain"
	"github.com/artpar/stackup/internal/shell/engine"
)

func TestStatus_AllHealthy(t *testing.T) {
	f := newFixture(t)
	f.driver.states = []engine.ContainerState{
		{Service: "redis", State: "running", Health: "healthy"},
		{Service: "backend", State: "running"},
		{Service: "frontend", State: "running"},
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := f.orchestrator()
	o.now = func() time.Time { return now }

	health, err := o.Status(context.Background(), domain.MethodLocal)
	require.NoError(t, err)

	assert.Equal(t, domain.HealthStatusHealthy, health.Status)
	assert.Equal(t, now, health.CheckedAt)
	require.Len(t, health.Services, 3)
	assert.Equal(t, "redis", health.Services[0].Name)
	assert.Equal(t, "redis is healthy", health.Services[0].Message)
	assert.Equal(t, 1, f.driver.called("ps"))
	assert.Equal(t, 0, f.driver.called("build"))
	assert.Empty(t, f.driver.started())
}

func TestStatus_Degraded(t *testing.T) {
	f := newFixture(t)
	f.driver.states = []engine.ContainerState{
		{Service: "redis", State: "running"},
		{Service: "backend", State: "exited", ExitCode: 1},
		{Service: "frontend", State: "running"},
	}
	f.driver.health = unhealthy("frontend")

	health, err := f.orchestrator().Status(context.Background(), domain.MethodLocal)
	require.NoError(t, err)

	assert.Equal(t, domain.HealthStatusDegraded, health.Status)
	byName := map[string]domain.ServiceHealth{}
	for _, s := range health.Services {
		byName[s.Name] = s
	}
	assert.Equal(t, domain.HealthStatusHealthy, byName["redis"].Health)
	assert.Equal(t, domain.HealthStatusUnhealthy, byName["backend"].Health)
	assert.Equal(t, "backend is exited", byName["backend"].Message)
	assert.Equal(t, domain.HealthStatusDegraded, byName["frontend"].Health)

	// stopped services are not probed
	assert.Equal(t, 0, f.driver.called("health backend"))
}

func TestStatus_NothingRunning(t *testing.T) {
	f := newFixture(t)

	health, err := f.orchestrator().Status(context.Background(), domain.MethodLocal)
	require.NoError(t, err)
	assert.Equal(t, domain.HealthStatusUnhealthy, health.Status)
	assert.Equal(t, "frontend has no container", health.Services[2].Message)
}

func TestStatus_DoesNotRequireCredentials(t *testing.T) {
	f := newFixture(t)
	f.env = map[string]string{}

	_, err := f.orchestrator().Status(context.Background(), domain.MethodLocal)
	assert.NoError(t, err)
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()

	require.NoError(t, o.Reset(context.Background(), domain.MethodLocal, false))
	require.NoError(t, o.Reset(context.Background(), domain.MethodProduction, true))
	assert.Equal(t, []bool{false, true}, f.driver.downCalls)
}

func TestReset_UnknownMethod(t *testing.T) {
	f := newFixture(t)
	err := f.orchestrator(testProfile(domain.MethodLocal)).Reset(context.Background(), domain.MethodProduction, false)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
