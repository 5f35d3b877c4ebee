// Package monitoring provides pure functions for stack health reporting.
// This package contains NO I/O.
package monitoring

import (
	"fmt"

	"github.com/artpar/stackup/internal/core/domain"
)

// Compose container states and healthcheck values as reported by
// `docker compose ps`.
const (
	StateRunning = "running"

	ContainerHealthy   = "healthy"
	ContainerUnhealthy = "unhealthy"
	ContainerStarting  = "starting"
)

// =============================================================================
// Health Aggregation (Pure Functions)
// =============================================================================

// AggregateHealth determines overall stack health from per-service health.
func AggregateHealth(services []domain.ServiceHealth) domain.HealthStatus {
	if len(services) == 0 {
		return domain.HealthStatusUnknown
	}

	unhealthy := 0
	degraded := 0

	for _, s := range services {
		switch s.Health {
		case domain.HealthStatusUnhealthy:
			unhealthy++
		case domain.HealthStatusDegraded, domain.HealthStatusUnknown:
			degraded++
		}
	}

	if unhealthy == len(services) {
		return domain.HealthStatusUnhealthy
	}
	if unhealthy > 0 || degraded > 0 {
		return domain.HealthStatusDegraded
	}
	return domain.HealthStatusHealthy
}

// DetermineServiceHealth classifies one service from its compose state, its
// container healthcheck value (may be empty) and the result of its probe.
//
// Parameters:
// - state: compose state (running, exited, paused, restarting, created, dead); "" if no container
// - containerHealth: healthcheck result if declared (healthy, unhealthy, starting)
// - probeErr: result of the configured health probe
func DetermineServiceHealth(state, containerHealth string, probeErr error) domain.HealthStatus {
	if state != StateRunning {
		return domain.HealthStatusUnhealthy
	}
	if containerHealth == ContainerUnhealthy {
		return domain.HealthStatusUnhealthy
	}
	// Running but not answering, or still inside its start period
	if probeErr != nil || containerHealth == ContainerStarting {
		return domain.HealthStatusDegraded
	}
	return domain.HealthStatusHealthy
}

// =============================================================================
// Message Generation (Pure Functions)
// =============================================================================

// HealthMessage generates a human-readable explanation for one service.
func HealthMessage(name, state, containerHealth string, probeErr error) string {
	switch {
	case state == "":
		return name + " has no container"
	case state != StateRunning:
		return name + " is " + state
	case containerHealth == ContainerUnhealthy:
		return name + " container healthcheck failing"
	case probeErr != nil:
		return name + " is running but not responding: " + probeErr.Error()
	case containerHealth == ContainerStarting:
		return name + " is starting"
	default:
		return name + " is healthy"
	}
}

// Summary returns a one-line description such as "2/3 services healthy".
func Summary(services []domain.ServiceHealth) string {
	healthy := 0
	for _, s := range services {
		if s.Health == domain.HealthStatusHealthy {
			healthy++
		}
	}
	return fmt.Sprintf("%d/%d services healthy", healthy, len(services))
}
