// Package engine drives the container engine: the docker compose CLI for
// lifecycle operations, the Docker API for container state, and health
// probes against running services.
package engine

import (
	"context"

	"github.com/artpar/stackup/internal/core/domain"
)

// =============================================================================
// Interfaces
// =============================================================================

// Engine is the capability a deployment needs from the container engine.
type Engine interface {
	// Ping checks the engine and its compose plugin respond.
	Ping(ctx context.Context) error

	// Build produces images for the stack (build or pull) and returns the
	// captured engine output.
	Build(ctx context.Context) (string, error)

	// Start launches one service without starting its dependencies.
	Start(ctx context.Context, service string) error

	// HealthCheck runs the service's probe once.
	HealthCheck(ctx context.Context, svc domain.ServiceDescriptor) error
}

// Controller covers the read-only and teardown operations.
type Controller interface {
	Down(ctx context.Context, removeVolumes bool) error
	PS(ctx context.Context) ([]ContainerState, error)
}

// =============================================================================
// Container State
// =============================================================================

// ContainerState is one row of `docker compose ps`.
type ContainerState struct {
	Name     string `json:"Name"`
	Service  string `json:"Service"`
	State    string `json:"State"`  // running, exited, ...
	Health   string `json:"Health"` // healthy, unhealthy, starting or ""
	Status   string `json:"Status"` // human text, e.g. "Up 2 minutes (healthy)"
	ExitCode int    `json:"ExitCode"`
}

// ByService indexes states by compose service name.
func ByService(states []ContainerState) map[string]ContainerState {
	out := make(map[string]ContainerState, len(states))
	for _, s := range states {
		out[s.Service] = s
	}
	return out
}
