package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrServiceNameRequired = errors.New("service name is required")
	ErrUnknownProbeType    = errors.New("unknown health probe type")
	ErrProbeIncomplete     = errors.New("health probe is missing a target")
)

// =============================================================================
// Health Probes
// =============================================================================

// ProbeType selects how a service's liveness is checked.
type ProbeType string

const (
	ProbeHTTP      ProbeType = "http"      // GET url, 2xx/3xx is healthy
	ProbeRedis     ProbeType = "redis"     // PING addr
	ProbeCommand   ProbeType = "command"   // exec command inside the service container
	ProbeContainer ProbeType = "container" // container running (and healthy, if it declares a healthcheck)
)

// DefaultProbeTimeout bounds a single probe attempt.
const DefaultProbeTimeout = 5 * time.Second

// HealthProbe describes one liveness check. URL and Addr may contain
// ${VAR} or ${VAR:-default} placeholders.
type HealthProbe struct {
	Type    ProbeType     `json:"type"`
	URL     string        `json:"url,omitempty"`
	Addr    string        `json:"addr,omitempty"`
	Command []string      `json:"command,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Validate checks that the probe carries what its type needs.
func (p HealthProbe) Validate() error {
	switch p.Type {
	case ProbeHTTP:
		if p.URL == "" {
			return fmt.Errorf("%w: http probe requires url", ErrProbeIncomplete)
		}
	case ProbeRedis:
		if p.Addr == "" {
			return fmt.Errorf("%w: redis probe requires addr", ErrProbeIncomplete)
		}
	case ProbeCommand:
		if len(p.Command) == 0 {
			return fmt.Errorf("%w: command probe requires command", ErrProbeIncomplete)
		}
	case ProbeContainer:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProbeType, p.Type)
	}
	return nil
}

// EffectiveTimeout returns the probe timeout or the default.
func (p HealthProbe) EffectiveTimeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultProbeTimeout
}

// =============================================================================
// Service Descriptor
// =============================================================================

// ServiceDescriptor is a statically known member of the stack.
type ServiceDescriptor struct {
	Name      string      `json:"name"`
	DependsOn []string    `json:"depends_on,omitempty"`
	Health    HealthProbe `json:"health"`
}

// Validate checks the descriptor in isolation.
func (s ServiceDescriptor) Validate() error {
	if s.Name == "" {
		return ErrServiceNameRequired
	}
	if err := s.Health.Validate(); err != nil {
		return fmt.Errorf("service %s: %w", s.Name, err)
	}
	return nil
}

// ServiceNames returns the names of services in order.
func ServiceNames(services []ServiceDescriptor) []string {
	names := make([]string, len(services))
	for i, s := range services {
		names[i] = s.Name
	}
	return names
}
