package domain

import "time"

// =============================================================================
// Health Types
// =============================================================================

// HealthStatus represents the health of the stack or one service.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// ServiceHealth is the observed state of one service.
type ServiceHealth struct {
	Name    string       `json:"name"`
	State   string       `json:"state"`  // compose state: running, exited, ...
	Health  HealthStatus `json:"health"` // derived
	Message string       `json:"message,omitempty"`
}

// StackHealth is the aggregated health of a deployed stack.
type StackHealth struct {
	Method    Method          `json:"method"`
	Status    HealthStatus    `json:"status"`
	Services  []ServiceHealth `json:"services"`
	CheckedAt time.Time       `json:"checked_at"`
}
