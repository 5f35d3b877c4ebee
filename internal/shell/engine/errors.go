package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Engine errors
	ErrEngineUnavailable = errors.New("container engine unavailable")
	ErrCommandFailed     = errors.New("compose command failed")

	// Container errors
	ErrContainerNotFound   = errors.New("container not found")
	ErrContainerNotRunning = errors.New("container is not running")
	ErrContainerUnhealthy  = errors.New("container healthcheck is not passing")

	// Probe errors
	ErrProbeFailed        = errors.New("health probe failed")
	ErrUnsupportedProbe   = errors.New("unsupported health probe")
	ErrDockerNotAvailable = errors.New("docker API client not configured")
)

// EngineError wraps errors with additional context.
type EngineError struct {
	Op      string // Operation that failed (build, up, exec, probe, ...)
	Service string // Service name if applicable
	Message string
	Output  string // Combined engine output, if any
	Err     error
}

func (e *EngineError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Service, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError.
func NewEngineError(op, service, message, output string, err error) *EngineError {
	return &EngineError{
		Op:      op,
		Service: service,
		Message: message,
		Output:  output,
		Err:     err,
	}
}

// OutputOf returns the engine output carried by err, if any.
func OutputOf(err error) string {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Output
	}
	return ""
}
