package domain

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Error Taxonomy
// =============================================================================

var (
	ErrConfiguration       = errors.New("configuration error")
	ErrMissingPrerequisite = errors.New("missing prerequisite")
	ErrEnvironment         = errors.New("environment materialization failed")
	ErrBuildFailure        = errors.New("build failed")
	ErrStartupFailure      = errors.New("startup failed")
	ErrHealthCheckTimeout  = errors.New("health check timed out")
	ErrInterrupted         = errors.New("deployment interrupted")
)

// kindNames maps each sentinel to the name reported to operators.
var kindNames = map[error]string{
	ErrConfiguration:       "ConfigurationError",
	ErrMissingPrerequisite: "MissingPrerequisite",
	ErrEnvironment:         "EnvironmentFailure",
	ErrBuildFailure:        "BuildFailure",
	ErrStartupFailure:      "StartupFailure",
	ErrHealthCheckTimeout:  "HealthCheckTimeout",
	ErrInterrupted:         "Interrupted",
}

// DeployError is a failure of one deployment attempt, tagged with the stage it
// happened in. Err is always one of the sentinels above.
type DeployError struct {
	Stage    Stage
	Services []string // services involved, if any
	Message  string
	Output   string // captured engine output, if any
	Err      error
}

func (e *DeployError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if len(e.Services) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Services, ", "))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *DeployError) Unwrap() error {
	return e.Err
}

// Kind returns the taxonomy name, e.g. "BuildFailure".
func (e *DeployError) Kind() string {
	if name, ok := kindNames[e.Err]; ok {
		return name
	}
	return "Unknown"
}

// AsDeployError extracts a DeployError from err, if present.
func AsDeployError(err error) (*DeployError, bool) {
	var de *DeployError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// =============================================================================
// Constructors
// =============================================================================

// NewConfigurationError reports invalid or conflicting options.
func NewConfigurationError(message string) *DeployError {
	return &DeployError{Stage: StageConfiguration, Message: message, Err: ErrConfiguration}
}

// NewMissingPrerequisite reports absent tools, files or credentials.
func NewMissingPrerequisite(items ...string) *DeployError {
	return &DeployError{
		Stage:   StagePrerequisites,
		Message: "missing " + strings.Join(items, ", "),
		Err:     ErrMissingPrerequisite,
	}
}

// NewEnvironmentFailure reports a failed environment file write.
func NewEnvironmentFailure(path string, cause error) *DeployError {
	return &DeployError{
		Stage:   StageEnvironment,
		Message: fmt.Sprintf("%s: %v", path, cause),
		Err:     ErrEnvironment,
	}
}

// NewBuildFailure reports a failed image build or pull with the engine output.
func NewBuildFailure(message, output string) *DeployError {
	return &DeployError{Stage: StageBuild, Message: message, Output: output, Err: ErrBuildFailure}
}

// NewStartupFailure reports a service that could not be launched, or whose
// dependency never became healthy.
func NewStartupFailure(service, message, output string) *DeployError {
	return &DeployError{
		Stage:    StageStart,
		Services: []string{service},
		Message:  message,
		Output:   output,
		Err:      ErrStartupFailure,
	}
}

// NewHealthCheckTimeout reports services still unhealthy at the deadline.
func NewHealthCheckTimeout(services []string, message string) *DeployError {
	return &DeployError{Stage: StageHealth, Services: services, Message: message, Err: ErrHealthCheckTimeout}
}

// NewInterrupted reports an attempt cancelled by the operator during stage.
func NewInterrupted(stage Stage) *DeployError {
	return &DeployError{Stage: stage, Message: "no cleanup was performed", Err: ErrInterrupted}
}
