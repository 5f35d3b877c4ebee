// Package domain contains the core value types for stackup deployments.
// Nothing in this package performs I/O.
package domain

import (
	"fmt"
	"strings"
)

// =============================================================================
// Deployment Method
// =============================================================================

// Method selects the compose profile and environment templates for a run.
type Method string

const (
	MethodLocal      Method = "local"
	MethodProduction Method = "production"
)

// Methods returns all supported deployment methods.
func Methods() []Method {
	return []Method{MethodLocal, MethodProduction}
}

// ParseMethod converts user input into a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MethodLocal, MethodProduction:
		return m, nil
	case "":
		return "", NewConfigurationError("deployment method is required (local or production)")
	default:
		return "", NewConfigurationError(fmt.Sprintf("unknown deployment method %q (expected local or production)", s))
	}
}

func (m Method) String() string {
	return string(m)
}

// =============================================================================
// Stages
// =============================================================================

// Stage names a phase of a deployment attempt.
type Stage string

const (
	StageConfiguration Stage = "configuration"
	StagePrerequisites Stage = "prerequisites"
	StageEnvironment   Stage = "environment"
	StageBuild         Stage = "build"
	StageStart         Stage = "start"
	StageHealth        Stage = "health"
)

// PipelineStages returns the sequential stages run after prerequisites pass.
func PipelineStages() []Stage {
	return []Stage{StageEnvironment, StageBuild, StageStart, StageHealth}
}

func (s Stage) String() string {
	return string(s)
}
