package domain

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// Build Mode
// =============================================================================

// BuildMode is how images are produced before start.
type BuildMode string

const (
	BuildModeBuild BuildMode = "build" // docker compose build
	BuildModePull  BuildMode = "pull"  // docker compose pull
)

// =============================================================================
// Profile
// =============================================================================

// EnvFile pairs a template with the file materialized from it.
type EnvFile struct {
	Template string `json:"template"`
	Target   string `json:"target"`
}

// Timing bounds every wait in a deployment attempt.
type Timing struct {
	// DependencyTimeout bounds the wait for one dependency during start.
	DependencyTimeout time.Duration
	// HealthDeadline bounds the whole health verification stage.
	HealthDeadline time.Duration
	// PollInterval is the fixed wait between health polls.
	PollInterval time.Duration
	// MaxAttempts caps health polls per wait (0 = bounded by time only).
	MaxAttempts int
}

// DefaultTiming returns the timing used when nothing is configured.
func DefaultTiming() Timing {
	return Timing{
		DependencyTimeout: 60 * time.Second,
		HealthDeadline:    120 * time.Second,
		PollInterval:      2 * time.Second,
		MaxAttempts:       60,
	}
}

// Profile is everything one deployment method needs.
type Profile struct {
	Method              Method
	ProjectName         string
	ComposeFile         string
	BuildMode           BuildMode
	EnvFiles            []EnvFile
	RequiredCredentials []string
	RequiredTools       []string
	Services            []ServiceDescriptor
	Timing              Timing
}

// Validate checks the profile is internally consistent.
func (p Profile) Validate() error {
	if p.ComposeFile == "" {
		return NewConfigurationError(fmt.Sprintf("method %s: compose file is not configured", p.Method))
	}
	switch p.BuildMode {
	case BuildModeBuild, BuildModePull:
	default:
		return NewConfigurationError(fmt.Sprintf("method %s: unknown build mode %q", p.Method, p.BuildMode))
	}
	if len(p.Services) == 0 {
		return NewConfigurationError("no services configured")
	}

	known := make(map[string]bool, len(p.Services))
	for _, svc := range p.Services {
		if err := svc.Validate(); err != nil {
			return NewConfigurationError(err.Error())
		}
		if known[svc.Name] {
			return NewConfigurationError(fmt.Sprintf("service %s is configured twice", svc.Name))
		}
		known[svc.Name] = true
	}
	for _, svc := range p.Services {
		for _, dep := range svc.DependsOn {
			if !known[dep] {
				return NewConfigurationError(fmt.Sprintf("service %s depends on unknown service %s", svc.Name, dep))
			}
		}
	}

	for _, ef := range p.EnvFiles {
		if ef.Template == "" || ef.Target == "" {
			return NewConfigurationError("env file entries need both template and target")
		}
	}

	if p.Timing.PollInterval <= 0 || p.Timing.HealthDeadline <= 0 || p.Timing.DependencyTimeout <= 0 {
		return NewConfigurationError("health timing values must be positive")
	}
	return nil
}

// Service looks up a service by name.
func (p Profile) Service(name string) (ServiceDescriptor, bool) {
	for _, s := range p.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceDescriptor{}, false
}

// EnvTargets returns the target paths of all env files, sorted.
func (p Profile) EnvTargets() []string {
	targets := make([]string, 0, len(p.EnvFiles))
	for _, ef := range p.EnvFiles {
		targets = append(targets, ef.Target)
	}
	sort.Strings(targets)
	return targets
}
