// Package orchestrator runs deployment attempts: prerequisite checks, then
// the environment, build, start and health stages in order.
package orchestrator

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/stackup/internal/core/domain"
	"github.com/artpar/stackup/internal/shell/credentials"
	"github.com/artpar/stackup/internal/shell/engine"
)

// =============================================================================
// Collaborators
// =============================================================================

// Driver is the engine capability one deployment uses.
type Driver interface {
	engine.Engine
	engine.Controller

	// SetEnv replaces the variables passed to later engine commands.
	SetEnv(env map[string]string)
}

// DriverFactory builds a driver for profile. env holds the values of the
// existing env files and the resolved credentials, passed through to every
// engine command.
type DriverFactory func(profile domain.Profile, env map[string]string) (Driver, error)

// CredentialResolver looks up required credentials.
type CredentialResolver interface {
	Resolve(required []string) (credentials.Resolution, error)
}

// ResolverFactory builds a resolver reading the given env files first.
type ResolverFactory func(envFiles []string) CredentialResolver

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator runs deployments for a set of profiles.
type Orchestrator struct {
	profiles    map[domain.Method]domain.Profile
	root        string
	newDriver   DriverFactory
	newResolver ResolverFactory
	lookPath    func(string) (string, error)
	logger      *slog.Logger
	reporter    Reporter
	now         func() time.Time
	newRunID    func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRoot sets the directory relative profile paths resolve against.
func WithRoot(root string) Option {
	return func(o *Orchestrator) { o.root = root }
}

// WithResolverFactory replaces the default credential resolver.
func WithResolverFactory(f ResolverFactory) Option {
	return func(o *Orchestrator) { o.newResolver = f }
}

// WithLookPath replaces exec.LookPath for tool checks.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(o *Orchestrator) { o.lookPath = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithReporter sets where operator-facing progress goes.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator for profiles.
func New(profiles []domain.Profile, newDriver DriverFactory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		profiles:  make(map[domain.Method]domain.Profile, len(profiles)),
		root:      ".",
		newDriver: newDriver,
		newResolver: func(envFiles []string) CredentialResolver {
			return credentials.NewResolver(envFiles)
		},
		lookPath: exec.LookPath,
		logger:   slog.Default(),
		reporter: nopReporter{},
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, p := range profiles {
		o.profiles[p.Method] = p
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Profile returns the profile for method.
func (o *Orchestrator) Profile(method domain.Method) (domain.Profile, error) {
	p, ok := o.profiles[method]
	if !ok {
		return domain.Profile{}, domain.NewConfigurationError(fmt.Sprintf("no profile configured for method %s", method))
	}
	return p, nil
}

// path resolves a profile path against the root.
func (o *Orchestrator) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.root, p)
}

func (o *Orchestrator) envTargets(profile domain.Profile) []string {
	targets := make([]string, 0, len(profile.EnvFiles))
	for _, ef := range profile.EnvFiles {
		targets = append(targets, o.path(ef.Target))
	}
	return targets
}
