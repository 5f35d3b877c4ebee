package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sort"
	"strings"

	"github.com/artpar/stackup/internal/core/domain"
)

// =============================================================================
// Compose Engine
// =============================================================================

// ComposeConfig selects the compose file and project one engine drives.
type ComposeConfig struct {
	Binary    string // default "docker"
	File      string
	Project   string
	BuildMode domain.BuildMode
	// Env is passed to every compose command; it is not validated.
	Env map[string]string
}

// ContainerAPI reads container state from the Docker API.
type ContainerAPI interface {
	Ping(ctx context.Context) error
	ServiceContainer(ctx context.Context, project, service string) (ContainerState, error)
}

// Compose implements Engine and Controller on top of the docker compose CLI.
type Compose struct {
	cfg    ComposeConfig
	runner Runner
	api    ContainerAPI
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Compose engine.
type Option func(*Compose)

// WithContainerAPI enables the daemon ping and container probes.
func WithContainerAPI(api ContainerAPI) Option {
	return func(c *Compose) { c.api = api }
}

// WithHTTPClient sets the client used by http probes.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Compose) { c.http = client }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compose) { c.logger = logger }
}

// NewCompose creates a compose engine. runner defaults to ExecRunner.
func NewCompose(cfg ComposeConfig, runner Runner, opts ...Option) *Compose {
	if cfg.Binary == "" {
		cfg.Binary = "docker"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	c := &Compose{
		cfg:    cfg,
		runner: runner,
		http: &http.Client{
			// A redirect is already a healthy answer
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetEnv replaces the variables passed to every later compose command. It
// must not be called while a command runs.
func (c *Compose) SetEnv(env map[string]string) {
	c.cfg.Env = maps.Clone(env)
}

var (
	_ Engine     = (*Compose)(nil)
	_ Controller = (*Compose)(nil)
)

// =============================================================================
// Engine
// =============================================================================

// Ping checks the daemon (when a ContainerAPI is configured) and the compose plugin.
func (c *Compose) Ping(ctx context.Context) error {
	if c.api != nil {
		if err := c.api.Ping(ctx); err != nil {
			return NewEngineError("ping", "", err.Error(), "", ErrEngineUnavailable)
		}
	}
	if _, err := c.Version(ctx); err != nil {
		return NewEngineError("ping", "", "docker compose is not available", OutputOf(err), ErrEngineUnavailable)
	}
	return nil
}

// Version returns the compose plugin version.
func (c *Compose) Version(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, c.env(), c.cfg.Binary, "compose", "version", "--short")
	if err != nil {
		return "", NewEngineError("version", "", err.Error(), out, ErrCommandFailed)
	}
	return strings.TrimSpace(out), nil
}

// Build runs `compose build`, or `compose pull` for pull-mode profiles.
func (c *Compose) Build(ctx context.Context) (string, error) {
	op := "build"
	if c.cfg.BuildMode == domain.BuildModePull {
		op = "pull"
	}
	c.logger.Info("building images", "mode", op, "file", c.cfg.File)

	out, err := c.compose(ctx, op)
	if err != nil {
		return out, NewEngineError(op, "", fmt.Sprintf("docker compose %s: %v", op, err), out, ErrCommandFailed)
	}
	return out, nil
}

// Start launches one service detached, leaving its dependencies alone.
func (c *Compose) Start(ctx context.Context, service string) error {
	c.logger.Debug("starting service", "service", service)

	out, err := c.compose(ctx, "up", "-d", "--no-deps", service)
	if err != nil {
		return NewEngineError("up", service, err.Error(), out, ErrCommandFailed)
	}
	return nil
}

// Exec runs a command inside a running service container.
func (c *Compose) Exec(ctx context.Context, service string, command []string) (string, error) {
	args := append([]string{"exec", "-T", service}, command...)
	out, err := c.compose(ctx, args...)
	if err != nil {
		return out, NewEngineError("exec", service, err.Error(), out, ErrCommandFailed)
	}
	return out, nil
}

// =============================================================================
// Controller
// =============================================================================

// Down stops and removes the stack's containers and networks, and its named
// volumes when removeVolumes is set.
func (c *Compose) Down(ctx context.Context, removeVolumes bool) error {
	args := []string{"down"}
	if removeVolumes {
		args = append(args, "-v")
	}
	c.logger.Info("stopping stack", "project", c.cfg.Project, "remove_volumes", removeVolumes)

	out, err := c.compose(ctx, args...)
	if err != nil {
		return NewEngineError("down", "", err.Error(), out, ErrCommandFailed)
	}
	return nil
}

// PS lists the stack's containers, including stopped ones.
func (c *Compose) PS(ctx context.Context) ([]ContainerState, error) {
	out, err := c.compose(ctx, "ps", "--all", "--format", "json")
	if err != nil {
		return nil, NewEngineError("ps", "", err.Error(), out, ErrCommandFailed)
	}
	states, err := ParsePS(out)
	if err != nil {
		return nil, NewEngineError("ps", "", err.Error(), out, err)
	}
	return states, nil
}

// ParsePS decodes `docker compose ps --format json` output. Older compose
// releases print one JSON array, newer ones one object per line.
func ParsePS(out string) ([]ContainerState, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	var states []ContainerState
	if strings.HasPrefix(out, "[") {
		if err := json.Unmarshal([]byte(out), &states); err != nil {
			return nil, fmt.Errorf("decode compose ps output: %w", err)
		}
		return states, nil
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var s ContainerState
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, fmt.Errorf("decode compose ps output: %w", err)
		}
		states = append(states, s)
	}
	return states, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (c *Compose) compose(ctx context.Context, args ...string) (string, error) {
	full := []string{"compose"}
	if c.cfg.File != "" {
		full = append(full, "-f", c.cfg.File)
	}
	if c.cfg.Project != "" {
		full = append(full, "-p", c.cfg.Project)
	}
	full = append(full, args...)
	return c.runner.Run(ctx, c.env(), c.cfg.Binary, full...)
}

func (c *Compose) env() []string {
	env := make([]string, 0, len(c.cfg.Env))
	for k, v := range c.cfg.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
