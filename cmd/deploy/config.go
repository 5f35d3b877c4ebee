package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/artpar/stackup/internal/core/domain"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Project     ProjectConfig           `mapstructure:"project"`
	Docker      DockerConfig            `mapstructure:"docker"`
	Log         LogConfig               `mapstructure:"log"`
	Health      HealthConfig            `mapstructure:"health"`
	Credentials CredentialsConfig       `mapstructure:"credentials"`
	Methods     map[string]MethodConfig `mapstructure:"methods"`
	Services    []ServiceConfig         `mapstructure:"services"`
	EnvFiles    []EnvFileConfig         `mapstructure:"env_files"`
	Options     map[string]any          `mapstructure:"options"`
	Platform    PlatformConfig          `mapstructure:"platform"`
}

// ProjectConfig names the stack and where it lives.
type ProjectConfig struct {
	Name string `mapstructure:"name"`
	Root string `mapstructure:"root"` // relative paths resolve against this
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host          string `mapstructure:"host"`
	ComposeBinary string `mapstructure:"compose_binary"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"` // optional JSON log file, rotated by size
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// HealthConfig bounds every health wait.
type HealthConfig struct {
	DependencyTimeout time.Duration `mapstructure:"dependency_timeout"`
	Deadline          time.Duration `mapstructure:"deadline"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
}

// CredentialsConfig lists the secrets every method needs.
type CredentialsConfig struct {
	Required       []string `mapstructure:"required"`
	KeyringService string   `mapstructure:"keyring_service"` // empty disables the keyring
}

// MethodConfig is the per-method part of a profile.
type MethodConfig struct {
	ComposeFile string   `mapstructure:"compose_file"`
	Project     string   `mapstructure:"project"` // defaults to project.name
	BuildMode   string   `mapstructure:"build_mode"`
	Tools       []string `mapstructure:"tools"`
	Credentials []string `mapstructure:"credentials"` // added to credentials.required
}

// ServiceConfig is one stack member.
type ServiceConfig struct {
	Name      string      `mapstructure:"name"`
	DependsOn []string    `mapstructure:"depends_on"`
	Health    ProbeConfig `mapstructure:"health"`
}

// ProbeConfig describes a service's health probe.
type ProbeConfig struct {
	Type    string        `mapstructure:"type"`
	URL     string        `mapstructure:"url"`
	Addr    string        `mapstructure:"addr"`
	Command []string      `mapstructure:"command"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EnvFileConfig pairs a template with its target.
type EnvFileConfig struct {
	Template string `mapstructure:"template"`
	Target   string `mapstructure:"target"`
}

// PlatformConfig feeds the generated hosting platform files.
type PlatformConfig struct {
	Repo   string `mapstructure:"repo"` // GitHub owner/name
	Branch string `mapstructure:"branch"`
	Region string `mapstructure:"region"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("project.name", "suna")
	v.SetDefault("project.root", ".")
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.compose_binary", "docker")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("health.dependency_timeout", "60s")
	v.SetDefault("health.deadline", "120s")
	v.SetDefault("health.poll_interval", "2s")
	v.SetDefault("health.max_attempts", 60)

	v.SetDefault("credentials.required", []string{"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_SERVICE_ROLE_KEY"})
	v.SetDefault("credentials.keyring_service", "stackup")

	v.SetDefault("methods.local.compose_file", "docker-compose.yaml")
	v.SetDefault("methods.local.build_mode", string(domain.BuildModeBuild))
	v.SetDefault("methods.local.tools", []string{"docker", "git"})
	v.SetDefault("methods.production.compose_file", "docker-compose.prod.yaml")
	v.SetDefault("methods.production.build_mode", string(domain.BuildModePull))
	v.SetDefault("methods.production.tools", []string{"docker", "git"})

	v.SetDefault("services", []map[string]any{
		{
			"name":   "redis",
			"health": map[string]any{"type": "command", "command": []string{"redis-cli", "ping"}},
		},
		{
			"name":       "backend",
			"depends_on": []string{"redis"},
			"health":     map[string]any{"type": "http", "url": "http://localhost:${BACKEND_PORT:-8000}/api/health"},
		},
		{
			"name":       "frontend",
			"depends_on": []string{"backend"},
			"health":     map[string]any{"type": "http", "url": "http://localhost:${FRONTEND_PORT:-3000}"},
		},
	})
	v.SetDefault("env_files", []map[string]any{
		{"template": "backend/.env.example", "target": "backend/.env"},
		{"template": "frontend/.env.example", "target": "frontend/.env.local"},
	})

	v.SetDefault("platform.repo", "")
	v.SetDefault("platform.branch", "main")
	v.SetDefault("platform.region", "oregon")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("STACKUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Options have no defaults, so their env names are bound explicitly
	for _, name := range domain.OptionNames() {
		if err := v.BindEnv("options." + name); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Conversion
// =============================================================================

// Profiles builds one domain profile per configured method, in method order.
func (c *Config) Profiles() ([]domain.Profile, error) {
	services := make([]domain.ServiceDescriptor, 0, len(c.Services))
	for _, s := range c.Services {
		services = append(services, domain.ServiceDescriptor{
			Name:      s.Name,
			DependsOn: s.DependsOn,
			Health: domain.HealthProbe{
				Type:    domain.ProbeType(s.Health.Type),
				URL:     s.Health.URL,
				Addr:    s.Health.Addr,
				Command: s.Health.Command,
				Timeout: s.Health.Timeout,
			},
		})
	}

	envFiles := make([]domain.EnvFile, 0, len(c.EnvFiles))
	for _, ef := range c.EnvFiles {
		envFiles = append(envFiles, domain.EnvFile{Template: ef.Template, Target: ef.Target})
	}

	timing := domain.Timing{
		DependencyTimeout: c.Health.DependencyTimeout,
		HealthDeadline:    c.Health.Deadline,
		PollInterval:      c.Health.PollInterval,
		MaxAttempts:       c.Health.MaxAttempts,
	}

	profiles := make([]domain.Profile, 0, len(c.Methods))
	for name, mc := range c.Methods {
		method, err := domain.ParseMethod(name)
		if err != nil {
			return nil, err
		}

		project := mc.Project
		if project == "" {
			project = c.Project.Name
		}
		project = domain.ProjectName(project)
		if project == "" {
			return nil, domain.NewConfigurationError(fmt.Sprintf("method %s: project name has no usable characters", method))
		}
		required := slices.Concat(c.Credentials.Required, mc.Credentials)
		slices.Sort(required)

		profiles = append(profiles, domain.Profile{
			Method:              method,
			ProjectName:         project,
			ComposeFile:         mc.ComposeFile,
			BuildMode:           domain.BuildMode(mc.BuildMode),
			EnvFiles:            envFiles,
			RequiredCredentials: slices.Compact(required),
			RequiredTools:       mc.Tools,
			Services:            services,
			Timing:              timing,
		})
	}
	slices.SortFunc(profiles, func(a, b domain.Profile) int {
		return strings.Compare(string(a.Method), string(b.Method))
	})
	return profiles, nil
}

// DefaultOptions returns the options section as deployment options.
func (c *Config) DefaultOptions() (domain.Options, error) {
	return domain.ParseOptions(c.Options)
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format writing to
// w. When log.file is set, JSON records also go to that file, rotated by size.
// The returned closer releases the file.
func SetupLogger(cfg *Config, w io.Writer) (*slog.Logger, io.Closer) {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	if cfg.Log.File == "" {
		return slog.New(handler), io.NopCloser(nil)
	}

	file := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   true,
	}
	return slog.New(fanout{handler, slog.NewJSONHandler(file, opts)}), file
}

// fanout sends every record to all of its handlers.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
