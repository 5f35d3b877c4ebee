package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/artpar/stackup/internal/core/compose"
	"github.com/artpar/stackup/internal/core/domain"
	"github.com/artpar/stackup/internal/shell/credentials"
	"github.com/artpar/stackup/internal/shell/engine"
	"github.com/artpar/stackup/internal/shell/envfile"
	"github.com/artpar/stackup/internal/shell/orchestrator"
	"github.com/artpar/stackup/internal/shell/platform"
)

// optionFlags are the deploy flags that map onto domain.Options.
var optionFlags = []string{"no-build", "force-env", "skip-checks"}

// app holds the process-level collaborators commands share.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	lookPath   func(string) (string, error)
	newDrivers func(cfg *Config, root string, logger *slog.Logger) driverSource
}

// session is a loaded configuration with everything built from it.
type session struct {
	cfg      *Config
	root     string
	defaults domain.Options
	logger   *slog.Logger
	orch     *orchestrator.Orchestrator
	closers  []io.Closer
}

func (s *session) close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Debug("close failed", "error", err)
		}
	}
}

// =============================================================================
// Command Tree
// =============================================================================

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "deploy",
		Usage:     "bring the stack up in dependency order and verify it is healthy",
		Version:   fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				Sources: cli.EnvVars("STACKUP_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "method",
				Aliases: []string{"m"},
				Usage:   "deployment method: local or production",
				Value:   string(domain.MethodLocal),
			},
			&cli.BoolFlag{Name: "no-build", Usage: "skip building or pulling images", Local: true},
			&cli.BoolFlag{Name: "force-env", Usage: "overwrite env files from their templates", Local: true},
			&cli.BoolFlag{Name: "skip-checks", Usage: "skip tool checks (local only)", Local: true},
		},
		Action: a.deploy,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "report the health of every service",
				Action: a.status,
			},
			{
				Name:  "reset",
				Usage: "stop and remove the stack",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "volumes", Usage: "also remove named volumes"},
				},
				Action: a.reset,
			},
			{
				Name:  "cloud-info",
				Usage: "show hosting platform instructions",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "write", Usage: "write render.yaml, railway.toml and .do/app.yaml"},
					&cli.BoolFlag{Name: "force", Usage: "overwrite existing platform files"},
				},
				Action: a.cloudInfo,
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(_ context.Context, _ *cli.Command) error {
					fmt.Fprintf(a.stdout, "deploy %s (built %s)\n", Version, BuildTime)
					return nil
				},
			},
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

// load reads configuration and wires the orchestrator.
func (a *app) load(cmd *cli.Command) (*session, error) {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, domain.NewConfigurationError(err.Error())
	}
	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, err
	}
	defaults, err := cfg.DefaultOptions()
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		return nil, domain.NewConfigurationError(fmt.Sprintf("project root: %v", err))
	}

	logger, logFile := SetupLogger(cfg, a.stderr)
	drivers := a.newDrivers(cfg, root, logger)

	orch := orchestrator.New(profiles, drivers.Driver,
		orchestrator.WithRoot(root),
		orchestrator.WithLookPath(a.lookPath),
		orchestrator.WithLogger(logger),
		orchestrator.WithReporter(orchestrator.TextReporter{W: a.stdout}),
		orchestrator.WithResolverFactory(func(envFiles []string) orchestrator.CredentialResolver {
			return credentials.NewResolver(envFiles,
				credentials.WithKeyring(cfg.Credentials.KeyringService),
				credentials.WithLogger(logger),
			)
		}),
	)

	return &session{
		cfg:      cfg,
		root:     root,
		defaults: defaults,
		logger:   logger,
		orch:     orch,
		closers:  []io.Closer{drivers, logFile},
	}, nil
}

// =============================================================================
// Deploy
// =============================================================================

func (a *app) deploy(ctx context.Context, cmd *cli.Command) error {
	s, err := a.load(cmd)
	if err != nil {
		return a.deployFailed(err)
	}
	defer s.close()

	method, err := domain.ParseMethod(cmd.String("method"))
	if err != nil {
		return a.deployFailed(err)
	}
	// Flags given on the command line override the config file either way
	opts := s.defaults
	for _, flag := range optionFlags {
		if !cmd.IsSet(flag) {
			continue
		}
		if opts, err = opts.With(flag, cmd.Bool(flag)); err != nil {
			return a.deployFailed(err)
		}
	}

	result := s.orch.Deploy(ctx, method, opts)
	if !result.Success {
		return a.deployFailed(result.Err)
	}

	fmt.Fprintf(a.stdout, "\ndeployment succeeded in %s (run %s)\n", result.Duration().Round(time.Millisecond), result.RunID)
	for _, ep := range result.Endpoints {
		fmt.Fprintf(a.stdout, "  %s: %s\n", ep.Service, ep.URL)
	}
	return nil
}

// deployFailed reports err on stderr and returns its exit code.
func (a *app) deployFailed(err error) error {
	de, ok := domain.AsDeployError(err)
	if !ok {
		de = domain.NewConfigurationError(err.Error())
	}
	fmt.Fprintf(a.stderr, "deployment failed at stage %s: %v\n", de.Stage, de)
	if de.Output != "" {
		fmt.Fprintln(a.stderr, strings.TrimRight(de.Output, "\n"))
	}
	return &exitError{code: exitCode(de)}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, domain.ErrConfiguration):
		return ExitConfigError
	case errors.Is(err, domain.ErrMissingPrerequisite):
		return ExitMissingPrerequisite
	case errors.Is(err, domain.ErrInterrupted):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

// =============================================================================
// Status and Reset
// =============================================================================

func (a *app) status(ctx context.Context, cmd *cli.Command) error {
	s, method, err := a.loadForMethod(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	health, err := s.orch.Status(ctx, method)
	if err != nil {
		return a.failed("status", err)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tSTATE\tHEALTH\tDETAIL")
	for _, svc := range health.Services {
		state := svc.State
		if state == "" {
			state = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", svc.Name, state, svc.Health, svc.Message)
	}
	tw.Flush()
	fmt.Fprintf(a.stdout, "\nstack is %s\n", health.Status)

	if health.Status != domain.HealthStatusHealthy {
		return &exitError{code: ExitFailure}
	}
	return nil
}

func (a *app) reset(ctx context.Context, cmd *cli.Command) error {
	s, method, err := a.loadForMethod(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.orch.Reset(ctx, method, cmd.Bool("volumes")); err != nil {
		return a.failed("reset", err)
	}
	fmt.Fprintf(a.stdout, "%s stack removed\n", method)
	return nil
}

func (a *app) loadForMethod(cmd *cli.Command) (*session, domain.Method, error) {
	s, err := a.load(cmd)
	if err != nil {
		return nil, "", a.failed("configuration", err)
	}
	method, err := domain.ParseMethod(cmd.String("method"))
	if err != nil {
		s.close()
		return nil, "", a.failed("configuration", err)
	}
	return s, method, nil
}

func (a *app) failed(op string, err error) error {
	fmt.Fprintf(a.stderr, "%s failed: %v\n", op, err)
	if out := strings.TrimRight(engine.OutputOf(err), "\n"); out != "" {
		fmt.Fprintln(a.stderr, out)
	}
	code := exitCode(err)
	if code == ExitSuccess {
		code = ExitFailure
	}
	return &exitError{code: code}
}

// =============================================================================
// Cloud Info
// =============================================================================

func (a *app) cloudInfo(_ context.Context, cmd *cli.Command) error {
	fmt.Fprintln(a.stdout, "Cloud platform deployment options:")
	platform.PrintInstructions(a.stdout, platform.Instructions())

	if !cmd.Bool("write") {
		return nil
	}

	s, method, err := a.loadForMethod(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	desc, err := s.describe(method)
	if err != nil {
		return a.failed("cloud-info", err)
	}
	written, skipped, err := platform.Write(s.root, desc, cmd.Bool("force"))
	if err != nil {
		return a.failed("cloud-info", err)
	}

	fmt.Fprintln(a.stdout)
	for _, p := range written {
		fmt.Fprintf(a.stdout, "wrote %s\n", p)
	}
	for _, p := range skipped {
		fmt.Fprintf(a.stdout, "kept existing %s (use --force to overwrite)\n", p)
	}
	return nil
}

// describe builds the platform view of method's stack from its compose file
// and env templates.
func (s *session) describe(method domain.Method) (platform.App, error) {
	profile, err := s.orch.Profile(method)
	if err != nil {
		return platform.App{}, err
	}

	content, err := os.ReadFile(s.path(profile.ComposeFile))
	if err != nil {
		return platform.App{}, fmt.Errorf("read compose file: %w", err)
	}
	spec, err := compose.ParseComposeSpec(string(content), envfile.Environ())
	if err != nil {
		return platform.App{}, fmt.Errorf("parse %s: %w", profile.ComposeFile, err)
	}

	envKeys, err := platform.EnvKeysByService(profile.EnvFiles, func(template string) ([]string, error) {
		return envfile.Keys(s.path(template))
	})
	if err != nil {
		return platform.App{}, err
	}

	desc := platform.Describe(profile.ProjectName, spec, profile.Services, envKeys)
	desc.Repo = s.cfg.Platform.Repo
	desc.Branch = s.cfg.Platform.Branch
	desc.Region = s.cfg.Platform.Region
	return desc, nil
}

func (s *session) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, p)
}
