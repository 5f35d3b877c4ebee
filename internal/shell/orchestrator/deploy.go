package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"

	"github.com/artpar/stackup/internal/core/compose"
	"github.com/artpar/stackup/internal/core/deployment"
	"github.com/artpar/stackup/internal/core/domain"
	"github.com/artpar/stackup/internal/shell/engine"
	"github.com/artpar/stackup/internal/shell/envfile"
)

// run is the state of one deployment attempt.
type run struct {
	profile domain.Profile
	opts    domain.Options
	plan    deployment.Plan
	driver  Driver
	secrets map[string]string // resolved credentials
	vars    map[string]string // probe placeholder values
	env     map[string]string // engine environment
	logger  *slog.Logger
	result  *domain.Result
}

// stageFunc runs one stage. A non-nil error stops the pipeline.
type stageFunc func(ctx context.Context, r *run) *domain.DeployError

// =============================================================================
// Deploy
// =============================================================================

// Deploy runs one deployment attempt for method. No file is written and no
// engine mutation is issued until every prerequisite passes. There is no
// rollback: services started before a failure keep running.
func (o *Orchestrator) Deploy(ctx context.Context, method domain.Method, opts domain.Options) domain.Result {
	result := domain.Result{
		RunID:     o.newRunID(),
		Method:    method,
		Stage:     domain.StageConfiguration,
		StartedAt: o.now(),
	}
	logger := o.logger.With("run_id", result.RunID, "method", string(method))

	finish := func(derr *domain.DeployError) domain.Result {
		result.FinishedAt = o.now()
		if derr != nil {
			result.Stage = derr.Stage
			result.Err = derr
			logger.Error("deployment failed",
				"stage", string(derr.Stage),
				"kind", derr.Kind(),
				"services", derr.Services,
				"error", derr.Message,
				"duration", result.Duration(),
			)
			return result
		}
		result.Success = true
		logger.Info("deployment succeeded", "services", result.Started, "duration", result.Duration())
		return result
	}

	logger.Info("starting deployment",
		"no_build", opts.NoBuild,
		"force_env", opts.ForceEnv,
		"skip_checks", opts.SkipChecks,
	)

	r, derr := o.prepare(ctx, method, opts, logger)
	if derr != nil {
		return finish(derr)
	}
	r.result = &result

	stages := []struct {
		stage domain.Stage
		fn    stageFunc
	}{
		{domain.StageEnvironment, o.materialize},
		{domain.StageBuild, o.build},
		{domain.StageStart, o.start},
		{domain.StageHealth, o.verify},
	}
	for _, s := range stages {
		if ctx.Err() != nil {
			return finish(domain.NewInterrupted(s.stage))
		}
		result.Stage = s.stage
		o.reporter.Stage(s.stage)
		logger.Debug("entering stage", "stage", string(s.stage))

		if derr := s.fn(ctx, r); derr != nil {
			if ctx.Err() != nil && !errors.Is(derr, domain.ErrInterrupted) {
				derr = domain.NewInterrupted(s.stage)
			}
			return finish(derr)
		}
	}
	return finish(nil)
}

// =============================================================================
// Prerequisites
// =============================================================================

// prepare validates configuration and prerequisites and builds the start
// plan. It has no side effects besides engine reads.
func (o *Orchestrator) prepare(ctx context.Context, method domain.Method, opts domain.Options, logger *slog.Logger) (*run, *domain.DeployError) {
	if err := opts.Validate(method); err != nil {
		return nil, asDeployError(err)
	}
	profile, err := o.Profile(method)
	if err != nil {
		return nil, asDeployError(err)
	}
	if err := profile.Validate(); err != nil {
		return nil, asDeployError(err)
	}

	o.reporter.Stage(domain.StagePrerequisites)
	var missing []string

	if opts.SkipChecks {
		logger.Warn("skipping tool checks")
	} else {
		for _, tool := range profile.RequiredTools {
			if _, err := o.lookPath(tool); err != nil {
				missing = append(missing, "tool "+tool)
			}
		}
	}

	for _, ef := range profile.EnvFiles {
		if ok, _ := envfile.Exists(o.path(ef.Template)); !ok {
			missing = append(missing, "env template "+ef.Template)
		}
	}

	composePath := o.path(profile.ComposeFile)
	content, err := os.ReadFile(composePath)
	if err != nil {
		missing = append(missing, "compose file "+profile.ComposeFile)
	}

	resolution, err := o.newResolver(o.envTargets(profile)).Resolve(profile.RequiredCredentials)
	if err != nil {
		return nil, domain.NewConfigurationError(err.Error())
	}
	for _, name := range resolution.Missing {
		missing = append(missing, "credential "+name)
	}

	if len(missing) > 0 {
		return nil, domain.NewMissingPrerequisite(missing...)
	}
	for name, source := range resolution.Sources {
		logger.Debug("resolved credential", "name", name, "source", string(source))
	}

	engineEnv, err := o.engineEnv(profile, resolution.Values)
	if err != nil {
		return nil, domain.NewConfigurationError(err.Error())
	}
	interpolation := envfile.Environ()
	maps.Copy(interpolation, engineEnv)
	spec, err := compose.ParseComposeSpec(string(content), interpolation)
	if err != nil {
		return nil, domain.NewConfigurationError(fmt.Sprintf("%s: %v", profile.ComposeFile, err))
	}
	plan, err := deployment.BuildPlan(profile, spec)
	if err != nil {
		return nil, asDeployError(err)
	}

	driver, err := o.newDriver(profile, engineEnv)
	if err != nil {
		return nil, domain.NewMissingPrerequisite("container engine: " + err.Error())
	}
	if err := driver.Ping(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewInterrupted(domain.StagePrerequisites)
		}
		return nil, domain.NewMissingPrerequisite("responsive container engine: " + err.Error())
	}

	o.reporter.Step("start order: %v", plan.Names())
	logger.Debug("prerequisites passed", "order", plan.Names(), "built", plan.Built, "pulled", plan.Pulled)

	return &run{
		profile: profile,
		opts:    opts,
		plan:    plan,
		driver:  driver,
		secrets: resolution.Values,
		env:     engineEnv,
		logger:  logger,
	}, nil
}

// =============================================================================
// Stages
// =============================================================================

// materialize creates every env target that does not exist yet.
func (o *Orchestrator) materialize(_ context.Context, r *run) *domain.DeployError {
	for _, ef := range r.profile.EnvFiles {
		written, err := envfile.Materialize(o.path(ef.Template), o.path(ef.Target), r.opts.ForceEnv)
		if err != nil {
			return domain.NewEnvironmentFailure(ef.Target, err)
		}
		if written {
			r.result.EnvWritten = append(r.result.EnvWritten, ef.Target)
			o.reporter.Step("created %s from %s", ef.Target, ef.Template)
			r.logger.Info("env file written", "target", ef.Target, "template", ef.Template)
		} else {
			o.reporter.Step("kept existing %s", ef.Target)
		}
	}

	env, err := o.engineEnv(r.profile, r.secrets)
	if err != nil {
		return domain.NewEnvironmentFailure("env files", err)
	}
	if !maps.Equal(env, r.env) {
		r.driver.SetEnv(env)
		r.env = env
	}

	// Probe placeholders see the environment the services see
	r.vars = envfile.Environ()
	maps.Copy(r.vars, env)
	return nil
}

// engineEnv merges the existing env targets with the resolved credentials.
// Missing targets contribute nothing.
func (o *Orchestrator) engineEnv(profile domain.Profile, secrets map[string]string) (map[string]string, error) {
	env, err := envfile.LoadAll(o.envTargets(profile)...)
	if err != nil {
		return nil, err
	}
	maps.Copy(env, secrets)
	return env, nil
}

// build builds or pulls images unless disabled.
func (o *Orchestrator) build(ctx context.Context, r *run) *domain.DeployError {
	if r.opts.NoBuild {
		o.reporter.Step("skipped (--no-build)")
		return nil
	}
	o.reporter.Step("%s images", r.profile.BuildMode)

	out, err := r.driver.Build(ctx)
	if err != nil {
		if out == "" {
			out = engine.OutputOf(err)
		}
		return domain.NewBuildFailure(err.Error(), out)
	}
	return nil
}

// start launches services in plan order. Every dependency of a service must
// be healthy before the service is started.
func (o *Orchestrator) start(ctx context.Context, r *run) *domain.DeployError {
	healthy := make(map[string]bool, len(r.plan.Services))
	byName := make(map[string]domain.ServiceDescriptor, len(r.plan.Services))
	for _, svc := range r.plan.Services {
		byName[svc.Name] = svc
	}

	for _, svc := range r.plan.Services {
		for _, dep := range svc.DependsOn {
			if healthy[dep] {
				continue
			}
			o.reporter.Step("waiting for %s", dep)
			if err := o.waitHealthy(ctx, r, byName[dep]); err != nil {
				if ctx.Err() != nil {
					return domain.NewInterrupted(domain.StageStart)
				}
				derr := domain.NewStartupFailure(svc.Name,
					fmt.Sprintf("dependency %s not healthy within %s: %v", dep, r.profile.Timing.DependencyTimeout, err),
					engine.OutputOf(err))
				derr.Services = []string{dep, svc.Name}
				return derr
			}
			healthy[dep] = true
		}

		o.reporter.Step("starting %s", svc.Name)
		if err := r.driver.Start(ctx, svc.Name); err != nil {
			if ctx.Err() != nil {
				return domain.NewInterrupted(domain.StageStart)
			}
			return domain.NewStartupFailure(svc.Name, err.Error(), engine.OutputOf(err))
		}
		r.result.Started = append(r.result.Started, svc.Name)
		r.logger.Info("service started", "service", svc.Name)
	}
	return nil
}

// verify polls every service until all are healthy or the deadline passes.
func (o *Orchestrator) verify(ctx context.Context, r *run) *domain.DeployError {
	pending, err := o.pollUntilHealthy(ctx, r, r.plan.Services, r.profile.Timing.HealthDeadline)
	if err == nil {
		o.reporter.Step("all %d services healthy", len(r.plan.Services))
		r.result.Endpoints = endpoints(r.plan.Services, r.vars)
		return nil
	}
	if ctx.Err() != nil {
		return domain.NewInterrupted(domain.StageHealth)
	}
	return domain.NewHealthCheckTimeout(pending, fmt.Sprintf(
		"not healthy within %s: %v", r.profile.Timing.HealthDeadline, err))
}

// endpoints resolves the http probe URLs of services.
func endpoints(services []domain.ServiceDescriptor, vars map[string]string) []domain.Endpoint {
	var out []domain.Endpoint
	for _, svc := range services {
		if svc.Health.Type != domain.ProbeHTTP {
			continue
		}
		out = append(out, domain.Endpoint{
			Service: svc.Name,
			URL:     deployment.SubstituteVariables(svc.Health.URL, vars),
		})
	}
	return out
}

func asDeployError(err error) *domain.DeployError {
	if de, ok := domain.AsDeployError(err); ok {
		return de
	}
	return domain.NewConfigurationError(err.Error())
}
