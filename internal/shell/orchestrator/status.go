package orchestrator

import (
	"context"
	"fmt"
	"maps"

	"golang.org/x/sync/errgroup"

	"github.com/artpar/stackup/internal/core/deployment"
	"github.com/artpar/stackup/internal/core/domain"
	"github.com/artpar/stackup/internal/core/monitoring"
	"github.com/artpar/stackup/internal/shell/engine"
	"github.com/artpar/stackup/internal/shell/envfile"
)

// =============================================================================
// Status
// =============================================================================

// Status reports the state of every configured service of method's stack.
// It probes each running service once, concurrently, and changes nothing.
func (o *Orchestrator) Status(ctx context.Context, method domain.Method) (domain.StackHealth, error) {
	profile, err := o.Profile(method)
	if err != nil {
		return domain.StackHealth{}, err
	}

	driver, vars, err := o.readOnlyDriver(profile)
	if err != nil {
		return domain.StackHealth{}, err
	}

	states, err := driver.PS(ctx)
	if err != nil {
		return domain.StackHealth{}, fmt.Errorf("list containers: %w", err)
	}
	byService := engine.ByService(states)

	services := make([]domain.ServiceHealth, len(profile.Services))
	g, gctx := errgroup.WithContext(ctx)
	for i, svc := range profile.Services {
		state := byService[svc.Name]
		g.Go(func() error {
			var probeErr error
			if state.State == monitoring.StateRunning {
				probe := svc
				probe.Health = deployment.ResolveProbe(svc.Health, vars)
				probeErr = driver.HealthCheck(gctx, probe)
			}
			services[i] = domain.ServiceHealth{
				Name:    svc.Name,
				State:   state.State,
				Health:  monitoring.DetermineServiceHealth(state.State, state.Health, probeErr),
				Message: monitoring.HealthMessage(svc.Name, state.State, state.Health, probeErr),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.StackHealth{}, err
	}
	if ctx.Err() != nil {
		return domain.StackHealth{}, domain.NewInterrupted(domain.StageHealth)
	}

	health := domain.StackHealth{
		Method:    method,
		Status:    monitoring.AggregateHealth(services),
		Services:  services,
		CheckedAt: o.now(),
	}
	o.logger.Info("status checked", "method", string(method), "status", string(health.Status), "summary", monitoring.Summary(services))
	return health, nil
}

// =============================================================================
// Reset
// =============================================================================

// Reset stops and removes method's stack, and its volumes when
// removeVolumes is set. Env files are left in place.
func (o *Orchestrator) Reset(ctx context.Context, method domain.Method, removeVolumes bool) error {
	profile, err := o.Profile(method)
	if err != nil {
		return err
	}
	driver, _, err := o.readOnlyDriver(profile)
	if err != nil {
		return err
	}

	o.logger.Info("resetting stack", "method", string(method), "remove_volumes", removeVolumes)
	if err := driver.Down(ctx, removeVolumes); err != nil {
		return fmt.Errorf("docker compose down: %w", err)
	}
	return nil
}

// readOnlyDriver builds a driver with whatever credentials resolve, for
// operations that do not require all of them.
func (o *Orchestrator) readOnlyDriver(profile domain.Profile) (Driver, map[string]string, error) {
	resolution, err := o.newResolver(o.envTargets(profile)).Resolve(profile.RequiredCredentials)
	if err != nil {
		return nil, nil, err
	}
	env, err := o.engineEnv(profile, resolution.Values)
	if err != nil {
		return nil, nil, err
	}
	driver, err := o.newDriver(profile, env)
	if err != nil {
		return nil, nil, err
	}

	vars := envfile.Environ()
	maps.Copy(vars, env)
	return driver, vars, nil
}
