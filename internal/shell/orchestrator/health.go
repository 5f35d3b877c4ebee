package orchestrator

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/artpar/stackup/internal/core/deployment"
	"github.com/artpar/stackup/internal/core/domain"
)

// waitHealthy polls one service until healthy, bounded by the dependency timeout.
func (o *Orchestrator) waitHealthy(ctx context.Context, r *run, svc domain.ServiceDescriptor) error {
	_, err := o.pollUntilHealthy(ctx, r, []domain.ServiceDescriptor{svc}, r.profile.Timing.DependencyTimeout)
	return err
}

// pollUntilHealthy probes services in rounds at a fixed interval until every
// one has passed once, the attempt budget is spent, or deadline elapses. A
// service that passed is not probed again. It returns the names still
// unhealthy when it gave up.
func (o *Orchestrator) pollUntilHealthy(ctx context.Context, r *run, services []domain.ServiceDescriptor, deadline time.Duration) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	timing := r.profile.Timing
	pending := slices.Clone(services)

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Delay(timing.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.WrapContextErrorWithLastError(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Debug("services not yet healthy",
				"attempt", n+1,
				"pending", domain.ServiceNames(pending),
				"error", err,
			)
		}),
	}
	if timing.MaxAttempts > 0 {
		opts = append(opts, retry.Attempts(uint(timing.MaxAttempts)))
	} else {
		opts = append(opts, retry.UntilSucceeded())
	}

	err := retry.New(opts...).Do(func() error {
		var still []domain.ServiceDescriptor
		var errs []error
		for _, svc := range pending {
			probe := svc
			probe.Health = deployment.ResolveProbe(svc.Health, r.vars)
			if err := r.driver.HealthCheck(ctx, probe); err != nil {
				still = append(still, svc)
				errs = append(errs, err)
				continue
			}
			r.logger.Debug("service healthy", "service", svc.Name)
		}
		pending = still
		return errors.Join(errs...)
	})
	return domain.ServiceNames(pending), err
}
