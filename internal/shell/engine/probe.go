package engine

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/artpar/stackup/internal/core/domain"
	"github.com/artpar/stackup/internal/core/monitoring"
)

// =============================================================================
// Health Probes
// =============================================================================

// HealthCheck runs svc's probe once, bounded by the probe timeout. Probe
// targets must already have their placeholders resolved.
func (c *Compose) HealthCheck(ctx context.Context, svc domain.ServiceDescriptor) error {
	probe := svc.Health
	ctx, cancel := context.WithTimeout(ctx, probe.EffectiveTimeout())
	defer cancel()

	var err error
	switch probe.Type {
	case domain.ProbeHTTP:
		err = probeHTTP(ctx, c.http, probe.URL)
	case domain.ProbeRedis:
		err = probeRedis(ctx, probe.Addr)
	case domain.ProbeCommand:
		_, err = c.Exec(ctx, svc.Name, probe.Command)
	case domain.ProbeContainer:
		err = c.probeContainer(ctx, svc.Name)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedProbe, probe.Type)
	}
	if err != nil {
		return NewEngineError("probe", svc.Name, err.Error(), OutputOf(err), fmt.Errorf("%w: %w", ErrProbeFailed, err))
	}
	return nil
}

// probeHTTP is healthy on any 2xx or 3xx answer.
func probeHTTP(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
	}
	return nil
}

// probeRedis sends PING to addr, which is host:port or a redis:// URL.
func probeRedis(ctx context.Context, addr string) error {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return err
		}
		opts = parsed
	}
	opts.MaxRetries = -1

	rdb := redis.NewClient(opts)
	defer rdb.Close()

	return rdb.Ping(ctx).Err()
}

// probeContainer is healthy when the service container runs and, if it
// declares a healthcheck, reports healthy.
func (c *Compose) probeContainer(ctx context.Context, service string) error {
	if c.api == nil {
		return ErrDockerNotAvailable
	}
	state, err := c.api.ServiceContainer(ctx, c.cfg.Project, service)
	if err != nil {
		return err
	}
	if state.State != monitoring.StateRunning {
		return fmt.Errorf("%w: %s", ErrContainerNotRunning, state.State)
	}
	if state.Health == monitoring.ContainerUnhealthy || state.Health == monitoring.ContainerStarting {
		return fmt.Errorf("%w: %s", ErrContainerUnhealthy, state.Health)
	}
	return nil
}
