package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/artpar/stackup/internal/core/domain"
	"github.com/artpar/stackup/internal/shell/engine"
	"github.com/artpar/stackup/internal/shell/orchestrator"
)

// dockerConnectTimeout bounds the initial daemon handshake.
const dockerConnectTimeout = 10 * time.Second

// driverSource builds engine drivers and releases them on Close.
type driverSource interface {
	Driver(profile domain.Profile, env map[string]string) (orchestrator.Driver, error)
	Close() error
}

// dockerDrivers drives the docker compose CLI, with the Docker API for the
// daemon ping and container probes.
type dockerDrivers struct {
	cfg    *Config
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	clients []*engine.DockerClient
}

func newDockerDrivers(cfg *Config, root string, logger *slog.Logger) driverSource {
	return &dockerDrivers{cfg: cfg, root: root, logger: logger}
}

func (d *dockerDrivers) Driver(profile domain.Profile, env map[string]string) (orchestrator.Driver, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dockerConnectTimeout)
	defer cancel()

	api, err := engine.NewDockerClient(ctx, d.cfg.Docker.Host)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.clients = append(d.clients, api)
	d.mu.Unlock()

	return engine.NewCompose(engine.ComposeConfig{
		Binary:    d.cfg.Docker.ComposeBinary,
		File:      profile.ComposeFile,
		Project:   profile.ProjectName,
		BuildMode: profile.BuildMode,
		Env:       env,
	}, engine.ExecRunner{Dir: d.root},
		engine.WithContainerAPI(api),
		engine.WithLogger(d.logger.With("project", profile.ProjectName)),
	), nil
}

func (d *dockerDrivers) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for _, c := range d.clients {
		errs = append(errs, c.Close())
	}
	d.clients = nil
	return errors.Join(errs...)
}
