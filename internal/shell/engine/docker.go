package engine

import (
	"context"
	"os"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// Compose labels set on every container of a project.
const (
	LabelProject = "com.docker.compose.project"
	LabelService = "com.docker.compose.service"
)

// =============================================================================
// Docker Client Implementation
// =============================================================================

// DockerClient implements ContainerAPI using the Docker SDK.
type DockerClient struct {
	cli *client.Client
}

// NewDockerClient creates a new Docker client.
// If host is empty, it uses the default Docker host from environment.
// On macOS with Docker Desktop, it automatically detects the correct socket.
func NewDockerClient(ctx context.Context, host string) (*DockerClient, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewEngineError("connect", "", "failed to create docker client: "+err.Error(), "", ErrEngineUnavailable)
	}

	if _, pingErr := cli.Ping(ctx); pingErr != nil && host == "" {
		homeDir, _ := os.UserHomeDir()
		desktopSocket := "unix://" + homeDir + "/.docker/run/docker.sock"

		cli2, err2 := client.NewClientWithOpts(
			client.WithHost(desktopSocket),
			client.WithAPIVersionNegotiation(),
		)
		if err2 == nil {
			if _, pingErr2 := cli2.Ping(ctx); pingErr2 == nil {
				cli.Close()
				return &DockerClient{cli: cli2}, nil
			}
			cli2.Close()
		}
	}

	return &DockerClient{cli: cli}, nil
}

// Ping checks if the Docker daemon is reachable.
func (d *DockerClient) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return NewEngineError("ping", "", "failed to ping docker: "+err.Error(), "", ErrEngineUnavailable)
	}
	return nil
}

// Close closes the Docker client connection.
func (d *DockerClient) Close() error {
	return d.cli.Close()
}

// ServiceContainer returns the state of the container compose created for
// service in project.
func (d *DockerClient) ServiceContainer(ctx context.Context, project, service string) (ContainerState, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", LabelProject+"="+project),
			filters.Arg("label", LabelService+"="+service),
		),
	})
	if err != nil {
		return ContainerState{}, NewEngineError("list", service, err.Error(), "", err)
	}
	if len(containers) == 0 {
		return ContainerState{}, NewEngineError("list", service, "no container for service", "", ErrContainerNotFound)
	}

	resp, err := d.cli.ContainerInspect(ctx, containers[0].ID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return ContainerState{}, NewEngineError("inspect", service, "container not found", "", ErrContainerNotFound)
		}
		return ContainerState{}, NewEngineError("inspect", service, err.Error(), "", err)
	}

	state := ContainerState{
		Name:    strings.TrimPrefix(resp.Name, "/"),
		Service: service,
	}
	if resp.State != nil {
		state.State = string(resp.State.Status)
		state.ExitCode = resp.State.ExitCode
		if resp.State.Health != nil {
			state.Health = string(resp.State.Health.Status)
		}
	}
	return state, nil
}
