package runtime

import (
	"context"
	"fmt"
	"runtime"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// defaultStopTimeout bounds how long ContainerStop/ContainerRestart wait for
// a graceful shutdown before sending SIGKILL.
const defaultStopTimeout = 30 * time.Second

// AppDataMountPath is the fixed in-container mount point for an instance's
// volume (spec §6 "Volumes ... bind-mounted to /app/data").
const AppDataMountPath = "/app/data"

// ContainerSpec describes a container to create (spec §4.4 step 8).
type ContainerSpec struct {
	Name          string
	Image         string
	Cmd           []string
	Env           []string
	ExposedPorts  nat.PortSet
	PortBindings  nat.PortMap
	VolumePath    string // host directory bound to AppDataMountPath
	MemoryBytes   int64
	CPUCount      int64
	Labels        map[string]string
}

// CreateContainer creates (but does not start) a container per spec.
// The network mode is chosen by platform: host on UNIX-like systems, bridge
// elsewhere (spec §4.4 step 8, §9 "platform-dependent network mode").
func (c *Client) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	containerCfg := &dockercontainer.Config{
		Image:        spec.Image,
		Cmd:          spec.Cmd,
		Env:          spec.Env,
		ExposedPorts: spec.ExposedPorts,
		Tty:          true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		OpenStdin:    true,
		Labels:       spec.Labels,
	}

	hostCfg := &dockercontainer.HostConfig{
		PortBindings: spec.PortBindings,
		NetworkMode:  networkModeForPlatform(),
		Memory:       spec.MemoryBytes,
		NanoCPUs:     spec.CPUCount * 1e9,
	}
	if spec.VolumePath != "" {
		hostCfg.Mounts = []mount.Mount{
			{
				Type:   mount.TypeBind,
				Source: spec.VolumePath,
				Target: AppDataMountPath,
			},
		}
	}

	resp, err := c.cli.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, nil, spec.Name)
	if err != nil {
		return "", NewRuntimeError("CreateContainer", spec.Name, fmt.Errorf("%w: %v", ErrCreateFailed, err), true)
	}
	if resp.ID == "" {
		return "", NewRuntimeError("CreateContainer", spec.Name, ErrCreateFailed, true)
	}

	return resp.ID, nil
}

// networkModeForPlatform preserves the source daemon's platform-dependent
// choice (spec §9): host networking on UNIX-like systems, bridge on Windows.
func networkModeForPlatform() dockercontainer.NetworkMode {
	if runtime.GOOS == "windows" {
		return "bridge"
	}
	return "host"
}

// Inspect returns the full container state, wrapping a not-found result as ErrNotFound.
func (c *Client) Inspect(ctx context.Context, containerID string) (dockercontainer.InspectResponse, error) {
	info, err := c.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		if isNotFound(err) {
			return info, NewRuntimeError("Inspect", containerID, ErrNotFound, false)
		}
		return info, NewRuntimeError("Inspect", containerID, err, true)
	}
	return info, nil
}

// Start starts a created or stopped container.
func (c *Client) Start(ctx context.Context, containerID string) error {
	if err := c.cli.ContainerStart(ctx, containerID, dockercontainer.StartOptions{}); err != nil {
		return NewRuntimeError("Start", containerID, err, true)
	}
	return nil
}

// Stop stops a running container within defaultStopTimeout.
func (c *Client) Stop(ctx context.Context, containerID string) error {
	timeout := int(defaultStopTimeout.Seconds())
	if err := c.cli.ContainerStop(ctx, containerID, dockercontainer.StopOptions{Timeout: &timeout}); err != nil {
		return NewRuntimeError("Stop", containerID, err, true)
	}
	return nil
}

// Restart stops then starts a container within defaultStopTimeout.
func (c *Client) Restart(ctx context.Context, containerID string) error {
	timeout := int(defaultStopTimeout.Seconds())
	if err := c.cli.ContainerRestart(ctx, containerID, dockercontainer.StopOptions{Timeout: &timeout}); err != nil {
		return NewRuntimeError("Restart", containerID, err, true)
	}
	return nil
}

// Kill sends SIGKILL (or the given signal) to the container's main process.
func (c *Client) Kill(ctx context.Context, containerID, signal string) error {
	if signal == "" {
		signal = "SIGKILL"
	}
	if err := c.cli.ContainerKill(ctx, containerID, signal); err != nil {
		return NewRuntimeError("Kill", containerID, err, true)
	}
	return nil
}

// Pause freezes all processes in the container.
func (c *Client) Pause(ctx context.Context, containerID string) error {
	if err := c.cli.ContainerPause(ctx, containerID); err != nil {
		return NewRuntimeError("Pause", containerID, err, true)
	}
	return nil
}

// Unpause resumes a paused container.
func (c *Client) Unpause(ctx context.Context, containerID string) error {
	if err := c.cli.ContainerUnpause(ctx, containerID); err != nil {
		return NewRuntimeError("Unpause", containerID, err, true)
	}
	return nil
}

// Remove deletes a container, stopping it first if force is set.
func (c *Client) Remove(ctx context.Context, containerID string, force bool) error {
	if err := c.cli.ContainerRemove(ctx, containerID, dockercontainer.RemoveOptions{Force: force}); err != nil {
		return NewRuntimeError("Remove", containerID, err, true)
	}
	return nil
}

// Update mutates CPU/memory limits on an existing container without
// recreating it (spec §4.4 "Edit" contract).
func (c *Client) Update(ctx context.Context, containerID string, memoryBytes, cpuCount int64) error {
	update := dockercontainer.UpdateConfig{}
	if memoryBytes > 0 {
		update.Resources.Memory = memoryBytes
	}
	if cpuCount > 0 {
		update.Resources.NanoCPUs = cpuCount * 1e9
	}
	if _, err := c.cli.ContainerUpdate(ctx, containerID, update); err != nil {
		return NewRuntimeError("Update", containerID, err, true)
	}
	return nil
}

// List returns containers; all controls whether stopped containers are included.
func (c *Client) List(ctx context.Context, all bool) ([]dockercontainer.Summary, error) {
	containers, err := c.cli.ContainerList(ctx, dockercontainer.ListOptions{All: all, Filters: filters.NewArgs()})
	if err != nil {
		return nil, NewRuntimeError("List", "", err, true)
	}
	return containers, nil
}

func isNotFound(err error) bool {
	return client.IsErrNotFound(err)
}
