package runtime

import (
	"context"

	"github.com/docker/docker/api/types"
)

// ExecHandle is a created-but-not-started exec instance attached to a
// container's primary TTY, used for the session multiplexer's `cmd` event
// (spec §4.6).
type ExecHandle struct {
	ID string
}

// CreateExec creates an exec instance that runs cmd inside containerID's
// TTY (spec §4.1 "exec(container_id, spec)"), grounded on
// lazydocker's createExec.
func (c *Client) CreateExec(ctx context.Context, containerID string, cmd []string) (*ExecHandle, error) {
	resp, err := c.cli.ContainerExecCreate(ctx, containerID, types.ExecConfig{
		Tty:          true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          cmd,
	})
	if err != nil {
		return nil, NewRuntimeError("CreateExec", containerID, err, true)
	}
	return &ExecHandle{ID: resp.ID}, nil
}

// StartExec starts a previously created exec instance without attaching,
// i.e. fire-and-forget command injection (spec §4.6 `cmd` event).
func (c *Client) StartExec(ctx context.Context, handle *ExecHandle) error {
	if err := c.cli.ContainerExecStart(ctx, handle.ID, types.ExecStartCheck{Tty: true}); err != nil {
		return NewRuntimeError("StartExec", handle.ID, err, true)
	}
	return nil
}

// Exec creates and starts an exec instance in one call, the common case for
// injecting a single command string into a container's TTY.
func (c *Client) Exec(ctx context.Context, containerID string, cmd []string) error {
	handle, err := c.CreateExec(ctx, containerID, cmd)
	if err != nil {
		return err
	}
	return c.StartExec(ctx, handle)
}

// InspectExec reports whether a previously created exec instance is still running.
func (c *Client) InspectExec(ctx context.Context, handle *ExecHandle) (types.ContainerExecInspect, error) {
	info, err := c.cli.ContainerExecInspect(ctx, handle.ID)
	if err != nil {
		return info, NewRuntimeError("InspectExec", handle.ID, err, true)
	}
	return info, nil
}
