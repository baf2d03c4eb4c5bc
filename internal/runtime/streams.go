package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// LogOptions configures Logs (spec §4.1 "logs(container_id, {follow, stdout, stderr, tail})").
type LogOptions struct {
	Follow     bool
	ShowStdout bool
	ShowStderr bool
	Tail       string // "" means all
	Timestamps bool
}

// Logs returns a raw byte stream of container output. Framing is the
// runtime's native format: containers created with Tty=true (spec §4.4 step
// 8, all instances created by this agent) emit raw, unframed bytes; only a
// non-TTY container's log stream needs stdcopy demultiplexing.
func (c *Client) Logs(ctx context.Context, containerID string, opts LogOptions) (io.ReadCloser, error) {
	logs, err := c.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: opts.ShowStdout,
		ShowStderr: opts.ShowStderr,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
		Timestamps: opts.Timestamps,
	})
	if err != nil {
		return nil, NewRuntimeError("Logs", containerID, err, true)
	}
	return logs, nil
}

// Demux splits a non-TTY container's multiplexed log/exec stream into
// separate stdout/stderr buffers, grounded on the teacher's
// getContainerOutput helper (internal/runner/docker_volume.go).
func Demux(framed io.Reader) (stdout, stderr []byte, err error) {
	var outBuf, errBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&outBuf, &errBuf, framed); err != nil {
		return nil, nil, err
	}
	return outBuf.Bytes(), errBuf.Bytes(), nil
}

// Stats returns a single snapshot (stream=false) or a raw stream of
// successive snapshots (stream=true) (spec §4.1 "stats(container_id, stream?)").
func (c *Client) Stats(ctx context.Context, containerID string, stream bool) (io.ReadCloser, error) {
	resp, err := c.cli.ContainerStats(ctx, containerID, stream)
	if err != nil {
		return nil, NewRuntimeError("Stats", containerID, err, true)
	}
	return resp.Body, nil
}

// StatsSnapshot fetches and decodes one non-streaming stats sample.
func (c *Client) StatsSnapshot(ctx context.Context, containerID string) (container.StatsResponse, error) {
	body, err := c.Stats(ctx, containerID, false)
	if err != nil {
		return container.StatsResponse{}, err
	}
	defer body.Close()

	var snap container.StatsResponse
	if err := json.NewDecoder(body).Decode(&snap); err != nil {
		return container.StatsResponse{}, NewRuntimeError("Stats", containerID, ErrProtocol, false)
	}
	return snap, nil
}
