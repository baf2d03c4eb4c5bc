// Package runtime is a thin, domain-shaped facade over the container
// runtime's HTTP API, built on the official SDK rather than a hand-rolled
// client over the UNIX socket.
package runtime

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
)

// fallbackAPIVersion is used only if the daemon's own version probe fails,
// so the client stays usable against an older runtime (spec §4.1).
const fallbackAPIVersion = "1.41"

// Client wraps the runtime SDK client with the operations C4/C5/C6/C7 need.
// One Client is constructed at startup and shared by every component (spec
// §9 "global runtime client ... no ambient globals" — passed explicitly).
type Client struct {
	cli *client.Client
}

// New dials the runtime over host (e.g. "unix:///var/run/docker.sock"). An
// empty host falls back to the SDK's own environment-derived default
// (DOCKER_HOST, or the OS default socket path), matching
// client.FromEnv's convention.
func New(host string) (*Client, error) {
	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}

	return &Client{cli: cli}, nil
}

// Ping is a liveness check. Fails with ErrRuntimeUnavailable if the socket
// cannot be reached, per spec §4.1.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.cli.Ping(ctx); err != nil {
		return NewRuntimeError("Ping", "", fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err), true)
	}
	return nil
}

// Info returns an opaque descriptive record for the daemon.
func (c *Client) Info(ctx context.Context) (types.Info, error) {
	info, err := c.cli.Info(ctx)
	if err != nil {
		return types.Info{}, NewRuntimeError("Info", "", err, true)
	}
	return info, nil
}

// Version returns an opaque descriptive record for the API version in use.
// If the daemon cannot be reached, the hard-coded fallback version is
// reported instead of failing, so the caller always has something to log.
func (c *Client) Version(ctx context.Context) (types.Version, error) {
	v, err := c.cli.ServerVersion(ctx)
	if err != nil {
		return types.Version{APIVersion: fallbackAPIVersion}, nil
	}
	return v, nil
}

// Close releases the underlying HTTP transport.
func (c *Client) Close() error {
	if c.cli == nil {
		return nil
	}
	return c.cli.Close()
}
