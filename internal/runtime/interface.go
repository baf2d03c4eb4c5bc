package runtime

import (
	"context"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	dockercontainer "github.com/docker/docker/api/types/container"
)

// Runtime is the interface C4/C5/C6/C7 depend on, grounded on the teacher's
// runner.Runtime interface + MockRuntime test-double pattern
// (internal/runner/interface.go). *Client is the only production
// implementation; tests substitute a MockRuntime.
type Runtime interface {
	Ping(ctx context.Context) error
	Info(ctx context.Context) (types.Info, error)
	Version(ctx context.Context) (types.Version, error)

	CreateContainer(ctx context.Context, spec ContainerSpec) (string, error)
	Inspect(ctx context.Context, containerID string) (dockercontainer.InspectResponse, error)
	Start(ctx context.Context, containerID string) error
	Stop(ctx context.Context, containerID string) error
	Restart(ctx context.Context, containerID string) error
	Kill(ctx context.Context, containerID, signal string) error
	Pause(ctx context.Context, containerID string) error
	Unpause(ctx context.Context, containerID string) error
	Remove(ctx context.Context, containerID string, force bool) error
	Update(ctx context.Context, containerID string, memoryBytes, cpuCount int64) error
	List(ctx context.Context, all bool) ([]dockercontainer.Summary, error)

	PullImage(ctx context.Context, ref string) (io.ReadCloser, error)

	Logs(ctx context.Context, containerID string, opts LogOptions) (io.ReadCloser, error)
	Stats(ctx context.Context, containerID string, stream bool) (io.ReadCloser, error)
	StatsSnapshot(ctx context.Context, containerID string) (dockercontainer.StatsResponse, error)

	CreateExec(ctx context.Context, containerID string, cmd []string) (*ExecHandle, error)
	StartExec(ctx context.Context, handle *ExecHandle) error
	Exec(ctx context.Context, containerID string, cmd []string) error
	InspectExec(ctx context.Context, handle *ExecHandle) (types.ContainerExecInspect, error)

	Close() error
}

var _ Runtime = (*Client)(nil)

// MockRuntime is a no-op-by-default test double, matching the teacher's
// MockRuntime: every method is backed by an optional func field, falling
// back to a nil error and a default result (mostly zero values) when unset.
type MockRuntime struct {
	PingFunc           func(ctx context.Context) error
	InfoFunc           func(ctx context.Context) (types.Info, error)
	VersionFunc        func(ctx context.Context) (types.Version, error)
	CreateContainerFunc func(ctx context.Context, spec ContainerSpec) (string, error)
	InspectFunc        func(ctx context.Context, containerID string) (dockercontainer.InspectResponse, error)
	StartFunc          func(ctx context.Context, containerID string) error
	StopFunc           func(ctx context.Context, containerID string) error
	RestartFunc        func(ctx context.Context, containerID string) error
	KillFunc           func(ctx context.Context, containerID, signal string) error
	PauseFunc          func(ctx context.Context, containerID string) error
	UnpauseFunc        func(ctx context.Context, containerID string) error
	RemoveFunc         func(ctx context.Context, containerID string, force bool) error
	UpdateFunc         func(ctx context.Context, containerID string, memoryBytes, cpuCount int64) error
	ListFunc           func(ctx context.Context, all bool) ([]dockercontainer.Summary, error)
	PullImageFunc      func(ctx context.Context, ref string) (io.ReadCloser, error)
	LogsFunc           func(ctx context.Context, containerID string, opts LogOptions) (io.ReadCloser, error)
	StatsFunc          func(ctx context.Context, containerID string, stream bool) (io.ReadCloser, error)
	StatsSnapshotFunc  func(ctx context.Context, containerID string) (dockercontainer.StatsResponse, error)
	CreateExecFunc     func(ctx context.Context, containerID string, cmd []string) (*ExecHandle, error)
	StartExecFunc      func(ctx context.Context, handle *ExecHandle) error
	ExecFunc           func(ctx context.Context, containerID string, cmd []string) error
	InspectExecFunc    func(ctx context.Context, handle *ExecHandle) (types.ContainerExecInspect, error)
	CloseFunc          func() error
}

var _ Runtime = (*MockRuntime)(nil)

func (m *MockRuntime) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockRuntime) Info(ctx context.Context) (types.Info, error) {
	if m.InfoFunc != nil {
		return m.InfoFunc(ctx)
	}
	return types.Info{}, nil
}

func (m *MockRuntime) Version(ctx context.Context) (types.Version, error) {
	if m.VersionFunc != nil {
		return m.VersionFunc(ctx)
	}
	return types.Version{}, nil
}

func (m *MockRuntime) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	if m.CreateContainerFunc != nil {
		return m.CreateContainerFunc(ctx, spec)
	}
	return "mock-container-id", nil
}

func (m *MockRuntime) Inspect(ctx context.Context, containerID string) (dockercontainer.InspectResponse, error) {
	if m.InspectFunc != nil {
		return m.InspectFunc(ctx, containerID)
	}
	return dockercontainer.InspectResponse{}, nil
}

func (m *MockRuntime) Start(ctx context.Context, containerID string) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, containerID)
	}
	return nil
}

func (m *MockRuntime) Stop(ctx context.Context, containerID string) error {
	if m.StopFunc != nil {
		return m.StopFunc(ctx, containerID)
	}
	return nil
}

func (m *MockRuntime) Restart(ctx context.Context, containerID string) error {
	if m.RestartFunc != nil {
		return m.RestartFunc(ctx, containerID)
	}
	return nil
}

func (m *MockRuntime) Kill(ctx context.Context, containerID, signal string) error {
	if m.KillFunc != nil {
		return m.KillFunc(ctx, containerID, signal)
	}
	return nil
}

func (m *MockRuntime) Pause(ctx context.Context, containerID string) error {
	if m.PauseFunc != nil {
		return m.PauseFunc(ctx, containerID)
	}
	return nil
}

func (m *MockRuntime) Unpause(ctx context.Context, containerID string) error {
	if m.UnpauseFunc != nil {
		return m.UnpauseFunc(ctx, containerID)
	}
	return nil
}

func (m *MockRuntime) Remove(ctx context.Context, containerID string, force bool) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, containerID, force)
	}
	return nil
}

func (m *MockRuntime) Update(ctx context.Context, containerID string, memoryBytes, cpuCount int64) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, containerID, memoryBytes, cpuCount)
	}
	return nil
}

func (m *MockRuntime) List(ctx context.Context, all bool) ([]dockercontainer.Summary, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, all)
	}
	return nil, nil
}

func (m *MockRuntime) PullImage(ctx context.Context, ref string) (io.ReadCloser, error) {
	if m.PullImageFunc != nil {
		return m.PullImageFunc(ctx, ref)
	}
	return io.NopCloser(nil), nil
}

func (m *MockRuntime) Logs(ctx context.Context, containerID string, opts LogOptions) (io.ReadCloser, error) {
	if m.LogsFunc != nil {
		return m.LogsFunc(ctx, containerID, opts)
	}
	return io.NopCloser(strings.NewReader("")), nil
}

func (m *MockRuntime) Stats(ctx context.Context, containerID string, stream bool) (io.ReadCloser, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, containerID, stream)
	}
	return io.NopCloser(nil), nil
}

func (m *MockRuntime) StatsSnapshot(ctx context.Context, containerID string) (dockercontainer.StatsResponse, error) {
	if m.StatsSnapshotFunc != nil {
		return m.StatsSnapshotFunc(ctx, containerID)
	}
	return dockercontainer.StatsResponse{}, nil
}

func (m *MockRuntime) CreateExec(ctx context.Context, containerID string, cmd []string) (*ExecHandle, error) {
	if m.CreateExecFunc != nil {
		return m.CreateExecFunc(ctx, containerID, cmd)
	}
	return &ExecHandle{ID: "mock-exec-id"}, nil
}

func (m *MockRuntime) StartExec(ctx context.Context, handle *ExecHandle) error {
	if m.StartExecFunc != nil {
		return m.StartExecFunc(ctx, handle)
	}
	return nil
}

func (m *MockRuntime) Exec(ctx context.Context, containerID string, cmd []string) error {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, containerID, cmd)
	}
	return nil
}

func (m *MockRuntime) InspectExec(ctx context.Context, handle *ExecHandle) (types.ContainerExecInspect, error) {
	if m.InspectExecFunc != nil {
		return m.InspectExecFunc(ctx, handle)
	}
	return types.ContainerExecInspect{}, nil
}

func (m *MockRuntime) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
