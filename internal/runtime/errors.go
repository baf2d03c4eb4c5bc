package runtime

import "fmt"

// RuntimeError wraps a failure from a runtime-client operation with the
// operation name and the container id it concerned, so callers can log a
// useful message without re-deriving context from the underlying SDK error.
type RuntimeError struct {
	Operation   string // e.g. "CreateContainer", "PullImage"
	ContainerID string // empty when the operation has no single target
	Err         error
	Retryable   bool
}

func (e *RuntimeError) Error() string {
	if e.ContainerID != "" {
		return fmt.Sprintf("runtime %s failed for container %s: %v", e.Operation, e.ContainerID, e.Err)
	}
	return fmt.Sprintf("runtime %s failed: %v", e.Operation, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError constructs a RuntimeError.
func NewRuntimeError(operation, containerID string, err error, retryable bool) *RuntimeError {
	return &RuntimeError{
		Operation:   operation,
		ContainerID: containerID,
		Err:         err,
		Retryable:   retryable,
	}
}

// Sentinel errors matching the spec's error taxonomy (§4.1, §7).
var (
	// ErrRuntimeUnavailable means the runtime socket could not be reached.
	ErrRuntimeUnavailable = fmt.Errorf("runtime unavailable")
	// ErrNotFound means Inspect found no matching container.
	ErrNotFound = fmt.Errorf("container not found in runtime")
	// ErrProtocol means the runtime returned a response the client could not parse.
	ErrProtocol = fmt.Errorf("malformed response from runtime")
	// ErrPullFailed means ImagePull or its progress drain reported an error.
	ErrPullFailed = fmt.Errorf("image pull failed")
	// ErrCreateFailed means ContainerCreate returned a non-2xx or no id.
	ErrCreateFailed = fmt.Errorf("container create failed")
)
