package deploy

import "errors"

// Error kinds matching the spec's error taxonomy (spec §7). C5 maps these to
// HTTP status codes. The pipeline also returns runtime, volume and state-store
// errors that wrap none of these; C5 maps those to 500.
var (
	// ErrBadRequest means a validation failure before any side effect
	// occurred (spec §4.4 step 1/2).
	ErrBadRequest = errors.New("bad request")
	// ErrNotFound means the referenced instance/container has no state record.
	ErrNotFound = errors.New("instance not found")
	// ErrConflict means a supplied container id did not match the state record.
	ErrConflict = errors.New("container id mismatch")
)

// IsBadRequest reports whether err (or anything it wraps) is ErrBadRequest.
func IsBadRequest(err error) bool { return errors.Is(err, ErrBadRequest) }

// IsNotFound reports whether err (or anything it wraps) is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err (or anything it wraps) is ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
