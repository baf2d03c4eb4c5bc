package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
)

// ProgressRecord is one newline-delimited JSON line of an image pull's
// progress stream.
type ProgressRecord struct {
	Status   string `json:"status,omitempty"`
	ID       string `json:"id,omitempty"`
	Progress string `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

// PullImage starts an image pull and returns the raw response stream. The
// caller must drain it (DrainPullProgress or equivalent) for the pull to
// complete, and close it when done. Fails eagerly with ErrPullFailed if the
// request itself could not be issued (spec §4.1).
func (c *Client) PullImage(ctx context.Context, ref string) (io.ReadCloser, error) {
	stream, err := c.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return nil, NewRuntimeError("PullImage", "", fmt.Errorf("%w: %v", ErrPullFailed, err), true)
	}
	return stream, nil
}

// DrainPullProgress implements the progress drain contract (spec §4.1):
// split stream on newlines, parse each non-empty line as a ProgressRecord,
// invoke onProgress for each one parsed successfully, and return a non-nil
// error iff the final record carries a non-empty Error field or the stream
// itself errored. Malformed JSON lines are silently skipped — the runtime
// interleaves occasional whitespace and partial writes.
func DrainPullProgress(stream io.Reader, onProgress func(ProgressRecord)) error {
	scanner := bufio.NewScanner(stream)
	// Progress lines can carry long base64 layer digests; grow the buffer
	// past bufio.Scanner's 64KiB default.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var last ProgressRecord
	var sawRecord bool

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec ProgressRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}

		sawRecord = true
		last = rec
		if onProgress != nil {
			onProgress(rec)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPullFailed, err)
	}
	if sawRecord && last.Error != "" {
		return fmt.Errorf("%w: %s", ErrPullFailed, last.Error)
	}
	return nil
}
