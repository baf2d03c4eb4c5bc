package runtime

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frame builds one Docker multiplexed-stream frame: a 1-byte stream type (1 =
// stdout, 2 = stderr), 3 reserved bytes, a 4-byte big-endian payload length,
// then the payload itself.
func frame(streamType byte, payload string) []byte {
	header := make([]byte, 8)
	header[0] = streamType
	binary.BigEndian.PutUint32(header[4:], uint32(len(payload)))
	return append(header, []byte(payload)...)
}

func TestDemux_SplitsStdoutAndStderr(t *testing.T) {
	var framed bytes.Buffer
	framed.Write(frame(1, "hello stdout\n"))
	framed.Write(frame(2, "oops stderr\n"))
	framed.Write(frame(1, "more stdout\n"))

	stdout, stderr, err := Demux(&framed)
	require.NoError(t, err)
	assert.Equal(t, "hello stdout\nmore stdout\n", string(stdout))
	assert.Equal(t, "oops stderr\n", string(stderr))
}

func TestDemux_EmptyStream(t *testing.T) {
	stdout, stderr, err := Demux(&bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
}

func TestClient_Logs_UnreachableRuntime(t *testing.T) {
	c, err := New("unix:///nonexistent/docker.sock")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Logs(context.Background(), "some-container", LogOptions{ShowStdout: true, ShowStderr: true})
	require.Error(t, err)

	var rtErr *RuntimeError
	assert.ErrorAs(t, err, &rtErr)
	assert.Equal(t, "Logs", rtErr.Operation)
}

func TestClient_StatsSnapshot_UnreachableRuntime(t *testing.T) {
	c, err := New("unix:///nonexistent/docker.sock")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.StatsSnapshot(context.Background(), "some-container")
	assert.Error(t, err)
}
