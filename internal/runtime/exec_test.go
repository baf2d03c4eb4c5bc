package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateExec_UnreachableRuntime(t *testing.T) {
	c, err := New("unix:///nonexistent/docker.sock")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.CreateExec(context.Background(), "some-container", []string{"echo", "hi"})
	require.Error(t, err)

	var rtErr *RuntimeError
	assert.ErrorAs(t, err, &rtErr)
	assert.Equal(t, "CreateExec", rtErr.Operation)
	assert.True(t, rtErr.Retryable)
}

func TestClient_Exec_PropagatesCreateError(t *testing.T) {
	c, err := New("unix:///nonexistent/docker.sock")
	require.NoError(t, err)
	defer c.Close()

	err = c.Exec(context.Background(), "some-container", []string{"echo", "hi"})
	assert.Error(t, err)
}

func TestExecHandle_ID(t *testing.T) {
	handle := &ExecHandle{ID: "exec-123"}
	assert.Equal(t, "exec-123", handle.ID)
}
