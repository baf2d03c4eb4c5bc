package session

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kswarrior/ks-wings/internal/auth"
	"github.com/kswarrior/ks-wings/internal/pubsub"
	"github.com/kswarrior/ks-wings/internal/runtime"
	"github.com/kswarrior/ks-wings/internal/state"
)

const testSecret = "session-shared-secret"

// newTestHub wires a Server behind a chi route carrying the same
// {kind}/{containerId}/{volumeId} params the real router supplies, and
// returns an httptest.Server plus the backing store/pubsub for assertions.
func newTestHub(t *testing.T, rt *runtime.MockRuntime) (*httptest.Server, *state.Store, pubsub.PubSub) {
	srv, store, ps, _ := newTestHubWithVolumeRoot(t, rt)
	return srv, store, ps
}

func newTestHubWithVolumeRoot(t *testing.T, rt *runtime.MockRuntime) (*httptest.Server, *state.Store, pubsub.PubSub, string) {
	t.Helper()
	dir := t.TempDir()
	volumeRoot := filepath.Join(dir, "volumes")
	store := state.New(filepath.Join(dir, "states.json"))
	ps := pubsub.NewMemoryPubSub()
	mw := auth.NewMiddleware(testSecret)
	srv := NewServer(rt, store, mw, ps, volumeRoot)

	r := chi.NewRouter()
	r.Get("/ws/{kind}/{containerId}", srv.ServeHTTP)
	r.Get("/ws/{kind}/{containerId}/{volumeId}", srv.ServeHTTP)
	return httptest.NewServer(r), store, ps, volumeRoot
}

func dialWS(t *testing.T, httpURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + httpURL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func authenticateConn(t *testing.T, conn *websocket.Conn, secret string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(Frame{Event: eventAuth, Args: []string{secret}}))
}

func TestServeHTTP_RejectsUnsupportedKind(t *testing.T) {
	srv, _, _ := newTestHub(t, &runtime.MockRuntime{})
	defer srv.Close()

	conn := dialWS(t, srv.URL+"/ws/bogus/container-1")
	defer conn.Close()

	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, websocket.CloseProtocolError, closeErr.Code)
}

func TestServeHTTP_RejectsAuthFailure(t *testing.T) {
	srv, _, _ := newTestHub(t, &runtime.MockRuntime{})
	defer srv.Close()

	conn := dialWS(t, srv.URL+"/ws/exec/container-1")
	defer conn.Close()

	authenticateConn(t, conn, "wrong-secret")

	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestServeHTTP_AuthSuccessSendsBanner(t *testing.T) {
	srv, _, _ := newTestHub(t, &runtime.MockRuntime{})
	defer srv.Close()

	conn := dialWS(t, srv.URL+"/ws/exec/container-1")
	defer conn.Close()

	authenticateConn(t, conn, testSecret)

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), "connected")
}

func TestServeHTTP_ExecSessionReplaysBacklogThenForwards(t *testing.T) {
	srv, _, ps := newTestHub(t, &runtime.MockRuntime{})
	defer srv.Close()

	topic := pubsub.InstanceLogTopic("container-1")
	require.NoError(t, ps.Publish(context.Background(), topic, pubsub.LogLineEvent{Line: "backlog line"}))

	conn := dialWS(t, srv.URL+"/ws/exec/container-1")
	defer conn.Close()
	authenticateConn(t, conn, testSecret)

	_, _, err := conn.ReadMessage() // banner
	require.NoError(t, err)

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), "backlog line")

	require.NoError(t, ps.Publish(context.Background(), topic, pubsub.LogLineEvent{Line: "live line"}))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), "live line")
}

// TestServeHTTP_ExecSessionPumpForwardsContainerLogs proves the log pump
// itself delivers output, without the test publishing the "live line" the
// way TestServeHTTP_ExecSessionReplaysBacklogThenForwards does.
func TestServeHTTP_ExecSessionPumpForwardsContainerLogs(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	rt := &runtime.MockRuntime{
		LogsFunc: func(ctx context.Context, containerID string, opts runtime.LogOptions) (io.ReadCloser, error) {
			require.True(t, opts.Follow)
			return pr, nil
		},
	}
	srv, _, _ := newTestHub(t, rt)
	defer srv.Close()

	conn := dialWS(t, srv.URL+"/ws/exec/container-live")
	defer conn.Close()
	authenticateConn(t, conn, testSecret)

	_, _, err := conn.ReadMessage() // banner
	require.NoError(t, err)

	_, err = pw.Write([]byte("container booted\n"))
	require.NoError(t, err)

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), "container booted")
}

func TestServeHTTP_ExecSessionPowerStopInvokesRuntime(t *testing.T) {
	stopped := make(chan string, 1)
	rt := &runtime.MockRuntime{
		StopFunc: func(ctx context.Context, containerID string) error {
			stopped <- containerID
			return nil
		},
	}
	srv, _, _ := newTestHub(t, rt)
	defer srv.Close()

	conn := dialWS(t, srv.URL+"/ws/exec/container-9")
	defer conn.Close()
	authenticateConn(t, conn, testSecret)

	_, _, err := conn.ReadMessage() // banner
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(Frame{Event: eventPowerStop}))

	select {
	case id := <-stopped:
		require.Equal(t, "container-9", id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Stop to be invoked")
	}
}

func TestServeHTTP_ExecSessionCmdInjectsCommand(t *testing.T) {
	execCh := make(chan []string, 1)
	rt := &runtime.MockRuntime{
		ExecFunc: func(ctx context.Context, containerID string, cmd []string) error {
			execCh <- cmd
			return nil
		},
	}
	srv, _, _ := newTestHub(t, rt)
	defer srv.Close()

	conn := dialWS(t, srv.URL+"/ws/exec/container-1")
	defer conn.Close()
	authenticateConn(t, conn, testSecret)

	_, _, err := conn.ReadMessage() // banner
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(Frame{Event: eventCmd, Command: "say hello"}))

	select {
	case cmd := <-execCh:
		require.Equal(t, []string{"sh", "-c", "say hello"}, cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Exec to be invoked")
	}
}
