package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kswarrior/ks-wings/internal/assets"
	"github.com/kswarrior/ks-wings/internal/auth"
	"github.com/kswarrior/ks-wings/internal/deploy"
	"github.com/kswarrior/ks-wings/internal/runtime"
	"github.com/kswarrior/ks-wings/internal/state"
)

const testSecret = "test-shared-secret"

func newTestServer(t *testing.T, rt *runtime.MockRuntime) (*httptest.Server, *state.Store) {
	t.Helper()
	dir := t.TempDir()
	store := state.New(filepath.Join(dir, "states.json"))
	fetcher := assets.New(nil)
	pipeline := deploy.New(rt, store, fetcher, filepath.Join(dir, "volumes"))
	mw := auth.NewMiddleware(testSecret)
	server := NewServer(pipeline, store, rt, mw, nil)
	return httptest.NewServer(server.Router()), store
}

func authedRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.SetBasicAuth(auth.Principal, testSecret)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth_NoAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, &runtime.MockRuntime{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreate_RequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, &runtime.MockRuntime{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/instances/create", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreate_HappyPath(t *testing.T) {
	rt := &runtime.MockRuntime{
		PullImageFunc: func(ctx context.Context, ref string) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(`{"status":"done"}` + "\n"))), nil
		},
		CreateContainerFunc: func(ctx context.Context, spec runtime.ContainerSpec) (string, error) {
			return "container-xyz", nil
		},
	}
	srv, store := newTestServer(t, rt)
	defer srv.Close()

	body := createRequestBody{
		Image:  "alpine:latest",
		Id:     "inst-A",
		Memory: 128,
		Cpu:    1,
		Disk:   512,
		PortBindings: map[string][]portBindingBody{
			"80/tcp": {{HostPort: "18080"}},
		},
		Variables: map[string]string{"NAME": "svc"},
	}

	req := authedRequest(t, http.MethodPost, srv.URL+"/instances/create", body)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var result deploy.CreateResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "container-xyz", result.ContainerID)

	rec, ok, err := store.Get("inst-A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "container-xyz", rec.ContainerID)
}

func TestCreate_AcceptsVariablesAsJSONEncodedString(t *testing.T) {
	rt := &runtime.MockRuntime{
		PullImageFunc: func(ctx context.Context, ref string) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(`{"status":"done"}` + "\n"))), nil
		},
		CreateContainerFunc: func(ctx context.Context, spec runtime.ContainerSpec) (string, error) {
			return "container-str", nil
		},
	}
	srv, store := newTestServer(t, rt)
	defer srv.Close()

	raw := []byte(`{"image":"alpine:latest","Id":"inst-str","Memory":128,"Cpu":1,"Disk":512,"variables":"{\"NAME\":\"svc\"}"}`)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/instances/create", bytes.NewReader(raw))
	require.NoError(t, err)
	req.SetBasicAuth(auth.Principal, testSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var result deploy.CreateResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Contains(t, result.Env, "NAME=svc")

	_, ok, err := store.Get("inst-str")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreate_BadPortReturns400AndNoState(t *testing.T) {
	srv, store := newTestServer(t, &runtime.MockRuntime{})
	defer srv.Close()

	body := createRequestBody{
		Image: "alpine:latest",
		Id:    "inst-B",
		PortBindings: map[string][]portBindingBody{
			"80/tcp": {{HostPort: "70000"}},
		},
	}

	req := authedRequest(t, http.MethodPost, srv.URL+"/instances/create", body)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, ok, err := store.Get("inst-B")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreate_ExplicitZeroPortReturns400(t *testing.T) {
	srv, store := newTestServer(t, &runtime.MockRuntime{})
	defer srv.Close()

	body := createRequestBody{
		Image: "alpine:latest",
		Id:    "inst-zero",
		PortBindings: map[string][]portBindingBody{
			"80/tcp": {{HostPort: "0"}},
		},
	}

	req := authedRequest(t, http.MethodPost, srv.URL+"/instances/create", body)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, ok, err := store.Get("inst-zero")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetState_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, &runtime.MockRuntime{})
	defer srv.Close()

	req := authedRequest(t, http.MethodGet, srv.URL+"/state/missing", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetState_ReturnsRecord(t *testing.T) {
	srv, store := newTestServer(t, &runtime.MockRuntime{})
	defer srv.Close()

	_, err := store.Update("inst-C", state.Record{State: state.StatusReady, ContainerID: "c1", DiskLimitMiB: 100})
	require.NoError(t, err)

	req := authedRequest(t, http.MethodGet, srv.URL+"/state/inst-C", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec state.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, state.StatusReady, rec.State)
	assert.Equal(t, "c1", rec.ContainerID)
}

func TestStats_ReturnsShape(t *testing.T) {
	rt := &runtime.MockRuntime{}
	srv, _ := newTestServer(t, rt)
	defer srv.Close()

	req := authedRequest(t, http.MethodGet, srv.URL+"/stats", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed statsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.NotEmpty(t, parsed.Uptime)
}

func TestDelete_MissingInstance(t *testing.T) {
	srv, _ := newTestServer(t, &runtime.MockRuntime{})
	defer srv.Close()

	req := authedRequest(t, http.MethodDelete, srv.URL+"/instances/missing", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEdit_UpdatesDiskLimit(t *testing.T) {
	srv, store := newTestServer(t, &runtime.MockRuntime{})
	defer srv.Close()

	_, err := store.Update("inst-D", state.Record{State: state.StatusReady, ContainerID: "c1"})
	require.NoError(t, err)

	disk := int64(2048)
	req := authedRequest(t, http.MethodPut, srv.URL+"/instances/edit/inst-D", editRequestBody{Disk: &disk})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	rec, ok, err := store.Get("inst-D")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2048), rec.DiskLimitMiB)
}

func TestEdit_ExplicitZeroDiskClearsLimit(t *testing.T) {
	srv, store := newTestServer(t, &runtime.MockRuntime{})
	defer srv.Close()

	_, err := store.Update("inst-E", state.Record{State: state.StatusReady, ContainerID: "c1", DiskLimitMiB: 2048})
	require.NoError(t, err)

	zero := int64(0)
	req := authedRequest(t, http.MethodPut, srv.URL+"/instances/edit/inst-E", editRequestBody{Disk: &zero})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	rec, ok, err := store.Get("inst-E")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), rec.DiskLimitMiB)
}
