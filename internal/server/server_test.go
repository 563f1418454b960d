package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmatsu/odelab/internal/models"
	"github.com/kmatsu/odelab/internal/session"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess := session.New(models.NewRegistry(), log)
	srv := New("", sess, log)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postRPC(t *testing.T, ts *httptest.Server, body []byte) []byte {
	t.Helper()
	resp, err := http.Post(ts.URL+"/rpc", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return data
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRPCRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	data := postRPC(t, ts, []byte(`{"command":"INIT","params":{"model":"decay","t":0}}`))
	var status session.StatusResponse
	require.NoError(t, json.Unmarshal(data, &status))
	assert.True(t, status.Success, status.Message)

	data = postRPC(t, ts, []byte(`{"command":"GET_DIFFVAR_NAME"}`))
	var names session.DiffvarNameResponse
	require.NoError(t, json.Unmarshal(data, &names))
	assert.Equal(t, []string{"y"}, names.Names)
}

func TestRPCFailureKeepsServing(t *testing.T) {
	ts := newTestServer(t)

	data := postRPC(t, ts, []byte(`{"command":"INIT","params":{"model":"nope"}}`))
	var status session.StatusResponse
	require.NoError(t, json.Unmarshal(data, &status))
	assert.False(t, status.Success)

	// The session is still usable after a failed command.
	data = postRPC(t, ts, []byte(`{"command":"INIT","params":{"model":"decay"}}`))
	require.NoError(t, json.Unmarshal(data, &status))
	assert.True(t, status.Success)
}

func TestRPCMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/rpc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
