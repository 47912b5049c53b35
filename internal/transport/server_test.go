package transport

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

type fakeHandler struct {
	mu       sync.Mutex
	applied  []models.FixPayload
	response models.FixResponse
	preview  *models.FixPreview
	err      error
}

func (f *fakeHandler) HandleFixApply(ctx context.Context, payload models.FixPayload) models.FixResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, payload)
	resp := f.response
	resp.AlertID = payload.AlertID
	resp.FilePath = payload.FilePath
	return resp
}

func (f *fakeHandler) HandleFixValidate(ctx context.Context, payload models.FixPayload) (*models.FixPreview, error) {
	return f.preview, f.err
}

func startTestServer(t *testing.T, handler RequestHandler, opts ServerOptions) (*Hub, string) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	opts.WatchDir = "/work/project"
	server := NewServer(zerolog.Nop(), hub, handler, opts)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return hub, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url, origin string) *websocket.Conn {
	t.Helper()
	ws, err := websocket.Dial(url, "", origin)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	env := receive(t, ws)
	require.Equal(t, models.MessageConnectionEstablished, env.Type)
	var info models.ConnectionInfo
	require.NoError(t, env.Decode(&info))
	assert.Equal(t, "/work/project", info.WatchDir)
	return ws
}

func receive(t *testing.T, ws *websocket.Conn) models.Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env models.Envelope
	require.NoError(t, websocket.JSON.Receive(ws, &env))
	return env
}

func sendRequest(t *testing.T, ws *websocket.Conn, msgType models.MessageType, payload any) {
	t.Helper()
	env, err := models.NewEnvelope(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, websocket.JSON.Send(ws, env))
}

func testPayload() models.FixPayload {
	original, replacement := "a", "b"
	return models.FixPayload{AlertID: "alert-1", FilePath: "/work/project/a.js", OriginalContent: &original, ReplacementContent: &replacement}
}

func TestServer_BroadcastReachesEveryClient(t *testing.T) {
	hub, url := startTestServer(t, &fakeHandler{}, ServerOptions{})
	first := dial(t, url, "http://localhost/")
	second := dial(t, url, "http://127.0.0.1:3000")
	assert.Equal(t, 2, hub.Clients())

	result := models.NewScanResult("/work/project/a.js")
	require.NoError(t, hub.Broadcast(models.MessageScanResult, result))

	for _, ws := range []*websocket.Conn{first, second} {
		env := receive(t, ws)
		assert.Equal(t, models.MessageScanResult, env.Type)
		var got models.ScanResult
		require.NoError(t, env.Decode(&got))
		assert.Equal(t, result.FilePath, got.FilePath)
	}
}

func TestServer_FixApplyIsBroadcastOnce(t *testing.T) {
	handler := &fakeHandler{response: models.FixResponse{Success: true}}
	_, url := startTestServer(t, handler, ServerOptions{})
	requester := dial(t, url, "http://localhost/")
	observer := dial(t, url, "http://localhost/")

	sendRequest(t, requester, models.MessageFixApply, testPayload())

	for _, ws := range []*websocket.Conn{requester, observer} {
		env := receive(t, ws)
		assert.Equal(t, models.MessageFixComplete, env.Type)
		var resp models.FixResponse
		require.NoError(t, env.Decode(&resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "alert-1", resp.AlertID)
	}

	handler.mu.Lock()
	require.Len(t, handler.applied, 1)
	assert.Equal(t, "b", *handler.applied[0].ReplacementContent)
	handler.mu.Unlock()
}

func TestServer_FixApplyFailureIsFixError(t *testing.T) {
	handler := &fakeHandler{response: models.FixResponse{Error: "changed", ErrorKind: models.FixErrorStale}}
	_, url := startTestServer(t, handler, ServerOptions{})
	ws := dial(t, url, "http://localhost/")

	sendRequest(t, ws, models.MessageFixApply, testPayload())

	env := receive(t, ws)
	assert.Equal(t, models.MessageFixError, env.Type)
	var resp models.FixResponse
	require.NoError(t, env.Decode(&resp))
	assert.Equal(t, models.FixErrorStale, resp.ErrorKind)
}

func TestServer_FixValidateRepliesToRequesterOnly(t *testing.T) {
	handler := &fakeHandler{preview: &models.FixPreview{AlertID: "alert-1", Insertions: 1, Deletions: 1}}
	hub, url := startTestServer(t, handler, ServerOptions{})
	requester := dial(t, url, "http://localhost/")
	observer := dial(t, url, "http://localhost/")

	sendRequest(t, requester, models.MessageFixValidate, testPayload())

	env := receive(t, requester)
	assert.Equal(t, models.MessageFixPreview, env.Type)
	var preview models.FixPreview
	require.NoError(t, env.Decode(&preview))
	assert.Equal(t, 1, preview.Insertions)

	// The observer's next message is the marker, not the preview.
	require.NoError(t, hub.Broadcast(models.MessageFileRemoved, models.FileRemoved{FilePath: "marker"}))
	assert.Equal(t, models.MessageFileRemoved, receive(t, observer).Type)
}

func TestServer_FixValidateErrorCarriesKind(t *testing.T) {
	handler := &fakeHandler{err: common.NewStaleContentError("/work/project/a.js")}
	_, url := startTestServer(t, handler, ServerOptions{})
	ws := dial(t, url, "http://localhost/")

	sendRequest(t, ws, models.MessageFixValidate, testPayload())

	env := receive(t, ws)
	assert.Equal(t, models.MessageFixError, env.Type)
	var resp models.FixResponse
	require.NoError(t, env.Decode(&resp))
	assert.Equal(t, models.FixErrorStale, resp.ErrorKind)
	assert.Equal(t, "alert-1", resp.AlertID)
}

func TestServer_MalformedPayloadIsValidationError(t *testing.T) {
	handler := &fakeHandler{}
	_, url := startTestServer(t, handler, ServerOptions{})
	ws := dial(t, url, "http://localhost/")

	require.NoError(t, websocket.JSON.Send(ws, map[string]any{
		"type":    "fix-apply",
		"payload": json.RawMessage(`{"alertId": 42}`),
	}))

	env := receive(t, ws)
	assert.Equal(t, models.MessageFixError, env.Type)
	var resp models.FixResponse
	require.NoError(t, env.Decode(&resp))
	assert.Equal(t, models.FixErrorValidation, resp.ErrorKind)
	assert.Empty(t, handler.applied)
}

func TestServer_UndecodableFrameIsValidationError(t *testing.T) {
	handler := &fakeHandler{preview: &models.FixPreview{AlertID: "alert-2"}}
	hub, url := startTestServer(t, handler, ServerOptions{})
	ws := dial(t, url, "http://localhost/")

	require.NoError(t, websocket.Message.Send(ws, "not json"))

	env := receive(t, ws)
	assert.Equal(t, models.MessageFixError, env.Type)
	var resp models.FixResponse
	require.NoError(t, env.Decode(&resp))
	assert.Equal(t, models.FixErrorValidation, resp.ErrorKind)
	assert.NotEmpty(t, resp.Error)

	// The connection survives and keeps serving requests.
	assert.Equal(t, 1, hub.Clients())
	sendRequest(t, ws, models.MessageFixValidate, models.FixPayload{AlertID: "alert-2", FilePath: "/work/project/a.js"})
	env = receive(t, ws)
	assert.Equal(t, models.MessageFixPreview, env.Type)
}

func TestServer_RejectsForeignOrigins(t *testing.T) {
	_, url := startTestServer(t, &fakeHandler{}, ServerOptions{})
	_, err := websocket.Dial(url, "", "https://evil.example.net")
	assert.Error(t, err)

	_, url = startTestServer(t, &fakeHandler{}, ServerOptions{AllowedOrigins: []string{"https://ide.example.net"}})
	dial(t, url, "https://ide.example.net")
	_, err = websocket.Dial(url, "", "http://localhost/")
	assert.Error(t, err)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, url := startTestServer(t, &fakeHandler{}, ServerOptions{})
	ws := dial(t, url, "http://localhost/")
	require.Equal(t, 1, hub.Clients())

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 3*time.Second, 10*time.Millisecond)

	// Broadcasting with nobody connected is fine.
	assert.NoError(t, hub.Broadcast(models.MessageScanResult, models.NewScanResult("x")))
}
