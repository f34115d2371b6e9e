package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const allowedOrigin = "http://localhost:8080"

func newAdminServer(t *testing.T, srv *testServer, gatherer prometheus.Gatherer) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(SetupRoutes(srv.Server, NewConfig(), gatherer))
	t.Cleanup(ts.Close)
	return ts
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthHandler(t *testing.T) {
	srv := startServer(t)
	admin := newAdminServer(t, srv, nil)

	for _, path := range []string{"/", "/healthz"} {
		status, body := getBody(t, admin.URL+path)
		assert.Equal(t, http.StatusOK, status, path)
		assert.Equal(t, "Chat server is running!", body, path)
	}

	require.NoError(t, srv.Shutdown(lineTimeout))
	status, body := getBody(t, admin.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "Chat server is shutting down", body)
}

func TestSessionsHandler(t *testing.T) {
	srv := startServer(t)
	admin := newAdminServer(t, srv, nil)

	status, body := getBody(t, admin.URL+"/sessions")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":0,"nicknames":[]}`, body)

	bob := dialChat(t, srv.addr)
	bob.login("bob")
	alice := dialChat(t, srv.addr)
	alice.login("alice")

	_, body = getBody(t, admin.URL+"/sessions")
	var got sessionsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, sessionsResponse{Count: 2, Nicknames: []string{"alice", "bob"}}, got)
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	srv := startServer(t, WithMetrics(NewMetrics(registry)))
	admin := newAdminServer(t, srv, registry)

	alice := dialChat(t, srv.addr)
	alice.login("alice")
	alice.send("hello")
	alice.expect("alice> hello")

	status, body := getBody(t, admin.URL+"/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "chat_active_sessions 1")
	assert.Contains(t, body, `chat_messages_total{kind="broadcast"} 1`)
}

func TestMetricsEndpointDisabledWithoutGatherer(t *testing.T) {
	srv := startServer(t)
	admin := newAdminServer(t, srv, nil)

	status, _ := getBody(t, admin.URL+"/metrics")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTestPageHandler(t *testing.T) {
	srv := startServer(t)
	admin := newAdminServer(t, srv, nil)

	status, body := getBody(t, admin.URL+"/test")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "new WebSocket(")
}

func dialGateway(t *testing.T, admin *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(admin.URL, "http") + "/ws"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(lineTimeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestWebSocketGatewayJoinsChat(t *testing.T) {
	srv := startServer(t)
	admin := newAdminServer(t, srv, nil)

	alice := dialChat(t, srv.addr)
	alice.login("alice")

	ws, resp, err := dialGateway(t, admin, allowedOrigin)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer ws.Close()

	assert.Equal(t, promptLine, readFrame(t, ws))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("alice")))
	assert.Equal(t, confirmLine("alice2"), readFrame(t, ws))
	assert.Equal(t, joinLine("alice2"), readFrame(t, ws))
	assert.Equal(t, helpChatLine, readFrame(t, ws))
	assert.Equal(t, helpCommandsLine, readFrame(t, ws))
	alice.expect(joinLine("alice2"))

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("from the browser")))
	alice.expect("alice2> from the browser")
	assert.Equal(t, "alice2> from the browser", readFrame(t, ws))

	alice.send("/w alice2 hey")
	assert.Equal(t, "(whisper) alice> hey", readFrame(t, ws))
	alice.expect("(whisper sent) alice -> alice2: hey")

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	alice.expect(leaveLine("alice2"))
}

func TestWebSocketGatewayRejectsOrigins(t *testing.T) {
	srv := startServer(t)
	admin := newAdminServer(t, srv, nil)

	for _, origin := range []string{"", "http://evil.example", "http://localhost:9090"} {
		ws, resp, err := dialGateway(t, admin, origin)
		require.Error(t, err, "origin %q", origin)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "origin %q", origin)
		_ = resp.Body.Close()
		if ws != nil {
			_ = ws.Close()
		}
	}
	assert.Zero(t, srv.Registry().Len())
}

func TestWebSocketGatewayReceivesShutdownNotice(t *testing.T) {
	srv := startServer(t)
	admin := newAdminServer(t, srv, nil)

	ws, resp, err := dialGateway(t, admin, allowedOrigin)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer ws.Close()

	assert.Equal(t, promptLine, readFrame(t, ws))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("webby")))
	for j := 0; j < 4; j++ {
		readFrame(t, ws)
	}

	require.NoError(t, srv.Shutdown(lineTimeout))
	assert.Equal(t, shutdownLine, readFrame(t, ws))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(lineTimeout)))
	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
