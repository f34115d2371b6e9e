package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lineTimeout = 2 * time.Second

// testServer is a chat server listening on a loopback port.
type testServer struct {
	*Server
	addr     string
	serveErr chan error
}

func startServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := NewConfig()
	cfg.AcceptTimeout = 50 * time.Millisecond
	srv := New(cfg, opts...)

	ts := &testServer{Server: srv, addr: ln.Addr().String(), serveErr: make(chan error, 1)}
	go func() {
		ts.serveErr <- srv.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = srv.Shutdown(lineTimeout)
	})
	return ts
}

// lineClient is a raw TCP chat client.
type lineClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dialChat(t *testing.T, addr string) *lineClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, lineTimeout)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &lineClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *lineClient) readLine() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(lineTimeout)))
	line, err := c.reader.ReadString('\n')
	require.NoError(c.t, err, "partial read %q", line)
	return strings.TrimSuffix(line, "\n")
}

func (c *lineClient) expect(want string) {
	c.t.Helper()
	require.Equal(c.t, want, c.readLine())
}

func (c *lineClient) send(line string) {
	c.t.Helper()
	_, err := io.WriteString(c.conn, line+"\n")
	require.NoError(c.t, err)
}

// expectClosed asserts that the server closed the connection with no further lines.
func (c *lineClient) expectClosed() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(lineTimeout)))
	line, err := c.reader.ReadString('\n')
	require.Empty(c.t, line)
	require.Error(c.t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		require.False(c.t, netErr.Timeout(), "connection was not closed")
	}
}

// login completes the handshake asking for nickname and returns the assigned one.
func (c *lineClient) login(nickname string) string {
	c.t.Helper()
	c.expect(promptLine)
	c.send(nickname)

	confirm := c.readLine()
	require.True(c.t, strings.HasPrefix(confirm, "Your nickname is ["), confirm)
	assigned := strings.TrimSuffix(strings.TrimPrefix(confirm, "Your nickname is ["), "].")

	c.expect(joinLine(assigned))
	c.expect(helpChatLine)
	c.expect(helpCommandsLine)
	return assigned
}

func newPipeClient(t *testing.T) *Client {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})
	return NewClient(local, "pipe", 0, 0)
}

// counterValue and gaugeValue may run inside require.Eventually, so they
// report with assert rather than stopping the test goroutine.
func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	assert.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	assert.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}
