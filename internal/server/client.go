// Package server wraps individual peer streams in Client values that handle
// line framing, serialized writes and idempotent close.
package server

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// writeDeadliner is implemented by net.Conn and by the websocket stream.
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Client represents one connected peer. ReadLine must only be called from the
// goroutine that owns the session; WriteLine and Close are safe from any goroutine.
type Client struct {
	id           string
	addr         string
	conn         io.ReadWriteCloser
	scanner      *bufio.Scanner
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewClient creates a Client over the given stream. Lines longer than
// maxLineSize bytes fail the read. A zero writeTimeout disables write deadlines.
func NewClient(conn io.ReadWriteCloser, addr string, maxLineSize int, writeTimeout time.Duration) *Client {
	if maxLineSize <= 0 {
		maxLineSize = defaultMaxLineSize
	}
	initial := 1024
	if maxLineSize < initial {
		initial = maxLineSize
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, initial), maxLineSize)

	return &Client{
		id:           uuid.NewString(),
		addr:         addr,
		conn:         conn,
		scanner:      scanner,
		writeTimeout: writeTimeout,
	}
}

// ID returns the session identifier used in logs and traces.
func (c *Client) ID() string {
	return c.id
}

// Addr returns the remote address the client connected from.
func (c *Client) Addr() string {
	return c.addr
}

// ReadLine blocks until the next line arrives and returns it without the line
// terminator. Invalid UTF-8 bytes are dropped. io.EOF means the peer closed
// the stream; a final unterminated line is still returned before that.
func (c *Client) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return decodeLine(c.scanner.Bytes()), nil
}

// WriteLine writes line followed by a newline. Concurrent callers never
// interleave within a line.
func (c *Client) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if d, ok := c.conn.(writeDeadliner); ok && c.writeTimeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

// Close closes the underlying stream once. Later calls are no-ops and return nil.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	if isExpectedCloseError(err) {
		return nil
	}
	return err
}

// decodeLine converts raw bytes to a string, dropping sequences that are not
// valid UTF-8.
func decodeLine(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}
