package server

import (
	"bytes"
	"io"
	"time"

	"github.com/gorilla/websocket"
)

// wsStream presents a websocket connection as a newline-delimited byte
// stream: each text or binary frame read becomes one line and each line
// written becomes one text frame.
type wsStream struct {
	conn    *websocket.Conn
	pending []byte
}

// newWSStream wraps conn and clears the read deadline inherited from the
// HTTP server, since chat sessions may sit idle indefinitely.
func newWSStream(conn *websocket.Conn) *wsStream {
	_ = conn.SetReadDeadline(time.Time{})
	return &wsStream{conn: conn}
}

func (w *wsStream) Read(p []byte) (int, error) {
	for len(w.pending) == 0 {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				return 0, io.EOF
			}
			return 0, err
		}
		w.pending = append(data, '\n')
	}

	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

func (w *wsStream) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.TextMessage, bytes.TrimSuffix(p, []byte{'\n'})); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsStream) SetWriteDeadline(t time.Time) error {
	return w.conn.SetWriteDeadline(t)
}

// Close sends a close frame on a best-effort basis, then closes the socket.
func (w *wsStream) Close() error {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	return w.conn.Close()
}
