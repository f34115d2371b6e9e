// Package server exposes the admin HTTP handlers: health checks, the session
// listing, the websocket gateway into the chat and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handlers serves the admin HTTP surface of a chat Server.
type Handlers struct {
	server   *Server
	origins  *originPolicy
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandlers creates the HTTP handlers for srv. Websocket upgrades are
// accepted only from cfg.AllowedOrigins.
func NewHandlers(srv *Server, cfg *Config) *Handlers {
	if cfg == nil {
		cfg = NewConfig()
	}
	h := &Handlers{
		server:  srv,
		origins: newOriginPolicy(cfg.AllowedOrigins),
		logger:  srv.logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handlers) checkOrigin(r *http.Request) bool {
	if h.origins.isAllowed(r) {
		return true
	}

	h.logger.Warn("blocked websocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
	return false
}

// Health responds with a plain text message while the chat server accepts connections.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	select {
	case <-h.server.Done():
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprint(w, "Chat server is shutting down")
	default:
		_, _ = fmt.Fprint(w, "Chat server is running!")
	}
}

// sessionsResponse is the JSON body of the session listing.
type sessionsResponse struct {
	Count     int      `json:"count"`
	Nicknames []string `json:"nicknames"`
}

// Sessions lists the nicknames of all live sessions.
func (h *Handlers) Sessions(w http.ResponseWriter, _ *http.Request) {
	names := h.server.Registry().Nicknames()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sessionsResponse{Count: len(names), Nicknames: names}); err != nil {
		h.logger.Warn("encoding session list failed", "err", err)
	}
}

// WebSocket upgrades the request and runs a chat session over it: the same
// nickname handshake and commands as a TCP client, one line per frame.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	h.server.ServeConn(r.Context(), newWSStream(conn), r.RemoteAddr)
}

// TestPage serves an HTML page for chatting through the websocket gateway.
func (h *Handlers) TestPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		h.logger.Warn("writing test page failed", "err", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Gateway Test</title>
    <style>
        body { font-family: monospace; margin: 20px; }
        #lines { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; }
        input[type="text"] { width: 400px; padding: 5px; }
    </style>
</head>
<body>
    <h1>Chat Gateway Test</h1>
    <div id="lines"></div>
    <input type="text" id="input" placeholder="Type a line and press Enter...">
    <script>
        const lines = document.getElementById('lines');
        const input = document.getElementById('input');
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');

        function addLine(text) {
            const el = document.createElement('div');
            el.textContent = text;
            lines.appendChild(el);
            lines.scrollTop = lines.scrollHeight;
        }

        ws.onmessage = function(event) { addLine(event.data); };
        ws.onclose = function() { addLine('[connection closed]'); };

        input.addEventListener('keypress', function(e) {
            if (e.key === 'Enter' && ws.readyState === WebSocket.OPEN) {
                ws.send(input.value);
                input.value = '';
            }
        });
    </script>
</body>
</html>`
