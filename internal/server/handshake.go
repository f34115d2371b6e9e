package server

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrHandshakeAborted is returned when a connection ends before it gets a nickname.
var ErrHandshakeAborted = errors.New("server: handshake aborted")

// handshake prompts for a nickname, registers the client under a unique
// variant of it and announces the join. On error the client is not registered.
func (s *Server) handshake(c *Client) (string, error) {
	s.hub.send(c, promptLine)

	line, err := c.ReadLine()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHandshakeAborted, err)
	}
	if s.shuttingDown.Load() {
		return "", fmt.Errorf("%w: %w", ErrHandshakeAborted, ErrServerClosed)
	}

	base := sanitizeNickname(line)
	if base == "" {
		base = s.cfg.DefaultNickname
	}

	nickname, err := s.registry.Reserve(c, base)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHandshakeAborted, err)
	}

	s.hub.send(c, confirmLine(nickname))
	s.hub.Broadcast(joinLine(nickname))
	s.hub.send(c, helpChatLine)
	s.hub.send(c, helpCommandsLine)
	return nickname, nil
}

// sanitizeNickname trims the requested name and drops non-printable runes.
func sanitizeNickname(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, raw)
	return strings.TrimSpace(cleaned)
}
