package server

import (
	"context"
	"log/slog"
)

// serveClient runs one connection from handshake to cleanup. The deferred
// cleanup is the only place the client is unregistered and closed.
func (s *Server) serveClient(ctx context.Context, c *Client) {
	ctx, span := s.startSessionSpan(ctx, c)
	logger := s.logger.With("session", c.ID(), "addr", c.Addr())

	var (
		nickname string
		outcome  = OutcomeNormal
		readErr  error
	)
	defer func() {
		s.endSession(logger, c, outcome)
		endSessionSpan(span, nickname, outcome, readErr)
	}()

	nickname, err := s.handshake(c)
	if err != nil {
		outcome = readOutcome(err)
		logger.Info("handshake aborted", "err", err)
		return
	}

	logger = logger.With("nickname", nickname)
	logger.Info("session started")
	s.metrics.sessionStarted()

	outcome, readErr = s.route(ctx, c, logger)
}

// route reads lines until the session ends and dispatches each command.
func (s *Server) route(ctx context.Context, c *Client, logger *slog.Logger) (Outcome, error) {
	for {
		line, err := c.ReadLine()
		if err != nil {
			outcome := readOutcome(err)
			if outcome == OutcomeIOFailure {
				logger.Warn("read failed", "err", err)
			}
			return outcome, err
		}

		cmd := ParseCommand(line)
		switch cmd.Kind {
		case CommandEmpty:
			continue
		case CommandQuit:
			s.hub.send(c, closingLine)
			return OutcomeNormal, nil
		case CommandWhisper:
			s.whisper(ctx, c, cmd)
		case CommandBroadcast:
			sender, ok := s.registry.LookupNickname(c)
			if !ok {
				return OutcomeNormal, nil
			}
			s.metrics.messageRouted(kindBroadcast)
			s.hub.Broadcast(chatLine(sender, cmd.Text))
		}
	}
}

func (s *Server) whisper(ctx context.Context, c *Client, cmd Command) {
	_, span := s.startWhisperSpan(ctx, cmd)
	defer span.End()
	s.hub.Whisper(c, cmd)
}

// endSession unregisters c, announces the departure unless the server is
// shutting down, and closes the connection.
func (s *Server) endSession(logger *slog.Logger, c *Client, outcome Outcome) {
	nickname, registered := s.registry.Unregister(c)
	if registered && !s.shuttingDown.Load() {
		s.hub.Broadcast(leaveLine(nickname))
	}

	if err := c.Close(); err != nil {
		logger.Debug("close failed", "err", err)
	}

	if !registered {
		s.metrics.handshakeFailed()
		return
	}
	s.metrics.sessionEnded(outcome)
	logger.Info("session ended", "outcome", outcome.String())
}
