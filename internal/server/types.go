// Package server defines the wire lines, session outcomes and utility helpers
// that are reused across client, hub and session logic.
package server

import (
	"errors"
	"io"
	"net"
	"strings"
)

// DefaultNickname is the base name used when a client answers the nickname
// prompt with an empty line.
const DefaultNickname = "user"

// QuitCommand ends a client session, or the whole server when typed on the
// admin console.
const QuitCommand = "/quit"

const (
	whisperPrefix = "/w "
	unknownSender = "unknown"

	promptLine       = "Enter your nickname:"
	helpChatLine     = "Info: plain messages are sent to everyone."
	helpCommandsLine = "Info: type /quit to leave, /w <nickname> <message> to whisper."
	whisperUsageLine = "Usage: /w <nickname> <message>"
	closingLine      = "Closing connection."
	shutdownLine     = "Server is shutting down."
)

func confirmLine(nickname string) string {
	return "Your nickname is [" + nickname + "]."
}

func joinLine(nickname string) string {
	return "[" + nickname + "] joined"
}

func leaveLine(nickname string) string {
	return "[" + nickname + "] left"
}

func chatLine(sender, message string) string {
	return sender + "> " + message
}

func whisperLine(sender, message string) string {
	return "(whisper) " + sender + "> " + message
}

func whisperSentLine(sender, target, message string) string {
	return "(whisper sent) " + sender + " -> " + target + ": " + message
}

func targetNotFoundLine(target string) string {
	return "User [" + target + "] not found."
}

// Outcome tells the cleanup step how a session loop ended.
type Outcome int

const (
	// OutcomeNormal covers the quit command and sessions removed by the server.
	OutcomeNormal Outcome = iota
	// OutcomePeerClosed means the peer closed its side of the stream.
	OutcomePeerClosed
	// OutcomeIOFailure means a read failed for any other reason.
	OutcomeIOFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNormal:
		return "normal"
	case OutcomePeerClosed:
		return "peer_closed"
	case OutcomeIOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

// readOutcome maps a read error to the outcome of the session.
func readOutcome(err error) Outcome {
	if isExpectedCloseError(err) {
		return OutcomePeerClosed
	}
	return OutcomeIOFailure
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "broken pipe")
}
