// Package server delivers lines to registered clients through the Hub, which
// snapshots the Registry and performs all writes outside its lock.
package server

import (
	"log/slog"
)

// Hub routes outgoing lines to clients resolved through the Registry.
// Delivery is best effort: a failed write is logged and counted, never returned.
type Hub struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *Metrics
}

// NewHub creates a Hub over registry. logger and metrics may be nil.
func NewHub(registry *Registry, logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

// Broadcast writes line to every client registered when it is called and
// returns how many writes succeeded. Clients that join or leave during the
// call may or may not receive the line.
func (h *Hub) Broadcast(line string) int {
	return h.broadcastToClients(h.registry.Snapshot(), line)
}

// broadcastToClients sends line to each client in order; one failure does not
// stop delivery to the rest.
func (h *Hub) broadcastToClients(clients []*Client, line string) int {
	delivered := 0
	for _, client := range clients {
		if h.send(client, line) {
			delivered++
		}
	}
	return delivered
}

// send writes a single line and swallows the error.
func (h *Hub) send(client *Client, line string) bool {
	if err := client.WriteLine(line); err != nil {
		h.logger.Debug("line delivery failed", "session", client.ID(), "addr", client.Addr(), "err", err)
		h.metrics.deliveryFailed()
		return false
	}
	return true
}

// Whisper delivers cmd to its target and confirms to the sender. Invalid
// commands and unknown targets produce a single reply to the sender. It
// reports whether the target received the message.
func (h *Hub) Whisper(sender *Client, cmd Command) bool {
	if !cmd.Valid {
		h.metrics.messageRouted(kindWhisperRejected)
		h.send(sender, whisperUsageLine)
		return false
	}

	target, found := h.registry.LookupClient(cmd.Target)
	if !found {
		h.metrics.messageRouted(kindWhisperRejected)
		h.send(sender, targetNotFoundLine(cmd.Target))
		return false
	}

	senderNick, ok := h.registry.LookupNickname(sender)
	if !ok {
		senderNick = unknownSender
	}

	h.metrics.messageRouted(kindWhisper)
	delivered := h.send(target, whisperLine(senderNick, cmd.Text))
	h.send(sender, whisperSentLine(senderNick, cmd.Target, cmd.Text))
	return delivered
}

// shutdownClients sends notice to every registered client and closes it.
// It returns the number of clients it closed.
func (h *Hub) shutdownClients(notice string) int {
	clients := h.registry.Snapshot()

	for _, client := range clients {
		h.send(client, notice)
		if err := client.Close(); err != nil {
			h.logger.Debug("close during shutdown failed", "session", client.ID(), "err", err)
		}
	}

	h.logger.Info("closed client connections", "count", len(clients))
	return len(clients)
}
