package hub

import (
	"log/slog"

	"github.com/Centric-Mind-Ventures/excalidraw-room/domain"
)

// RelayToAll passes a session control signal verbatim to every connection
// in the process except the sender. Nothing is read or written in the
// registry; a failed delivery affects only that recipient.
func (h *Hub) RelayToAll(sender domain.Connection, msg domain.Message) {
	h.mu.RLock()
	targets := make([]domain.Connection, 0, len(h.conns))
	for id, c := range h.conns {
		if id == sender.ID() {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	slog.Debug("relaying session signal", "type", msg.Type, "sessionId", msg.SessionID, "recipients", len(targets))
	for _, c := range targets {
		h.deliver(c, msg)
	}
}
