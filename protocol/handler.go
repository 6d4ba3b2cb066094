// Package protocol maps inbound client events onto relay operations.
package protocol

import (
	"encoding/json"
	"log/slog"

	"github.com/Centric-Mind-Ventures/excalidraw-room/domain"
)

type Handler struct {
	relay domain.Relay
}

func NewHandler(relay domain.Relay) *Handler {
	return &Handler{relay: relay}
}

// Connect registers the connection and greets it with init-room.
func (h *Handler) Connect(conn domain.Connection) {
	h.relay.Register(conn)
	if err := conn.Send(domain.Message{Type: domain.EventInitRoom}); err != nil {
		slog.Warn("init-room send failed", "clientId", conn.ID(), "error", err)
		conn.Close()
	}
}

// Handle dispatches one inbound event. Malformed events are logged and
// dropped; the connection stays up.
func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("invalid message", "clientId", conn.ID(), "error", err)
		return
	}

	switch msg.Type {
	case domain.EventJoinRoom:
		if msg.RoomID == "" {
			slog.Warn("join-room without roomId", "clientId", conn.ID())
			return
		}
		h.relay.JoinRoom(conn, msg.RoomID)

	case domain.EventServerBroadcast:
		if msg.RoomID == "" {
			slog.Warn("broadcast without roomId", "clientId", conn.ID())
			return
		}
		slog.Debug("relaying update", "clientId", conn.ID(), "room", msg.RoomID, "full", msg.ContainsAllData)
		h.relay.Broadcast(conn, msg.RoomID, msg.Payload, msg.IV, msg.ContainsAllData)

	case domain.EventServerVolatile:
		if msg.RoomID == "" {
			slog.Warn("volatile broadcast without roomId", "clientId", conn.ID())
			return
		}
		h.relay.BroadcastVolatile(conn, msg.RoomID, msg.Payload, msg.IV)

	case domain.EventSlotSelected:
		if msg.SlotIndex == nil || msg.SessionID == "" {
			slog.Warn("slotSelected missing arguments", "clientId", conn.ID())
			return
		}
		h.relay.RelayToAll(conn, domain.Message{
			Type:      domain.EventSlotSelected,
			SlotIndex: msg.SlotIndex,
			SessionID: msg.SessionID,
		})

	case domain.EventSessionStarted, domain.EventSessionLogout:
		if msg.SessionID == "" {
			slog.Warn("session signal missing sessionId", "clientId", conn.ID(), "type", msg.Type)
			return
		}
		h.relay.RelayToAll(conn, domain.Message{Type: msg.Type, SessionID: msg.SessionID})

	default:
		slog.Warn("unknown event", "clientId", conn.ID(), "type", msg.Type)
	}
}

// Disconnect runs per-room departure notifications and final teardown.
// After it returns the relay holds no trace of the connection.
func (h *Handler) Disconnect(conn domain.Connection) {
	h.relay.Unregister(conn)
}
