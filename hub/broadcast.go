package hub

import (
	"log/slog"

	"github.com/Centric-Mind-Ventures/excalidraw-room/domain"
	"github.com/Centric-Mind-Ventures/excalidraw-room/metrics"
)

// Broadcast relays an encrypted update to every member of the room except
// the sender on the reliable path. When containsAllData is set the payload
// is recorded as the room's snapshot before fan-out, under the same room
// lock, so no joiner can ever see a broadcast newer than its bootstrap
// snapshot. A room with no members is a no-op.
func (h *Hub) Broadcast(sender domain.Connection, roomID string, payload, iv []byte, containsAllData bool) {
	rm := h.lookupLocked(roomID)
	if rm == nil {
		return
	}
	defer rm.mu.Unlock()

	if containsAllData {
		rm.snapshot = &domain.Snapshot{Payload: payload, IV: iv}
		slog.Debug("storing snapshot", "room", roomID, "bytes", len(payload))
	}

	msg := domain.Message{Type: domain.EventClientBroadcast, Payload: payload, IV: iv}
	for id, m := range rm.members {
		if id == sender.ID() {
			continue
		}
		h.deliver(m, msg)
	}
	metrics.BroadcastsRelayed.WithLabelValues("reliable").Inc()
}

// BroadcastVolatile relays an update on the best-effort path: a recipient
// that cannot take the message immediately simply misses it. The snapshot
// cache is never touched.
func (h *Hub) BroadcastVolatile(sender domain.Connection, roomID string, payload, iv []byte) {
	rm := h.lookupLocked(roomID)
	if rm == nil {
		return
	}
	defer rm.mu.Unlock()

	msg := domain.Message{Type: domain.EventClientBroadcast, Payload: payload, IV: iv}
	for id, m := range rm.members {
		if id == sender.ID() {
			continue
		}
		if !m.SendVolatile(msg) {
			metrics.VolatileDropped.Inc()
		}
	}
	metrics.BroadcastsRelayed.WithLabelValues("volatile").Inc()
}

// RecordSnapshot replaces the cached snapshot for a room. A room with no
// members has no snapshot slot; recording into one is a no-op.
func (h *Hub) RecordSnapshot(roomID string, payload, iv []byte) {
	rm := h.lookupLocked(roomID)
	if rm == nil {
		return
	}
	defer rm.mu.Unlock()
	rm.snapshot = &domain.Snapshot{Payload: payload, IV: iv}
}

// lookupLocked returns the room with its lock held, or nil if the room has
// no members. The room lock is taken before the hub lock is released so the
// room cannot be garbage-collected out from under the caller.
func (h *Hub) lookupLocked(roomID string) *room {
	h.mu.RLock()
	rm := h.rooms[roomID]
	if rm == nil {
		h.mu.RUnlock()
		return nil
	}
	rm.mu.Lock()
	h.mu.RUnlock()
	return rm
}
