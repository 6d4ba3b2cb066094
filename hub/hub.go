// Package hub holds the room registry and everything that fans out through
// it: presence notifications, reliable and volatile broadcasts, and the
// process-wide session control relay.
package hub

import (
	"log/slog"
	"sync"

	"github.com/Centric-Mind-Ventures/excalidraw-room/domain"
	"github.com/Centric-Mind-Ventures/excalidraw-room/metrics"
)

type room struct {
	mu       sync.Mutex
	members  map[string]domain.Connection
	snapshot *domain.Snapshot
}

func newRoom() *room {
	return &room{members: make(map[string]domain.Connection)}
}

// memberIDs must be called with the room lock held.
func (r *room) memberIDs() []string {
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// Hub tracks every connection and every room in the process. The outer
// RWMutex guards the maps; each room carries its own lock serializing
// membership changes, snapshot updates, and fan-out enqueue for that room.
// Lock order is hub then room, and the room lock is taken before the hub
// lock is released, so a join can never interleave with a half-applied
// disconnect to the same room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	conns  map[string]domain.Connection
	joined map[string]map[string]struct{} // connection id -> room ids
}

func New() *Hub {
	return &Hub{
		rooms:  make(map[string]*room),
		conns:  make(map[string]domain.Connection),
		joined: make(map[string]map[string]struct{}),
	}
}

// Register adds a connection to the process-wide set.
func (h *Hub) Register(conn domain.Connection) {
	h.mu.Lock()
	h.conns[conn.ID()] = conn
	count := len(h.conns)
	h.mu.Unlock()

	metrics.ConnectedClients.Inc()
	slog.Info("client connected", "clientId", conn.ID(), "clients", count)
}

// Unregister removes a connection from every room it joined, notifying the
// remaining members of each, then drops it from the process-wide set. It
// holds the hub lock across the room cleanups so a concurrent join never
// observes the departing connection in a member list.
func (h *Hub) Unregister(conn domain.Connection) {
	id := conn.ID()

	h.mu.Lock()
	if _, ok := h.conns[id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, id)
	count := len(h.conns)

	for roomID := range h.joined[id] {
		rm := h.rooms[roomID]
		if rm == nil {
			continue
		}
		rm.mu.Lock()
		delete(rm.members, id)
		if len(rm.members) == 0 {
			delete(h.rooms, roomID)
			metrics.ActiveRooms.Dec()
			slog.Debug("room emptied", "room", roomID)
		} else {
			change := domain.Message{Type: domain.EventRoomUserChange, Members: rm.memberIDs()}
			for _, m := range rm.members {
				h.deliver(m, change)
			}
		}
		rm.mu.Unlock()
	}
	delete(h.joined, id)
	h.mu.Unlock()

	metrics.ConnectedClients.Dec()
	slog.Info("client disconnected", "clientId", id, "clients", count)
}

// JoinRoom adds the connection to the room and runs the presence sequence:
// first-in-room to a sole member, new-user to everyone else otherwise, the
// cached snapshot to the joiner if one exists, and room-user-change to the
// whole room. Rejoining is a membership no-op but re-runs the sequence.
func (h *Hub) JoinRoom(conn domain.Connection, roomID string) {
	id := conn.ID()

	h.mu.Lock()
	rm := h.rooms[roomID]
	if rm == nil {
		rm = newRoom()
		h.rooms[roomID] = rm
		metrics.ActiveRooms.Inc()
	}
	set := h.joined[id]
	if set == nil {
		set = make(map[string]struct{})
		h.joined[id] = set
	}
	set[roomID] = struct{}{}
	rm.mu.Lock()
	h.mu.Unlock()
	defer rm.mu.Unlock()

	rm.members[id] = conn
	slog.Debug("client joined room", "room", roomID, "clientId", id, "members", len(rm.members))

	if len(rm.members) == 1 {
		h.deliver(conn, domain.Message{Type: domain.EventFirstInRoom})
	} else {
		newUser := domain.Message{Type: domain.EventNewUser, UserID: id}
		for mid, m := range rm.members {
			if mid == id {
				continue
			}
			h.deliver(m, newUser)
		}
	}

	if rm.snapshot != nil {
		slog.Debug("sending snapshot", "room", roomID, "bytes", len(rm.snapshot.Payload))
		h.deliver(conn, domain.Message{
			Type:    domain.EventClientBroadcast,
			Payload: rm.snapshot.Payload,
			IV:      rm.snapshot.IV,
		})
	}

	change := domain.Message{Type: domain.EventRoomUserChange, Members: rm.memberIDs()}
	for _, m := range rm.members {
		h.deliver(m, change)
	}
}

// LeaveRoom removes the connection from one room, notifying the remaining
// members. Leaving a room it never joined, or an unknown room, is a no-op.
func (h *Hub) LeaveRoom(conn domain.Connection, roomID string) {
	id := conn.ID()

	h.mu.Lock()
	defer h.mu.Unlock()

	if set := h.joined[id]; set != nil {
		delete(set, roomID)
	}
	rm := h.rooms[roomID]
	if rm == nil {
		return
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.members[id]; !ok {
		return
	}
	delete(rm.members, id)
	if len(rm.members) == 0 {
		delete(h.rooms, roomID)
		metrics.ActiveRooms.Dec()
		slog.Debug("room emptied", "room", roomID)
		return
	}
	change := domain.Message{Type: domain.EventRoomUserChange, Members: rm.memberIDs()}
	for _, m := range rm.members {
		h.deliver(m, change)
	}
}

// Stats reports active room and connected client counts.
func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms), len(h.conns)
}

// deliver queues a message on the reliable path. A connection whose buffer
// is full is not keeping up; it gets closed and reader teardown handles the
// rest of the cleanup.
func (h *Hub) deliver(conn domain.Connection, msg domain.Message) {
	if err := conn.Send(msg); err != nil {
		slog.Warn("dropping slow client", "clientId", conn.ID(), "error", err)
		go conn.Close()
	}
}
