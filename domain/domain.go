package domain

// Inbound event types.
const (
	EventJoinRoom        = "join-room"
	EventServerBroadcast = "server-broadcast"
	EventServerVolatile  = "server-volatile-broadcast"
	EventSlotSelected    = "slotSelected"
	EventSessionStarted  = "sessionStartedByTeacher"
	EventSessionLogout   = "sessionLogoutByTeacher"
)

// Outbound event types.
const (
	EventInitRoom        = "init-room"
	EventFirstInRoom     = "first-in-room"
	EventNewUser         = "new-user"
	EventClientBroadcast = "client-broadcast"
	EventRoomUserChange  = "room-user-change"
)

// Message is the JSON envelope exchanged with clients. Payload and IV are
// opaque to the relay; clients encrypt end to end.
type Message struct {
	Type            string   `json:"type"`
	RoomID          string   `json:"roomId,omitempty"`
	Payload         []byte   `json:"payload,omitempty"`
	IV              []byte   `json:"iv,omitempty"`
	ContainsAllData bool     `json:"containsAllData,omitempty"`
	SlotIndex       *int     `json:"slotIndex,omitempty"`
	SessionID       string   `json:"sessionId,omitempty"`
	UserID          string   `json:"userId,omitempty"`
	Members         []string `json:"members,omitempty"`
}

// Snapshot is the most recent full-state payload recorded for a room, used
// to bootstrap late joiners.
type Snapshot struct {
	Payload []byte
	IV      []byte
}

// Connection is one client channel. Send queues a message for delivery and
// reports an error when the connection can no longer keep up; SendVolatile
// delivers only if it can do so immediately and reports whether it did.
type Connection interface {
	ID() string
	Send(msg Message) error
	SendVolatile(msg Message) bool
	Close() error
}

// Relay is the room membership and fan-out core.
type Relay interface {
	Register(conn Connection)
	Unregister(conn Connection)
	JoinRoom(conn Connection, roomID string)
	Broadcast(sender Connection, roomID string, payload, iv []byte, containsAllData bool)
	BroadcastVolatile(sender Connection, roomID string, payload, iv []byte)
	RelayToAll(sender Connection, msg Message)
	Stats() (rooms, clients int)
}

// MessageHandler dispatches transport events into the relay.
type MessageHandler interface {
	Connect(conn Connection)
	Handle(conn Connection, data []byte)
	Disconnect(conn Connection)
}
