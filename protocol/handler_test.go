package protocol

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Centric-Mind-Ventures/excalidraw-room/domain"
)

type mockConn struct {
	id   string
	mu   sync.Mutex
	sent []domain.Message
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockConn) SendVolatile(msg domain.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return true
}

func (m *mockConn) Close() error { return nil }

type broadcastCall struct {
	senderID        string
	roomID          string
	payload         []byte
	iv              []byte
	containsAllData bool
}

type joinCall struct {
	senderID string
	roomID   string
}

type mockRelay struct {
	mu           sync.Mutex
	registered   []string
	unregistered []string
	joins        []joinCall
	broadcasts   []broadcastCall
	volatiles    []broadcastCall
	relayed      []domain.Message
}

func (m *mockRelay) Register(conn domain.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, conn.ID())
}

func (m *mockRelay) Unregister(conn domain.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregistered = append(m.unregistered, conn.ID())
}

func (m *mockRelay) JoinRoom(conn domain.Connection, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joins = append(m.joins, joinCall{senderID: conn.ID(), roomID: roomID})
}

func (m *mockRelay) Broadcast(sender domain.Connection, roomID string, payload, iv []byte, containsAllData bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, broadcastCall{sender.ID(), roomID, payload, iv, containsAllData})
}

func (m *mockRelay) BroadcastVolatile(sender domain.Connection, roomID string, payload, iv []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volatiles = append(m.volatiles, broadcastCall{sender.ID(), roomID, payload, iv, false})
}

func (m *mockRelay) RelayToAll(sender domain.Connection, msg domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relayed = append(m.relayed, msg)
}

func (m *mockRelay) Stats() (int, int) { return 0, 0 }

func encode(t *testing.T, msg domain.Message) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func TestHandler_Connect(t *testing.T) {
	relay := &mockRelay{}
	h := NewHandler(relay)
	conn := &mockConn{id: "c1"}

	h.Connect(conn)

	assert.Equal(t, []string{"c1"}, relay.registered)
	require.Len(t, conn.sent, 1)
	assert.Equal(t, domain.EventInitRoom, conn.sent[0].Type)
}

func TestHandler_Disconnect(t *testing.T) {
	relay := &mockRelay{}
	h := NewHandler(relay)
	conn := &mockConn{id: "c1"}

	h.Connect(conn)
	h.Disconnect(conn)

	assert.Equal(t, []string{"c1"}, relay.unregistered)
}

func TestHandler_JoinRoom(t *testing.T) {
	relay := &mockRelay{}
	h := NewHandler(relay)
	conn := &mockConn{id: "c1"}

	h.Handle(conn, encode(t, domain.Message{Type: domain.EventJoinRoom, RoomID: "r1"}))

	require.Len(t, relay.joins, 1)
	assert.Equal(t, joinCall{senderID: "c1", roomID: "r1"}, relay.joins[0])
}

func TestHandler_ServerBroadcast(t *testing.T) {
	relay := &mockRelay{}
	h := NewHandler(relay)
	conn := &mockConn{id: "c1"}

	h.Handle(conn, encode(t, domain.Message{
		Type:            domain.EventServerBroadcast,
		RoomID:          "r1",
		Payload:         []byte("scene"),
		IV:              []byte("iv"),
		ContainsAllData: true,
	}))

	require.Len(t, relay.broadcasts, 1)
	call := relay.broadcasts[0]
	assert.Equal(t, "c1", call.senderID)
	assert.Equal(t, "r1", call.roomID)
	assert.Equal(t, []byte("scene"), call.payload)
	assert.Equal(t, []byte("iv"), call.iv)
	assert.True(t, call.containsAllData)
}

func TestHandler_VolatileBroadcast(t *testing.T) {
	relay := &mockRelay{}
	h := NewHandler(relay)
	conn := &mockConn{id: "c1"}

	h.Handle(conn, encode(t, domain.Message{
		Type:    domain.EventServerVolatile,
		RoomID:  "r1",
		Payload: []byte("cursor"),
		IV:      []byte("iv"),
	}))

	require.Len(t, relay.volatiles, 1)
	assert.Equal(t, "r1", relay.volatiles[0].roomID)
	assert.Empty(t, relay.broadcasts)
}

func TestHandler_SessionSignals(t *testing.T) {
	slot := 2
	tests := []struct {
		name string
		msg  domain.Message
	}{
		{"slot selected", domain.Message{Type: domain.EventSlotSelected, SlotIndex: &slot, SessionID: "s1"}},
		{"session started", domain.Message{Type: domain.EventSessionStarted, SessionID: "s1"}},
		{"session logout", domain.Message{Type: domain.EventSessionLogout, SessionID: "s1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := &mockRelay{}
			h := NewHandler(relay)
			conn := &mockConn{id: "c1"}

			h.Handle(conn, encode(t, tt.msg))

			require.Len(t, relay.relayed, 1)
			got := relay.relayed[0]
			assert.Equal(t, tt.msg.Type, got.Type)
			assert.Equal(t, "s1", got.SessionID)
			if tt.msg.SlotIndex != nil {
				require.NotNil(t, got.SlotIndex)
				assert.Equal(t, slot, *got.SlotIndex)
			}
		})
	}
}

func TestHandler_MalformedEvents(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"invalid json", []byte("not json")},
		{"join without room", []byte(`{"type":"join-room"}`)},
		{"broadcast without room", []byte(`{"type":"server-broadcast","payload":"aGk="}`)},
		{"volatile without room", []byte(`{"type":"server-volatile-broadcast"}`)},
		{"slot without index", []byte(`{"type":"slotSelected","sessionId":"s1"}`)},
		{"slot without session", []byte(`{"type":"slotSelected","slotIndex":1}`)},
		{"session start without id", []byte(`{"type":"sessionStartedByTeacher"}`)},
		{"unknown event", []byte(`{"type":"made-up-event"}`)},
		{"client-sent disconnect", []byte(`{"type":"disconnect"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := &mockRelay{}
			h := NewHandler(relay)
			conn := &mockConn{id: "c1"}

			h.Handle(conn, tt.data)

			assert.Empty(t, relay.joins)
			assert.Empty(t, relay.broadcasts)
			assert.Empty(t, relay.volatiles)
			assert.Empty(t, relay.relayed)
			assert.Empty(t, relay.unregistered, "malformed events must not disconnect the sender")
		})
	}
}
