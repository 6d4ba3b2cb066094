// Package websocket adapts a gorilla websocket connection to the relay's
// Connection interface.
package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Centric-Mind-Ventures/excalidraw-room/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // full encrypted scenes can be large
)

var errBufferFull = errors.New("send buffer full")

type Conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	handler domain.MessageHandler
}

func NewConn(id string, ws *websocket.Conn, h domain.MessageHandler) *Conn {
	return &Conn{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, 256),
		handler: h,
	}
}

func (c *Conn) ID() string { return c.id }

// Send queues a message for ordered delivery. A full buffer means the
// client is not draining; the caller decides what to do with it.
func (c *Conn) Send(msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errBufferFull
	}
}

// SendVolatile queues a message only if there is room right now.
func (c *Conn) SendVolatile(msg domain.Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// Start announces the connection to the relay and runs the pumps.
func (c *Conn) Start() {
	c.handler.Connect(c)
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.handler.Disconnect(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "clientId", c.id, "error", err)
			}
			return
		}

		c.handler.Handle(c, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
