package status

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxReadBytes = 64 * 1024
	sendQueue    = 64
)

// client is one websocket connection with its own writer goroutine.
type client struct {
	id     int64
	hub    *Hub
	conn   *websocket.Conn
	sendCh chan any
	done   chan struct{}
	once   sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, id int64) *client {
	return &client{
		id:     id,
		hub:    h,
		conn:   conn,
		sendCh: make(chan any, sendQueue),
		done:   make(chan struct{}),
	}
}

// Send queues msg, dropping it when the client is not keeping up.
func (c *client) Send(msg any) {
	select {
	case <-c.done:
	case c.sendCh <- msg:
	default:
		c.hub.log.Debug("dropping message to websocket client %d", c.id)
	}
}

func (c *client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.Close()
	}()
	c.conn.SetReadLimit(maxReadBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket read: %v", err)
			}
			return
		}
		var req rpcRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.Send(rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "Parse error"}})
			continue
		}
		c.Send(c.hub.respond(req))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
