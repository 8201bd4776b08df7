package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ropix/pkg/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are small control messages; chunk data only ever
	// flows server → client.
	maxInboundSize = 64 * 1024

	// Outbound queue per connection. A full queue means the receiver has
	// stopped draining mid-transfer; the connection is closed rather than
	// letting one slow peer apply back-pressure to the hub.
	sendQueueSize = 1024
)

type client struct {
	id   types.ConnectionID
	hub  *Hub
	sock *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// enqueue queues a pre-marshaled frame for delivery. Never blocks: frames
// for a dead connection are dropped, and a peer that cannot keep up gets
// its connection torn down.
func (c *client) enqueue(frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- frame:
	default:
		c.hub.logger.Warn("send queue overflow, dropping connection",
			zap.String("connection", string(c.id)))
		c.close()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump consumes inbound frames and hands them to the hub's handler.
// Runs on the connection's HTTP handler goroutine and returns when the
// connection dies, triggering cleanup.
func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.close()
		c.sock.Close()
	}()

	c.sock.SetReadLimit(maxInboundSize)
	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		c.sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("read error", zap.String("connection", string(c.id)), zap.Error(err))
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.hub.logger.Debug("malformed frame", zap.String("connection", string(c.id)))
			continue
		}
		c.hub.handler.OnMessage(c.id, env.Event, env.Data)
	}
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings. One writer goroutine per connection preserves the
// per-connection delivery order the transfer protocol relies on.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
