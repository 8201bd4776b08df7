package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ropix/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 65536,
	// Devices on the LAN reach the server under whatever host name mDNS
	// resolved, so origin checking is left to the deployment.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// envelope is the wire frame for every realtime message in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub is the WebSocket implementation of the Gateway contract. It owns the
// set of live connections; room membership is resolved through the
// registry, never duplicated here.
type Hub struct {
	logger   *zap.Logger
	resolver MemberResolver
	handler  Handler

	mu    sync.RWMutex
	conns map[types.ConnectionID]*client
}

func NewHub(resolver MemberResolver, handler Handler, logger *zap.Logger) *Hub {
	return &Hub{
		logger:   logger,
		resolver: resolver,
		handler:  handler,
		conns:    make(map[types.ConnectionID]*client),
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and runs its
// read and write pumps until the connection dies.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   types.ConnectionID(uuid.NewString()),
		hub:  h,
		sock: sock,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()

	h.logger.Debug("connection opened", zap.String("connection", string(c.id)))
	h.handler.OnConnect(c.id)

	go c.writePump()
	c.readPump()
}

// EmitTo makes an exactly-once delivery attempt to a single connection.
// Unknown connections are silently ignored; the peer may have just left.
func (h *Hub) EmitTo(conn types.ConnectionID, event string, payload any) {
	h.mu.RLock()
	c := h.conns[conn]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("marshal event", zap.String("event", event), zap.Error(err))
		return
	}
	c.enqueue(frame)
}

// EmitToRoom delivers to every current member of a room except the
// excluded connections. Best-effort and fire-and-forget.
func (h *Hub) EmitToRoom(room types.RoomCode, event string, payload any, exclude ...types.ConnectionID) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("marshal event", zap.String("event", event), zap.Error(err))
		return
	}

	excluded := make(map[types.ConnectionID]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	for _, id := range h.resolver.Members(room) {
		if _, skip := excluded[id]; skip {
			continue
		}
		h.mu.RLock()
		c := h.conns[id]
		h.mu.RUnlock()
		if c != nil {
			c.enqueue(frame)
		}
	}
}

// Disconnect force-closes a connection, if it is still live.
func (h *Hub) Disconnect(conn types.ConnectionID) {
	h.mu.RLock()
	c := h.conns[conn]
	h.mu.RUnlock()
	if c != nil {
		c.close()
	}
}

// ConnectionCount reports the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	current, ok := h.conns[c.id]
	if ok && current == c {
		delete(h.conns, c.id)
	}
	h.mu.Unlock()
	if ok {
		h.logger.Debug("connection closed", zap.String("connection", string(c.id)))
		h.handler.OnDisconnect(c.id)
	}
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	var (
		data json.RawMessage
		err  error
	)
	if payload != nil {
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(envelope{Event: event, Data: data})
}
