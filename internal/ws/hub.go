// Package ws pushes characteristic change notifications to verified
// controllers over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jmylchreest/hapd/internal/events"
	"github.com/jmylchreest/hapd/internal/session"
	"github.com/jmylchreest/hapd/internal/subscription"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer (clients only send pings/pongs).
	maxMessageSize = 512

	// Size of the per-client send buffer.
	sendBufferSize = 64
)

// Client is one controller's notification stream. It holds its own bus
// subscription for as long as it is connected.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	session    *session.Session
	controller uuid.UUID
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once

	mu     sync.Mutex
	sub    *events.Subscription
	closed bool
}

// Hub tracks the connected clients.
type Hub struct {
	logger *slog.Logger
	bus    *events.Emitter
	subs   *subscription.Table

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a Hub delivering events from bus filtered by subs.
func NewHub(logger *slog.Logger, bus *events.Emitter, subs *subscription.Table) *Hub {
	return &Hub{
		logger:  logger,
		bus:     bus,
		subs:    subs,
		clients: make(map[*Client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws: hub started")
	<-ctx.Done()

	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()
	for _, c := range all {
		c.disconnect()
	}
	h.logger.Info("ws: hub stopped")
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient creates a Client for controller on conn. sess may be nil.
func (h *Hub) NewClient(conn *websocket.Conn, sess *session.Session, controller uuid.UUID) *Client {
	return &Client{
		hub:        h,
		conn:       conn,
		session:    sess,
		controller: controller,
		send:       make(chan []byte, sendBufferSize),
		done:       make(chan struct{}),
	}
}

// Register adds c to the hub and subscribes it to the bus. Closing the
// session disconnects the client. A client disconnected before or during
// Register is not added.
func (h *Hub) Register(c *Client) {
	sub := h.bus.AddListener(c.listen)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Close()
		return
	}
	c.sub = sub
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	c.mu.Unlock()

	if c.session != nil {
		c.session.OnClose(c.disconnect)
	}
	h.logger.Info("ws: client connected", "controller", c.controller, "clients", count)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws: client disconnected", "controller", c.controller, "clients", count)
}

// eventBody is the HAP event notification payload.
type eventBody struct {
	Characteristics []eventValue `json:"characteristics"`
}

type eventValue struct {
	AID   uint64 `json:"aid"`
	IID   uint64 `json:"iid"`
	Value any    `json:"value"`
}

func (c *Client) listen(ctx context.Context, e events.Event) {
	switch ev := e.(type) {
	case events.CharacteristicValueChanged:
		if !c.hub.subs.IsSubscribed(c.controller, ev.AID, ev.IID) {
			return
		}
		// controllers are not told about their own writes
		if o, ok := events.OriginFrom(ctx); ok && o.Controller == c.controller {
			return
		}
		msg, err := json.Marshal(eventBody{Characteristics: []eventValue{{AID: ev.AID, IID: ev.IID, Value: ev.Value}}})
		if err != nil {
			c.hub.logger.Error("ws: failed to marshal event", "error", err)
			return
		}
		select {
		case <-c.done:
		case c.send <- msg:
		default:
			c.hub.logger.Warn("ws: client buffer full, disconnecting", "controller", c.controller)
			c.disconnect()
		}

	case events.ControllerUnpaired:
		if ev.ID == c.controller {
			c.disconnect()
		}
	}
}

// disconnect releases the bus subscription and closes the socket. The read
// pump then closes the session.
func (c *Client) disconnect() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		sub := c.sub
		c.sub = nil
		c.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		close(c.done)
		c.hub.remove(c)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// WritePump pumps messages from the hub to the WebSocket connection.
// A goroutine per client runs this method.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.disconnect()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return

		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump reads messages from the WebSocket connection.
// We don't expect clients to send meaningful data, but we must read
// to process control frames (ping/pong/close).
func (c *Client) ReadPump() {
	defer func() {
		c.disconnect()
		if c.session != nil {
			c.session.Close()
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("ws: read error", "error", err)
			}
			return
		}
		// Discard any client messages; this is a server-push-only endpoint.
	}
}
