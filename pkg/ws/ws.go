package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dreamshare/pkg/logger"
)

// Event is the frame pushed to connected clients.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Event types emitted by the application.
const (
	EventNewMessage    = "message.new"
	EventFriendRequest = "friend.request"
	EventDreamLiked    = "dream.liked"
	EventDreamComment  = "dream.comment"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type connection struct {
	id     string
	userID uint
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans notification events out to the connections of each user.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]*connection
	byUser   map[uint]map[string]bool
	register chan *connection
	drop     chan *connection
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		conns:    make(map[string]*connection),
		byUser:   make(map[uint]map[string]bool),
		register: make(chan *connection, 64),
		drop:     make(chan *connection, 64),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.conns[c.id] = c
			if h.byUser[c.userID] == nil {
				h.byUser[c.userID] = make(map[string]bool)
			}
			h.byUser[c.userID][c.id] = true
			h.mu.Unlock()
			logger.Debug("websocket connected", zap.String("conn", c.id), zap.Uint("user", c.userID))
		case c := <-h.drop:
			h.mu.Lock()
			if _, ok := h.conns[c.id]; ok {
				delete(h.conns, c.id)
				delete(h.byUser[c.userID], c.id)
				if len(h.byUser[c.userID]) == 0 {
					delete(h.byUser, c.userID)
				}
				close(c.send)
			}
			h.mu.Unlock()
		}
	}
}

// Notify pushes an event to every open connection of the given user.
// Slow consumers are skipped rather than blocked on.
func (h *Hub) Notify(userID uint, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		logger.Warn("event marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.byUser[userID] {
		c, ok := h.conns[id]
		if !ok {
			continue
		}
		select {
		case c.send <- payload:
		default:
			logger.Debug("send buffer full, dropping event", zap.String("conn", id))
		}
	}
}

// ConnectionCount reports how many connections the user currently holds.
func (h *Hub) ConnectionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

// Serve upgrades the request and runs the connection pumps until the
// client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &connection{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
	return nil
}

// Close tears down the hub and all open connections.
func (h *Hub) Close() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		c.conn.Close()
	}
}

func (c *connection) readPump(h *Hub) {
	defer func() {
		h.drop <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Clients only consume; inbound frames just keep the read loop alive.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
