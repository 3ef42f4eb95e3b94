package game

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"aviator/internal/auth"
	"aviator/internal/logger"
	"aviator/internal/metrics"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	sendBufferSize = 64
)

// Hub fans round events out to connected clients. Sends never block the
// round loop: a client whose buffer is full is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	byUser  map[int]map[*client]struct{}
}

type client struct {
	userID int
	conn   *websocket.Conn
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		byUser:  make(map[int]map[*client]struct{}),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	if h.byUser[c.userID] == nil {
		h.byUser[c.userID] = make(map[*client]struct{})
	}
	h.byUser[c.userID][c] = struct{}{}
	metrics.StreamClients.Set(float64(len(h.clients)))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if peers := h.byUser[c.userID]; peers != nil {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	metrics.StreamClients.Set(float64(len(h.clients)))
}

// Broadcast sends the event to every connected client.
func (h *Hub) Broadcast(eventType string, data any) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		logger.Errorf("failed to marshal %s event: %v", eventType, err)
		return
	}

	h.mu.RLock()
	var stale []*client
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.unregister(c)
	}
}

// SendToUser delivers a targeted event to every connection of one user.
func (h *Hub) SendToUser(userID int, eventType string, data any) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		logger.Errorf("failed to marshal %s event: %v", eventType, err)
		return
	}

	h.mu.RLock()
	var stale []*client
	for c := range h.byUser[userID] {
		select {
		case c.send <- msg:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.unregister(c)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and subscribes it to round events.
// The route runs behind the auth middleware, which accepts the token as
// a query param for browser WebSocket clients.
func (h *Hub) ServeWS(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	cl := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
	h.register(cl)

	go cl.writePump(h)
	go cl.readPump(h)
}

func (c *client) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection; the channel is one-way, clients only
// listen. Reads detect disconnects and keep pong handling alive.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
