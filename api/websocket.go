package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zfs-agent/zfs-agent/internal/events"
	"github.com/zfs-agent/zfs-agent/internal/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// wsMessage is the envelope every /ws/tasks frame carries.
type wsMessage struct {
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Data      events.TaskEvent `json:"data"`
}

// WSHub fans task-lifecycle events out to every connected /ws/tasks
// client, adapted from the sibling agent's daemon/services/api/websocket.go
// register/unregister/broadcast loop, narrowed to a single typed event.
type WSHub struct {
	clients    map[*wsClient]bool
	broadcast  chan events.TaskEvent
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex
}

type wsClient struct {
	conn *websocket.Conn
	send chan wsMessage
}

// NewWSHub constructs an empty hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan events.TaskEvent, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

// Run drives the hub's event loop until ctx is cancelled.
func (h *WSHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case evt := <-h.broadcast:
			msg := wsMessage{Event: "task", Timestamp: time.Now(), Data: evt}
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues evt for delivery to every connected client.
func (h *WSHub) Broadcast(evt events.TaskEvent) {
	h.broadcast <- evt
}

// handleTasksWebSocket godoc
//
//	@Summary		Task event stream
//	@Description	Streams task create/running/progress/complete/fail transitions
//	@Tags			Tasks
//	@Router			/ws/tasks [get]
func (s *Server) handleTasksWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed: %v", err)
		return
	}
	client := &wsClient{conn: conn, send: make(chan wsMessage, 32)}
	s.wsHub.register <- client

	go client.writePump()
	go client.readPump(s.wsHub)
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump(hub *WSHub) {
	defer func() {
		hub.unregister <- c
		_ = c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
