package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message represents the standard message format exchanged over WebSocket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Message types sent to watchers.
const (
	TypeLeaderboardUpdated = "leaderboard_updated"
	TypeWatcherUpdate      = "watcher_update"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// LeaderboardUpdate tells watchers that a rebuilt leaderboard is available.
type LeaderboardUpdate struct {
	GameID      uint   `json:"game_id"`
	Fingerprint string `json:"fingerprint"`
}

// Hub fans messages out to the clients watching each game. Clients only
// listen; anything they send is discarded.
type Hub struct {
	rooms      map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewHub creates a hub accepting connections from allowedOrigins. "*"
// allows any origin; requests without an Origin header are always allowed.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &Hub{
		rooms:      make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID uint
}

// Run listens on the register and unregister channels until ctx is done,
// then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.gameID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.gameID] = room
			}
			room[client] = true
			count := len(room)
			h.mu.Unlock()

			h.logger.Debug("Watcher joined", zap.Uint("game_id", client.gameID), zap.Int("watchers", count))
			h.BroadcastMessage(client.gameID, TypeWatcherUpdate, map[string]int{"count": count})

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.Lock()
			for gameID, room := range h.rooms {
				for client := range room {
					close(client.send)
				}
				delete(h.rooms, gameID)
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove drops client from its room and closes its send channel. It is a
// no-op for clients already removed.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.gameID]
	if !ok || !room[client] {
		h.mu.Unlock()
		return
	}
	delete(room, client)
	close(client.send)
	count := len(room)
	if count == 0 {
		delete(h.rooms, client.gameID)
	}
	h.mu.Unlock()

	h.logger.Debug("Watcher left", zap.Uint("game_id", client.gameID), zap.Int("watchers", count))
	if count > 0 {
		h.BroadcastMessage(client.gameID, TypeWatcherUpdate, map[string]int{"count": count})
	}
}

// Watchers reports how many clients are watching gameID.
func (h *Hub) Watchers(gameID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

// BroadcastToGame queues message for every watcher of gameID. Watchers
// whose buffers are full are disconnected.
func (h *Hub) BroadcastToGame(gameID uint, message []byte) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.rooms[gameID] {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Send buffer full, dropping watcher", zap.Uint("game_id", gameID))
		h.remove(client)
	}
}

// BroadcastMessage marshals the message and then broadcasts it.
func (h *Hub) BroadcastMessage(gameID uint, messageType string, data interface{}) {
	messageBytes, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		h.logger.Error("Error marshaling message", zap.String("type", messageType), zap.Error(err))
		return
	}
	h.BroadcastToGame(gameID, messageBytes)
}

// LeaderboardUpdated announces a rebuilt leaderboard to the game's watchers.
func (h *Hub) LeaderboardUpdated(gameID uint, fingerprint string) {
	h.BroadcastMessage(gameID, TypeLeaderboardUpdated, LeaderboardUpdate{GameID: gameID, Fingerprint: fingerprint})
}

// HandleWebSocket upgrades the HTTP connection and subscribes it to the
// game named by the gameID path variable.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID, err := strconv.ParseUint(mux.Vars(r)["gameID"], 10, 64)
	if err != nil || gameID == 0 {
		http.Error(w, "Invalid game id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		gameID: uint(gameID),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so pongs and close frames are handled.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("Unexpected close", zap.Uint("game_id", c.gameID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			if err := w.Close(); err != nil {
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
