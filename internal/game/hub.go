package game

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

var ErrBroadcastFull = errors.New("broadcast channel full")

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type Client struct {
	conn   *websocket.Conn
	player string
	mu     sync.Mutex
}

// Hub pushes settled wagers to every connected websocket client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan interface{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan interface{}, 100),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				client.conn.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[WS] Client connected: %s (Total: %d)", client.player, h.GetClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.conn.Close()
			}
			h.mu.Unlock()
			log.Printf("[WS] Client disconnected: %s (Total: %d)", client.player, h.GetClientCount())

		case message := <-h.broadcast:
			jsonMessage, err := json.Marshal(message)
			if err != nil {
				log.Printf("[WS] Marshal error: %v", err)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				go client.Send(jsonMessage)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast queues message for all clients. It never blocks; when the queue
// is full the message is dropped and false is returned.
func (h *Hub) Broadcast(message interface{}) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		log.Println("[WS] Broadcast channel full, dropping message")
		return false
	}
}

// Notify implements Notifier.
func (h *Hub) Notify(ctx context.Context, outcome WagerOutcome) error {
	if !h.Broadcast(WSMessage{Type: "wager_settled", Data: outcome}) {
		return ErrBroadcastFull
	}
	return nil
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send writes one message. Writes to a client are serialized.
func (c *Client) Send(message interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data []byte
	var err error

	switch v := message.(type) {
	case []byte:
		data = v
	default:
		data, err = json.Marshal(v)
		if err != nil {
			log.Printf("[WS] Send marshal error: %v", err)
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[WS] Write error for %s: %v", c.player, err)
	}
}

// SendRecentWagers gives a newly connected client the current feed.
func (c *Client) SendRecentWagers(wagers []WagerOutcome) {
	c.Send(WSMessage{Type: "recent_wagers", Data: wagers})
}

func (h *Hub) RegisterClient(conn *websocket.Conn, player string) *Client {
	client := &Client{
		conn:   conn,
		player: player,
	}
	select {
	case h.register <- client:
	case <-h.done:
	}
	return client
}

func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mu.RLock()
	for client := range h.clients {
		if client.conn == conn {
			h.mu.RUnlock()
			select {
			case h.unregister <- client:
			case <-h.done:
			}
			return
		}
	}
	h.mu.RUnlock()
}

var _ Notifier = (*Hub)(nil)
