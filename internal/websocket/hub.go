package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/climbing-tracker/internal/ranking"
)

// Message types
const (
	MessageTypeLeaderboardUpdate = "leaderboard_update"
	MessageTypeSubscribe         = "subscribe"
	MessageTypeUnsubscribe       = "unsubscribe"
	MessageTypeSubscribed        = "subscribed"
	MessageTypeUnsubscribed      = "unsubscribed"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string         `json:"type"`
	Window    ranking.Window `json:"window,omitempty"`
	Data      interface{}    `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// LeaderboardUpdate carries the top of one leaderboard window
type LeaderboardUpdate struct {
	Window  ranking.Window  `json:"window"`
	Entries []ranking.Entry `json:"entries"`
}

// Hub maintains the set of active clients and pushes leaderboard windows to subscribers
type Hub struct {
	// Subscribed clients by window
	clients map[ranking.Window]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	// Last update per window, replayed to new subscribers
	latest map[ranking.Window][]byte

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu     sync.RWMutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	window ranking.Window
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[ranking.Window]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		latest:      make(map[ranking.Window][]byte),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id, "user_id", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for w, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, w)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.allClients[req.client]; ok {
				if _, ok := h.clients[req.window]; !ok {
					h.clients[req.window] = make(map[*Client]bool)
				}
				h.clients[req.window][req.client] = true
				if data, ok := h.latest[req.window]; ok {
					req.client.trySend(data)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "window", req.window)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.window]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.window)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "window", req.window)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to the window's subscribers and remembers it
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest[message.Window] = data
	for client := range h.clients[message.Window] {
		if !client.trySend(data) {
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// BroadcastLeaderboard queues the top of a window for its subscribers
func (h *Hub) BroadcastLeaderboard(w ranking.Window, entries []ranking.Entry) {
	message := &Message{
		Type:      MessageTypeLeaderboardUpdate,
		Window:    w,
		Data:      LeaderboardUpdate{Window: w, Entries: entries},
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message", "window", w)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a window
func (h *Hub) Subscribe(client *Client, w ranking.Window) {
	h.subscribe <- &subscriptionRequest{client: client, window: w}
}

// Unsubscribe removes a client from a window
func (h *Hub) Unsubscribe(client *Client, w ranking.Window) {
	h.unsubscribe <- &subscriptionRequest{client: client, window: w}
}

// GetSubscriberCount returns the number of subscribers for a window
func (h *Hub) GetSubscriberCount(w ranking.Window) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[w])
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
