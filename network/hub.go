// Package network streams settled arena snapshots to WebSocket spectators
// and forwards their steering and action input to the simulation.
package network

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/cellarena/game"
)

// CommandSink receives remote input. *game.Game satisfies it; both methods
// must be safe for concurrent use.
type CommandSink interface {
	Steer(dx, dy float64)
	Enqueue(c game.Command) bool
}

// Frame is one post-tick state message sent to every client.
type Frame struct {
	Tick        int32                   `json:"tick"`
	Entities    []game.EntityView       `json:"entities"`
	Progress    game.ProgressSnapshot   `json:"progress"`
	Leaderboard []game.LeaderboardEntry `json:"leaderboard"`
}

// Hub maintains the set of active clients and broadcasts frames to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	sink       CommandSink
	upgrader   websocket.Upgrader
}

// NewHub initializes a new hub forwarding input to sink.
func NewHub(sink CommandSink) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 4),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		sink:       sink,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run handles client registration and fan-out until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			slog.Info("spectator_hub_stopped")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			slog.Info("spectator_connected", "clients", n)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				slog.Info("spectator_disconnected", "clients", len(h.clients))
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client: drop it rather than stall the feed
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast serializes a frame and queues it for all clients. It never
// blocks the caller; a frame is dropped if the hub is still busy with the
// previous ones.
func (h *Hub) Broadcast(f Frame) bool {
	payload, err := json.Marshal(f)
	if err != nil {
		slog.Error("failed to marshal frame", "error", err)
		return false
	}
	select {
	case h.broadcast <- payload:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades an HTTP request and starts the client's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket_upgrade_failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	client := NewClient(h, conn)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
