package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventSnapshot announces that a repository snapshot changed.
const EventSnapshot = "snapshot"

const writeWait = 5 * time.Second

// Event is pushed to every websocket client.
type Event struct {
	Type       string `json:"type"`
	Repo       string `json:"repo"`
	Generation uint64 `json:"generation"`
}

// Hub keeps the connected websocket clients and fans events out to them.
type Hub struct {
	upgrader websocket.Upgrader

	clients   map[*websocket.Conn]struct{}
	clientsMu sync.Mutex

	broadcast chan Event
	log       zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the UI is served from a different local port
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan Event, 256),
		log:       log,
	}
}

// Publish queues ev for delivery. It never blocks; when the queue is full the
// event is dropped, since the next one carries a newer generation anyway.
func (h *Hub) Publish(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
		h.log.Warn().Str("repo", ev.Repo).Msg("broadcast queue full, dropping event")
	}
}

// Run delivers queued events until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case ev := <-h.broadcast:
			h.send(ev)
		}
	}
}

func (h *Hub) send(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to encode event")
		return
	}

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug().Err(err).Msg("dropping websocket client")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Clients only listen; anything they send is discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = struct{}{}
	h.clientsMu.Unlock()
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("websocket client connected")

	go func() {
		defer func() {
			h.clientsMu.Lock()
			delete(h.clients, conn)
			h.clientsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
