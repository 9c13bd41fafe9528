package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"AthleteAPI/internal/config"
	"AthleteAPI/internal/logger"
	"AthleteAPI/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Message is the frame sent to websocket clients.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub keeps the connected clients and fans bus payloads out to them.
type Hub struct {
	bus        Bus
	upgrader   websocket.Upgrader
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub accepts websocket origins on the same list as CORS.
func NewHub(bus Bus, cors config.CORSConfig) *Hub {
	return &Hub{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || cors.AllowsOrigin(origin)
			},
		},
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Publish puts one raw JSON batch on the bus.
func (h *Hub) Publish(ctx context.Context, payload []byte) error {
	if err := h.bus.Publish(ctx, payload); err != nil {
		return err
	}
	metrics.SensorBatchesPublished.Inc()
	return nil
}

// Run subscribes to the bus and serves clients until ctx is done. Once Run
// returns, for any reason, ServeWS refuses new connections.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	msgs, err := h.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	logger.Info("hub_started", map[string]any{"channel": Channel})

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			logger.Info("hub_stopped", map[string]any{"reason": ctx.Err().Error()})
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Set(float64(total))
			logger.Debug("ws_connected", map[string]any{"total_clients": total})

		case c := <-h.unregister:
			h.remove(c)

		case payload, ok := <-msgs:
			if !ok {
				h.closeAll()
				return nil
			}
			h.broadcast(payload)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.stopped() {
		http.Error(w, "realtime relay unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		logger.Warn("ws_upgrade_failed", map[string]any{"error": err.Error()})
		return
	}
	c := newClient(h, conn)
	// r.Context() is never cancelled once the connection is hijacked
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	c.start()
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Hub) broadcast(payload []byte) {
	frame, err := json.Marshal(Message{Type: Channel, Data: json.RawMessage(payload)})
	if err != nil {
		logger.Warn("ws_bad_payload", map[string]any{"error": err.Error()})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
			metrics.WebSocketMessagesSent.Inc()
		default:
			// медленный клиент, отключаем
			delete(h.clients, c)
			close(c.send)
		}
	}
	metrics.WebSocketConnections.Set(float64(len(h.clients)))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketConnections.Set(float64(total))
	logger.Debug("ws_disconnected", map[string]any{"total_clients": total})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.WebSocketConnections.Set(0)
}
