package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/foodville/marketplace-api/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// FeedMessage is what live order feed subscribers receive.
type FeedMessage struct {
	Type       string            `json:"type"`
	OrderID    uuid.UUID         `json:"order_id"`
	Status     model.OrderStatus `json:"status"`
	OrderType  model.OrderType   `json:"order_type"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	StoreName  string            `json:"store_name"`
	At         time.Time         `json:"at"`
}

const (
	FeedOrderPlaced        = "order.placed"
	FeedOrderStatusChanged = "order.status_changed"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the open order feed websockets, keyed by user. Store owners are
// told about new orders; customers about status changes.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHub(allowedOrigins []string, log *slog.Logger) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		clients: make(map[uuid.UUID]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		log: log,
	}
}

// ServeWS upgrades the request and streams the user's feed until the
// connection closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(userID, c)
	go h.writePump(c)
	h.readPump(userID, c)
	return nil
}

func (h *Hub) register(userID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
}

func (h *Hub) unregister(userID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, userID)
		}
	}
}

// readPump drains client frames so control messages are processed, and
// unregisters the client when the connection drops.
func (h *Hub) readPump(userID uuid.UUID, c *client) {
	defer func() {
		h.unregister(userID, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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

// Push sends msg to every connection of userID. Slow connections drop the
// message instead of blocking the caller.
func (h *Hub) Push(userID uuid.UUID, msg FeedMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal feed message: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			h.log.Warn("drop feed message for slow client", "user_id", userID, "order_id", msg.OrderID)
		}
	}
	return nil
}

// Connections returns how many feeds userID has open.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func feedMessage(kind string, event OrderEvent) FeedMessage {
	return FeedMessage{
		Type:       kind,
		OrderID:    event.OrderID,
		Status:     event.Status,
		OrderType:  event.Type,
		TotalPrice: event.TotalPrice,
		StoreName:  event.StoreName,
		At:         event.At,
	}
}

func (h *Hub) OrderPlaced(_ context.Context, event OrderEvent) error {
	return h.Push(event.StoreOwnerID, feedMessage(FeedOrderPlaced, event))
}

func (h *Hub) OrderStatusChanged(_ context.Context, event OrderEvent) error {
	return h.Push(event.CustomerID, feedMessage(FeedOrderStatusChanged, event))
}

// Close ends every open feed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, userID)
	}
}
