// Package ws pushes application events (new followers, group membership
// changes, recorded messages) to connected clients.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"devpair-be/internal/logger"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

type Client struct {
	UserID uint
	Conn   Conn
	Send   chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: map[uint]map[*Client]struct{}{},
	}
}

func (h *Hub) AddClient(userID uint, conn Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	go c.keepAliveLoop()

	return c
}

func (h *Hub) RemoveClient(c *Client) {
	c.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}

	_ = c.Conn.Close(websocket.StatusNormalClosure, "bye")
}

// Connected reports how many connections userID has open.
func (h *Hub) Connected(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) BroadcastToUsers(userIDs []uint, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		for c := range h.clients[uid] {
			select {
			case c.Send <- ev:
			default:
				// slow client, drop
				logger.Log.Debug("ws send buffer full, event dropped",
					zap.Uint("user_id", uid), zap.String("event", ev.Type))
			}
		}
	}
}

// Notify satisfies the graph, groups and chat notifiers.
func (h *Hub) Notify(userIDs []uint, event string, data any) {
	h.BroadcastToUsers(userIDs, Event{Type: event, Data: data})
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.Send:
			b, err := json.Marshal(ev)
			if err != nil {
				logger.Log.Error("encode ws event", zap.String("event", ev.Type), zap.Error(err))
				continue
			}
			writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := c.Conn.Write(writeCtx, websocket.MessageText, b); err != nil {
				logger.Log.Debug("ws write failed", zap.Uint("user_id", c.UserID), zap.Error(err))
			}
			cancel()
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.Conn.Ping(pingCtx)
			cancel()
		}
	}
}
