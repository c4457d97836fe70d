package ws

import (
	"encoding/json"
	"sync"

	"banana_clicker/internal/domain"
	"banana_clicker/internal/logger"
)

// Hub fans progress snapshots out to every connection a user has open.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes c and closes its send queue. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	close(c.Send)
}

// Publish implements service.Notifier. Slow clients miss frames rather than
// blocking the writer.
func (h *Hub) Publish(p domain.UserProgress) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.clients[p.UserID]
	if len(set) == 0 {
		return
	}

	msg, err := json.Marshal(Envelope{Type: MsgProgress, Data: progressPayload(p)})
	if err != nil {
		logger.Error("ws: marshal progress", "user_id", p.UserID, "error", err)
		return
	}
	for c := range set {
		select {
		case c.Send <- msg:
		default:
			logger.Warn("ws: send buffer full, dropping frame", "user_id", p.UserID)
		}
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
