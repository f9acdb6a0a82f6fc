package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mmuslimabdulj/talep-presence/internal/domain"
	"github.com/mmuslimabdulj/talep-presence/internal/metrics"
	"github.com/mmuslimabdulj/talep-presence/internal/presence"
)

// PresencePayload is the body of every presence event
type PresencePayload struct {
	User        *presence.Entry  `json:"user,omitempty"`
	OnlineUsers []presence.Entry `json:"onlineUsers"`
	CreatedAt   string           `json:"created_at"`
}

// buildPresenceEvent creates a presence event carrying the full online list
func (h *Hub) buildPresenceEvent(eventType domain.EventType, user *presence.Entry) []byte {
	now := time.Now().UTC()

	payload, _ := json.Marshal(PresencePayload{
		User:        user,
		OnlineUsers: h.registry.List(),
		CreatedAt:   now.Format(domain.TimestampLayout),
	})

	msg := domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		CreatedAt: now,
	}

	data, _ := json.Marshal(msg)
	return data
}

// broadcastToWatchers sends data to every watcher. Watchers whose buffer is
// full are dropped and removed like a normal disconnect.
func (h *Hub) broadcastToWatchers(data []byte) {
	var dropped []*Client

	h.mu.RLock()
	for _, c := range h.watchers {
		select {
		case c.send <- data:
		default:
			dropped = append(dropped, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dropped {
		metrics.BroadcastDrops.Inc()
		h.logger.Warn().Str("conn_id", c.ID).Msg("send buffer full, dropping client")
		h.remove(c)
	}
}

// deliver sends data to a single client without blocking
func (h *Hub) deliver(c *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Client may already be gone
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// sendSnapshot answers a presence_sync request from a watcher
func (h *Hub) sendSnapshot(c *Client) {
	h.mu.RLock()
	_, watcher := h.watchers[c.ID]
	h.mu.RUnlock()

	if !watcher {
		return
	}
	h.deliver(c, h.buildPresenceEvent(domain.EventTypeOnlineUsers, nil))
}
