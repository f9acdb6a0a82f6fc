package ws

import (
	"context"
	"sync"

	"github.com/mmuslimabdulj/talep-presence/internal/domain"
	"github.com/mmuslimabdulj/talep-presence/internal/metrics"
	"github.com/mmuslimabdulj/talep-presence/internal/presence"
	"github.com/rs/zerolog"
)

// Hub owns the set of live sockets and turns their lifecycle into presence
// transitions. Register and unregister are serialized through Run.
type Hub struct {
	mu             sync.RWMutex
	clients        map[string]*Client // connection id -> client
	watchers       map[string]*Client // subset of clients allowed to see presence
	register       chan *Client
	unregister     chan *Client
	syncReq        chan *Client
	done           chan struct{}
	stopped        chan struct{}
	stopOnce       sync.Once
	registry       *presence.Registry
	watcherRoles   []string
	maxMessageSize int64
	logger         zerolog.Logger
}

// NewHub creates a new Hub backed by registry
func NewHub(registry *presence.Registry, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:        make(map[string]*Client),
		watchers:       make(map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		syncReq:        make(chan *Client, 64),
		done:           make(chan struct{}),
		stopped:        make(chan struct{}),
		registry:       registry,
		watcherRoles:   []string{domain.RoleAdmin, domain.RoleManager},
		maxMessageSize: domain.MaxMessageSize,
		logger:         logger,
	}
}

// SetWatcherRoles sets which roles receive presence events
func (h *Hub) SetWatcherRoles(roles []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watcherRoles = append([]string(nil), roles...)
}

// SetMaxMessageSize sets the read limit applied to client sockets
func (h *Hub) SetMaxMessageSize(size int) {
	if size > 0 {
		h.maxMessageSize = int64(size)
	}
}

// CanWatch reports whether p may observe presence
func (h *Hub) CanWatch(p *domain.Principal) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return p.HasRole(h.watcherRoles...)
}

// Run starts the hub's main event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.stopped)

	for {
		select {
		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case client := <-h.syncReq:
			h.sendSnapshot(client)

		case <-h.done:
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
				delete(h.watchers, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Shutdown stops Run and closes every client's send queue
func (h *Hub) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.done) })

	select {
	case <-h.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) add(client *Client) {
	watcher := h.CanWatch(client.Principal)

	h.mu.Lock()
	h.clients[client.ID] = client
	if watcher {
		h.watchers[client.ID] = client
	}
	h.mu.Unlock()

	connected := h.registry.Connect(*client.Principal, client.ID)
	h.observe()

	if connected.User == nil {
		// Transport already authenticated the principal, so this only
		// happens for tokens without a usable id.
		h.logger.Warn().Str("conn_id", client.ID).Msg("connection ignored by presence registry")
		return
	}

	if connected.WasOffline {
		metrics.TransitionsTotal.WithLabelValues(metrics.DirectionOnline).Inc()
		h.logger.Info().
			Int64("user_id", connected.User.ID).
			Str("role", connected.User.Role).
			Msg("user online")
		h.broadcastToWatchers(h.buildPresenceEvent(domain.EventTypeUserConnected, connected.User))
		return
	}

	h.logger.Debug().
		Int64("user_id", connected.User.ID).
		Int("connections", connected.User.Connections).
		Msg("additional connection")

	// A watcher opening another tab still needs the current list
	if watcher {
		h.deliver(client, h.buildPresenceEvent(domain.EventTypeUserConnected, connected.User))
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	// Check if client exists - prevent double unregister
	if _, ok := h.clients[client.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ID)
	delete(h.watchers, client.ID)
	close(client.send)
	h.mu.Unlock()

	disconnected := h.registry.Disconnect(client.Principal.ID, client.ID)
	h.observe()

	if !disconnected.WentOffline || disconnected.User == nil {
		return
	}

	metrics.TransitionsTotal.WithLabelValues(metrics.DirectionOffline).Inc()
	h.logger.Info().
		Int64("user_id", disconnected.User.ID).
		Str("role", disconnected.User.Role).
		Msg("user offline")
	h.broadcastToWatchers(h.buildPresenceEvent(domain.EventTypeUserDisconnected, disconnected.User))
}

func (h *Hub) observe() {
	metrics.Observe(h.registry.Count(), h.registry.Connections())
}
