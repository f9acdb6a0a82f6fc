package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mmuslimabdulj/talep-presence/internal/auth"
	"github.com/mmuslimabdulj/talep-presence/internal/config"
	"github.com/mmuslimabdulj/talep-presence/internal/delivery/ws"
	"github.com/mmuslimabdulj/talep-presence/internal/domain"
	"github.com/mmuslimabdulj/talep-presence/internal/metrics"
	"github.com/mmuslimabdulj/talep-presence/internal/middleware"
	"github.com/mmuslimabdulj/talep-presence/internal/presence"
	"github.com/rs/zerolog"
)

// OnlineUsersResponse is the body of GET /api/online-users
type OnlineUsersResponse struct {
	OnlineUsers []presence.Entry `json:"onlineUsers"`
	CreatedAt   string           `json:"created_at"`
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status      string `json:"status"`
	OnlineUsers int    `json:"online_users"`
	Connections int    `json:"connections"`
}

type Handler struct {
	hub      *ws.Hub
	registry *presence.Registry
	verifier middleware.TokenVerifier
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewHandler(cfg *config.Config, hub *ws.Hub, registry *presence.Registry, verifier middleware.TokenVerifier, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		registry: registry,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.IsOriginAllowed(r.Header.Get("Origin"))
			},
		},
		logger: logger,
	}
}

// HandleOnlineUsers returns the current presence snapshot. Authentication and
// the role gate are applied by the router.
func (h *Handler) HandleOnlineUsers(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, OnlineUsersResponse{
		OnlineUsers: h.registry.List(),
		CreatedAt:   time.Now().UTC().Format(domain.TimestampLayout),
	})
}

// HandleHealth reports liveness and registry totals
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		OnlineUsers: h.registry.Count(),
		Connections: h.registry.Connections(),
	})
}

// HandleNotFound answers unknown routes
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, http.StatusNotFound, "endpoint not found")
}

// HandleWebSocket authenticates the handshake, then upgrades and attaches the
// socket to the hub. Rejected handshakes never reach the presence registry.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	principal, err := h.verifier.Verify(auth.TokenFromRequest(r))
	if err != nil {
		reason := "invalid_token"
		message := "invalid or expired token"
		if errors.Is(err, auth.ErrMissingToken) {
			reason = "missing_token"
			message = "token required"
		}
		metrics.HandshakeRejections.WithLabelValues(reason).Inc()
		h.logger.Debug().Err(err).Str("reason", reason).Msg("websocket handshake rejected")
		middleware.WriteError(w, http.StatusUnauthorized, message)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		metrics.HandshakeRejections.WithLabelValues("upgrade_failed").Inc()
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, principal)
	h.hub.Register(client)

	// Start read/write pumps in goroutines
	go client.WritePump()
	go client.ReadPump()
}
