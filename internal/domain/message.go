package domain

import (
	"encoding/json"
	"time"
)

// EventType defines the type of event sent over the realtime channel
type EventType string

const (
	EventTypeUserConnected    EventType = "user_connected"
	EventTypeUserDisconnected EventType = "user_disconnected"
	EventTypeOnlineUsers      EventType = "online_users" // Reply to presence_sync
	EventTypePresenceSync     EventType = "presence_sync" // Inbound: watcher asks for a fresh list
)

// Event is the envelope for every frame the server writes to a socket
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// InboundMessage is a frame read from a client socket
type InboundMessage struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
