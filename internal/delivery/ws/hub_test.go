package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmuslimabdulj/talep-presence/internal/domain"
	"github.com/mmuslimabdulj/talep-presence/internal/presence"
	"github.com/rs/zerolog"
)

// newTestHub creates a running hub with a fresh registry
func newTestHub(t *testing.T) (*Hub, *presence.Registry) {
	t.Helper()
	registry := presence.NewRegistry()
	hub := NewHub(registry, zerolog.Nop())
	go hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		hub.Shutdown(ctx)
	})
	return hub, registry
}

// newMockClient creates a client without an actual websocket connection suitable for testing
func newMockClient(hub *Hub, id int64, first, role string) *Client {
	return &Client{
		ID: uuid.New().String(),
		Principal: &domain.Principal{
			ID:        id,
			FirstName: first,
			LastName:  "Test",
			Username:  first,
			Role:      role,
		},
		hub:  hub,
		conn: nil,
		send: make(chan []byte, 64),
	}
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// nextEvent reads one event from c or fails after timeout
func nextEvent(t *testing.T, c *Client) (domain.Event, PresencePayload) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("Send channel closed while waiting for event")
		}
		var ev domain.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("Invalid event JSON: %v", err)
		}
		var payload PresencePayload
		json.Unmarshal(ev.Payload, &payload)
		return ev, payload
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
	return domain.Event{}, PresencePayload{}
}

// expectSilence asserts that c receives nothing for a short while
func expectSilence(t *testing.T, c *Client, name string) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Errorf("%s should not receive anything, got %s", name, data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(presence.NewRegistry(), zerolog.Nop())
	if hub.clients == nil {
		t.Error("Clients map not initialized")
	}
	if hub.watchers == nil {
		t.Error("Watchers map not initialized")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Register channels not initialized")
	}
	if hub.maxMessageSize != domain.MaxMessageSize {
		t.Errorf("Expected default read limit %d, got %d", domain.MaxMessageSize, hub.maxMessageSize)
	}
}

func TestHub_RegisterTracksPresence(t *testing.T) {
	hub, registry := newTestHub(t)

	client := newMockClient(hub, 1, "Ali", domain.RoleUser)
	hub.Register(client)

	waitFor(t, "user online", func() bool { return registry.IsOnline(1) })

	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.ClientCount())
	}
	if hub.WatcherCount() != 0 {
		t.Errorf("Expected plain user not to be a watcher, got %d watchers", hub.WatcherCount())
	}
}

func TestHub_UnregisterTracksPresence(t *testing.T) {
	hub, registry := newTestHub(t)

	client := newMockClient(hub, 1, "Ali", domain.RoleUser)
	hub.Register(client)
	waitFor(t, "user online", func() bool { return registry.IsOnline(1) })

	hub.Unregister(client)
	waitFor(t, "user offline", func() bool { return !registry.IsOnline(1) })

	if hub.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.ClientCount())
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel to be closed")
	}
}

func TestHub_DoubleUnregister(t *testing.T) {
	hub, registry := newTestHub(t)

	client := newMockClient(hub, 1, "Ali", domain.RoleUser)
	hub.Register(client)
	waitFor(t, "user online", func() bool { return registry.IsOnline(1) })

	hub.Unregister(client)
	hub.Unregister(client) // must not panic on closed channel

	waitFor(t, "user offline", func() bool { return !registry.IsOnline(1) })
}

func TestHub_WatcherSeesTransitions(t *testing.T) {
	hub, registry := newTestHub(t)

	watcher := newMockClient(hub, 1, "Ali", domain.RoleAdmin)
	hub.Register(watcher)

	// Watcher's own first connection is a transition broadcast to itself
	ev, payload := nextEvent(t, watcher)
	if ev.Type != domain.EventTypeUserConnected {
		t.Fatalf("Expected user_connected, got %s", ev.Type)
	}
	if payload.User == nil || payload.User.ID != 1 {
		t.Errorf("Expected event about user 1, got %+v", payload.User)
	}

	resident := newMockClient(hub, 2, "Can", domain.RoleUser)
	hub.Register(resident)

	ev, payload = nextEvent(t, watcher)
	if ev.Type != domain.EventTypeUserConnected || payload.User.ID != 2 {
		t.Fatalf("Expected user_connected for user 2, got %s %+v", ev.Type, payload.User)
	}
	if len(payload.OnlineUsers) != 2 {
		t.Errorf("Expected 2 online users in event, got %d", len(payload.OnlineUsers))
	}
	if payload.CreatedAt == "" {
		t.Error("Expected created_at on event")
	}

	hub.Unregister(resident)

	ev, payload = nextEvent(t, watcher)
	if ev.Type != domain.EventTypeUserDisconnected {
		t.Fatalf("Expected user_disconnected, got %s", ev.Type)
	}
	if payload.User == nil || payload.User.ID != 2 || payload.User.FirstName != "Can" {
		t.Errorf("Expected last-known snapshot of user 2, got %+v", payload.User)
	}
	if len(payload.OnlineUsers) != 1 || payload.OnlineUsers[0].ID != 1 {
		t.Errorf("Expected only watcher online, got %+v", payload.OnlineUsers)
	}

	if registry.IsOnline(2) {
		t.Error("Expected user 2 offline")
	}
}

func TestHub_NonWatcherReceivesNothing(t *testing.T) {
	hub, registry := newTestHub(t)

	resident := newMockClient(hub, 2, "Can", domain.RoleUser)
	hub.Register(resident)
	waitFor(t, "resident online", func() bool { return registry.IsOnline(2) })

	other := newMockClient(hub, 3, "Ece", domain.RoleUser)
	hub.Register(other)
	waitFor(t, "other online", func() bool { return registry.IsOnline(3) })

	expectSilence(t, resident, "Resident")
	expectSilence(t, other, "Other resident")
}

func TestHub_SecondTabIsNotBroadcast(t *testing.T) {
	hub, registry := newTestHub(t)

	watcher := newMockClient(hub, 1, "Ali", domain.RoleManager)
	hub.Register(watcher)
	nextEvent(t, watcher)

	tab1 := newMockClient(hub, 2, "Can", domain.RoleUser)
	hub.Register(tab1)
	nextEvent(t, watcher)

	tab2 := newMockClient(hub, 2, "Can", domain.RoleUser)
	hub.Register(tab2)
	waitFor(t, "second connection", func() bool { return registry.Connections() == 3 })
	expectSilence(t, watcher, "Watcher")

	// Closing one tab keeps the user online
	hub.Unregister(tab1)
	waitFor(t, "tab closed", func() bool { return registry.Connections() == 2 })
	expectSilence(t, watcher, "Watcher")

	hub.Unregister(tab2)
	ev, _ := nextEvent(t, watcher)
	if ev.Type != domain.EventTypeUserDisconnected {
		t.Errorf("Expected user_disconnected after last tab, got %s", ev.Type)
	}
}

func TestHub_WatcherSecondTabGetsPrivateEvent(t *testing.T) {
	hub, _ := newTestHub(t)

	tab1 := newMockClient(hub, 1, "Ali", domain.RoleAdmin)
	hub.Register(tab1)
	nextEvent(t, tab1)

	tab2 := newMockClient(hub, 1, "Ali", domain.RoleAdmin)
	hub.Register(tab2)

	ev, payload := nextEvent(t, tab2)
	if ev.Type != domain.EventTypeUserConnected {
		t.Fatalf("Expected private user_connected, got %s", ev.Type)
	}
	if payload.User == nil || payload.User.Connections != 2 {
		t.Errorf("Expected snapshot with 2 connections, got %+v", payload.User)
	}

	expectSilence(t, tab1, "First tab")
}

func TestHub_PresenceSync(t *testing.T) {
	hub, registry := newTestHub(t)

	watcher := newMockClient(hub, 1, "Ali", domain.RoleAdmin)
	hub.Register(watcher)
	nextEvent(t, watcher)

	resident := newMockClient(hub, 2, "Can", domain.RoleUser)
	hub.Register(resident)
	nextEvent(t, watcher)

	watcher.handleMessage([]byte(`{"type":"presence_sync"}`))
	ev, payload := nextEvent(t, watcher)
	if ev.Type != domain.EventTypeOnlineUsers {
		t.Fatalf("Expected online_users, got %s", ev.Type)
	}
	if payload.User != nil {
		t.Errorf("Expected no user in snapshot reply, got %+v", payload.User)
	}
	if len(payload.OnlineUsers) != registry.Count() {
		t.Errorf("Expected %d online users, got %d", registry.Count(), len(payload.OnlineUsers))
	}

	resident.handleMessage([]byte(`{"type":"presence_sync"}`))
	expectSilence(t, resident, "Resident")
}

func TestHub_IgnoresMalformedFrames(t *testing.T) {
	hub, _ := newTestHub(t)

	watcher := newMockClient(hub, 1, "Ali", domain.RoleAdmin)
	hub.Register(watcher)
	nextEvent(t, watcher)

	watcher.handleMessage([]byte(`{invalid`))
	watcher.handleMessage([]byte(`{"type":"chat","payload":{"text":"hi"}}`))
	expectSilence(t, watcher, "Watcher")
}

func TestHub_SlowWatcherDropped(t *testing.T) {
	hub, registry := newTestHub(t)

	watcher := newMockClient(hub, 1, "Ali", domain.RoleAdmin)
	hub.Register(watcher)
	nextEvent(t, watcher)

	slow := newMockClient(hub, 2, "Can", domain.RoleManager)
	slow.send = make(chan []byte) // nobody reads, every send fails
	hub.Register(slow)

	ev, payload := nextEvent(t, watcher)
	if ev.Type != domain.EventTypeUserConnected || payload.User.ID != 2 {
		t.Fatalf("Expected user_connected for slow watcher, got %s", ev.Type)
	}

	ev, payload = nextEvent(t, watcher)
	if ev.Type != domain.EventTypeUserDisconnected || payload.User.ID != 2 {
		t.Fatalf("Expected slow watcher to be dropped, got %s", ev.Type)
	}

	if registry.IsOnline(2) {
		t.Error("Expected dropped watcher to be offline")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 client left, got %d", hub.ClientCount())
	}
}

func TestHub_CustomWatcherRoles(t *testing.T) {
	hub, registry := newTestHub(t)
	hub.SetWatcherRoles([]string{domain.RoleUser})

	manager := newMockClient(hub, 1, "Ali", domain.RoleManager)
	hub.Register(manager)
	waitFor(t, "manager online", func() bool { return registry.IsOnline(1) })
	expectSilence(t, manager, "Manager")

	resident := newMockClient(hub, 2, "Can", domain.RoleUser)
	hub.Register(resident)
	ev, _ := nextEvent(t, resident)
	if ev.Type != domain.EventTypeUserConnected {
		t.Errorf("Expected resident watcher to get user_connected, got %s", ev.Type)
	}
}

func TestHub_InvalidPrincipalIgnored(t *testing.T) {
	hub, registry := newTestHub(t)

	watcher := newMockClient(hub, 1, "Ali", domain.RoleAdmin)
	hub.Register(watcher)
	nextEvent(t, watcher)

	ghost := newMockClient(hub, 0, "Ghost", domain.RoleUser)
	hub.Register(ghost)
	waitFor(t, "ghost registered", func() bool { return hub.ClientCount() == 2 })

	expectSilence(t, watcher, "Watcher")
	if registry.Count() != 1 {
		t.Errorf("Expected registry unchanged, got %d users", registry.Count())
	}

	hub.Unregister(ghost)
	waitFor(t, "ghost removed", func() bool { return hub.ClientCount() == 1 })
	expectSilence(t, watcher, "Watcher")
}

func TestHub_Shutdown(t *testing.T) {
	registry := presence.NewRegistry()
	hub := NewHub(registry, zerolog.Nop())
	go hub.Run()

	client := newMockClient(hub, 1, "Ali", domain.RoleUser)
	hub.Register(client)
	waitFor(t, "user online", func() bool { return registry.IsOnline(1) })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := hub.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if _, ok := <-client.send; ok {
		t.Error("Expected send channel closed on shutdown")
	}

	// Calls after shutdown must not block
	hub.Register(newMockClient(hub, 2, "Can", domain.RoleUser))
	hub.Unregister(client)
	if err := hub.Shutdown(ctx); err != nil {
		t.Errorf("Second shutdown failed: %v", err)
	}
}

func TestHub_RaceCondition(t *testing.T) {
	hub, registry := newTestHub(t)

	// Stress test registering/unregistering concurrently
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			c := newMockClient(hub, int64(i%5+1), "Chaos", domain.RoleAdmin)
			hub.Register(c)
			time.Sleep(time.Millisecond)
			hub.Unregister(c)
		}(i)
	}
	for i := 0; i < 50; i++ {
		<-done
	}

	waitFor(t, "registry drained", func() bool { return registry.Count() == 0 })
	if hub.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.ClientCount())
	}
}
