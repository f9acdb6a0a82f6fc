// Package presence tracks which users currently hold at least one live
// realtime connection. State lives in process memory only.
package presence

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmuslimabdulj/talep-presence/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Entry is the public snapshot of one online user
type Entry struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"ad"`
	LastName    string    `json:"soyad"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	ConnectedAt time.Time `json:"connected_at"`
	Connections int       `json:"connections"`
}

// FullName returns "first last" without surrounding blanks
func (e Entry) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// MarshalJSON renders connected_at as ISO-8601 UTC with milliseconds
func (e Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	return json.Marshal(struct {
		alias
		ConnectedAt string `json:"connected_at"`
	}{
		alias:       alias(e),
		ConnectedAt: e.ConnectedAt.UTC().Format(domain.TimestampLayout),
	})
}

// ConnectResult reports the outcome of Connect. User is nil on a no-op.
type ConnectResult struct {
	User       *Entry
	WasOffline bool
}

// DisconnectResult reports the outcome of Disconnect. User is nil on a no-op.
type DisconnectResult struct {
	User        *Entry
	WentOffline bool
}

type record struct {
	user        domain.Principal
	connectedAt time.Time
	connIDs     map[string]struct{}
}

func (r *record) snapshot() Entry {
	return Entry{
		ID:          r.user.ID,
		FirstName:   r.user.FirstName,
		LastName:    r.user.LastName,
		Username:    r.user.Username,
		Role:        r.user.Role,
		ConnectedAt: r.connectedAt,
		Connections: len(r.connIDs),
	}
}

// Registry maps user id to its live connections.
// All methods are safe for concurrent use; each call runs under one lock.
type Registry struct {
	mu       sync.Mutex
	users    map[int64]*record
	collator *collate.Collator
	now      func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		users:    make(map[int64]*record),
		collator: collate.New(language.Turkish),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for connectedAt
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Connect records connectionID for user. WasOffline is true only when this
// is the user's first live connection.
func (r *Registry) Connect(user domain.Principal, connectionID string) ConnectResult {
	if user.ID <= 0 || connectionID == "" {
		return ConnectResult{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.users[user.ID]; ok {
		current.connIDs[connectionID] = struct{}{}
		entry := current.snapshot()
		return ConnectResult{User: &entry}
	}

	rec := &record{
		user:        user,
		connectedAt: r.now(),
		connIDs:     map[string]struct{}{connectionID: {}},
	}
	r.users[user.ID] = rec

	entry := rec.snapshot()
	return ConnectResult{User: &entry, WasOffline: true}
}

// Disconnect drops connectionID for userID. When the last connection goes,
// the entry is removed and the snapshot taken just before removal is
// returned with WentOffline set.
func (r *Registry) Disconnect(userID int64, connectionID string) DisconnectResult {
	if userID <= 0 || connectionID == "" {
		return DisconnectResult{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.users[userID]
	if !ok {
		return DisconnectResult{}
	}

	delete(rec.connIDs, connectionID)
	entry := rec.snapshot()
	if len(rec.connIDs) > 0 {
		return DisconnectResult{User: &entry}
	}

	delete(r.users, userID)
	return DisconnectResult{User: &entry, WentOffline: true}
}

// List returns every online user ordered by role, then full name (both with
// Turkish collation), then id.
func (r *Registry) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, 0, len(r.users))
	for _, rec := range r.users {
		entries = append(entries, rec.snapshot())
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if c := r.collator.CompareString(a.Role, b.Role); c != 0 {
			return c < 0
		}
		if c := r.collator.CompareString(a.FullName(), b.FullName()); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return entries
}

// Count returns the number of online users
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Connections returns the number of live connections across all users
func (r *Registry) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, rec := range r.users {
		total += len(rec.connIDs)
	}
	return total
}

// IsOnline reports whether userID holds at least one connection
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[userID]
	return ok
}
