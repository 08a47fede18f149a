package presence

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Registry tracks which transport connections belong to which user. A user is
// online globally iff their set is non-empty. Process-local by design; it is
// rebuilt empty on every start.
type Registry struct {
	conns map[int]map[*websocket.Conn]bool
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[int]map[*websocket.Conn]bool)}
}

// Add registers a connection for a user.
func (r *Registry) Add(userID int, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[userID]; !ok {
		r.conns[userID] = make(map[*websocket.Conn]bool)
	}
	r.conns[userID][conn] = true
}

// Remove drops a connection; the user entry is removed once empty so online
// checks stay an O(1) existence test.
func (r *Registry) Remove(userID int, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conns, ok := r.conns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.conns, userID)
		}
	}
}

// IsOnline reports whether the user has any live connection.
func (r *Registry) IsOnline(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Connections returns a snapshot of the user's live connections.
func (r *Registry) Connections(userID int) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*websocket.Conn, 0, len(r.conns[userID]))
	for conn := range r.conns[userID] {
		conns = append(conns, conn)
	}
	return conns
}

// OnlineUsers returns the ids of all users with a live connection.
func (r *Registry) OnlineUsers() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userIDs := make([]int, 0, len(r.conns))
	for userID := range r.conns {
		userIDs = append(userIDs, userID)
	}
	return userIDs
}
