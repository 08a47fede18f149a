package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"watch-party-service/internal/models"
	"watch-party-service/internal/observability"
)

// Hub maintains the per-party broadcast groups. Group membership is a cache
// of who is currently reachable; authorization facts always come from storage.
type Hub struct {
	parties  map[int]map[*websocket.Conn]bool
	connInfo map[int]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		parties:  make(map[int]map[*websocket.Conn]bool),
		connInfo: make(map[int]map[*websocket.Conn]ConnInfo),
	}
}

// Subscribe registers a connection to a party's broadcast group.
func (h *Hub) Subscribe(partyID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.parties[partyID]; !ok {
		h.parties[partyID] = make(map[*websocket.Conn]bool)
	}
	h.parties[partyID][conn] = true
	if _, ok := h.connInfo[partyID]; !ok {
		h.connInfo[partyID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[partyID][conn] = info
}

// Unsubscribe removes a connection from a party's broadcast group.
func (h *Hub) Unsubscribe(partyID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(partyID, conn)
}

func (h *Hub) removeLocked(partyID int, conn *websocket.Conn) {
	if conns, ok := h.parties[partyID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.parties, partyID)
		}
	}
	if infos, ok := h.connInfo[partyID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, partyID)
		}
	}
}

// UnsubscribeUser force-removes every connection of a user from a party's
// group and returns the removed connections so the caller can notify them.
func (h *Hub) UnsubscribeUser(partyID, userID int) []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	var removed []*websocket.Conn
	for conn, info := range h.connInfo[partyID] {
		if info.UserID == userID {
			removed = append(removed, conn)
		}
	}
	for _, conn := range removed {
		h.removeLocked(partyID, conn)
	}
	return removed
}

// UnsubscribeAll removes a connection from every party group it is in and
// returns the affected party ids, keyed to the user the connection belonged to.
func (h *Hub) UnsubscribeAll(conn *websocket.Conn) []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var partyIDs []int
	for partyID, infos := range h.connInfo {
		if _, ok := infos[conn]; ok {
			partyIDs = append(partyIDs, partyID)
		}
	}
	for _, partyID := range partyIDs {
		h.removeLocked(partyID, conn)
	}
	return partyIDs
}

// Subscribers returns a snapshot of a party's group.
func (h *Hub) Subscribers(partyID int) []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*websocket.Conn, 0, len(h.parties[partyID]))
	for conn := range h.parties[partyID] {
		conns = append(conns, conn)
	}
	return conns
}

// IsSubscribed reports whether the connection is in the party's group.
func (h *Hub) IsSubscribed(partyID int, conn *websocket.Conn) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.parties[partyID][conn]
}

// Broadcast fans an event out to every connection in the party's group.
// Sends never await per-recipient acknowledgment.
func (h *Hub) Broadcast(partyID int, event models.ServerEvent) {
	h.broadcast(partyID, nil, event)
}

// BroadcastExcept fans an event out to everyone in the group but the sender.
func (h *Hub) BroadcastExcept(partyID int, sender *websocket.Conn, event models.ServerEvent) {
	h.broadcast(partyID, sender, event)
}

func (h *Hub) broadcast(partyID int, skip *websocket.Conn, event models.ServerEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.parties[partyID]))
	for conn := range h.parties[partyID] {
		if conn != skip {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.Unsubscribe(partyID, conn)
			observability.IncWSEvent("party", "ws_error")
		}
	}
}

// SendTo writes an event to a single connection.
func (h *Hub) SendTo(conn *websocket.Conn, event models.ServerEvent) {
	if conn == nil {
		return
	}
	payload, _ := json.Marshal(event)
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("websocket write error: %v", err)
		conn.Close()
		observability.IncWSEvent("party", "ws_error")
	}
}

// CloseParty broadcasts a terminal event and tears the group down. Later
// events for the party id fail the fresh active-room read and are dropped.
func (h *Hub) CloseParty(partyID int, event models.ServerEvent) {
	h.Broadcast(partyID, event)
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.parties, partyID)
	delete(h.connInfo, partyID)
}
