package realtime

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// BalanceUpdate is pushed to a profile's subscribers whenever its star
// balance changes (task approval or redemption).
type BalanceUpdate struct {
	ProfileID int64  `json:"profile_id"`
	Balance   int    `json:"balance"`
	Reason    string `json:"reason"`
}

// Hub maintains active balance subscriptions keyed by profile ID
type Hub struct {
	mu sync.Mutex

	// Connections subscribed to each profile's balance
	subscribers map[int64]map[*websocket.Conn]bool

	upgrader websocket.Upgrader
}

// NewHub creates a new hub for managing balance subscriptions
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[int64]map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			// Session cookie auth happens before the upgrade
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe upgrades an HTTP connection to WebSocket and subscribes it to
// the given profile's balance updates. Blocks until the client disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, profileID int64) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	h.mu.Lock()
	if h.subscribers[profileID] == nil {
		h.subscribers[profileID] = make(map[*websocket.Conn]bool)
	}
	h.subscribers[profileID][ws] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subscribers[profileID], ws)
		if len(h.subscribers[profileID]) == 0 {
			delete(h.subscribers, profileID)
		}
		h.mu.Unlock()
		ws.Close()
	}()

	// Drain client frames to detect disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// PublishBalance sends a balance update to every connection subscribed to
// the profile. Dead connections are dropped.
func (h *Hub) PublishBalance(profileID int64, balance int, reason string) {
	update := BalanceUpdate{ProfileID: profileID, Balance: balance, Reason: reason}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.subscribers[profileID] {
		if err := client.WriteJSON(update); err != nil {
			log.Printf("Error sending balance update: %v", err)
			client.Close()
			delete(h.subscribers[profileID], client)
		}
	}
}

// SubscriberCount reports how many connections are watching a profile
func (h *Hub) SubscriberCount(profileID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[profileID])
}
