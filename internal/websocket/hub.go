package websocket

import (
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"
)

// WalletUpdate is pushed to a user's connections after a committed
// transaction changed their wallet.
type WalletUpdate struct {
	Owner      int64  `json:"owner"`
	Assets     int64  `json:"assets"`
	Delta      int64  `json:"delta"`
	Reason     string `json:"reason"`
	TransferID string `json:"transfer_id,omitempty"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// BroadcastWallet never blocks: a client with a full buffer misses the update.
func (h *Hub) BroadcastWallet(userID int64, update WalletUpdate) {
	payload := encode(update)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		if !client.deliver(payload) {
			log.WithFields(log.Fields{
				"owner":       userID,
				"transfer_id": update.TransferID,
			}).Warn("wallet update dropped, subscriber buffer full")
		}
	}
}

func encode(update WalletUpdate) []byte {
	payload, _ := json.Marshal(update)
	return payload
}
