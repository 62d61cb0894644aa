package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// TopicRequests carries every request status change; admin dashboards
// subscribe to it.
const TopicRequests = "requests"

type RequestEvent struct {
	Kind       string `json:"kind"`
	RequestID  int64  `json:"request_id"`
	ExternalID string `json:"external_id"`
	UserID     int64  `json:"user_id,omitempty"`
	Status     string `json:"status"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Balance    string `json:"balance,omitempty"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(topic string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][client] = struct{}{}
}

func (h *Hub) Unregister(topic string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		return
	}
	delete(h.clients[topic], client)
	if len(h.clients[topic]) == 0 {
		delete(h.clients, topic)
	}
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Broadcast fans the event out without blocking; slow clients drop messages.
func (h *Hub) Broadcast(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Warn("websocket event not serializable", zap.String("topic", topic), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[topic] {
		select {
		case client.send <- payload:
		default:
		}
	}
}

func (h *Hub) BroadcastRequest(event RequestEvent) {
	h.Broadcast(TopicRequests, event)
}
