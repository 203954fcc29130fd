package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/domain"
)

// Hub fans dashboard frames out to the channels attached to each dashboard.
type Hub struct {
	topics  map[string]map[*Client]struct{}
	clients map[string]*Client
	mu      sync.RWMutex
	onCount func(dashboardID string, clients int)
}

func NewHub() *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		clients: make(map[string]*Client),
	}
}

// OnClientCount registers a callback fired whenever a dashboard gains or loses a client.
func (h *Hub) OnClientCount(fn func(dashboardID string, clients int)) {
	h.mu.Lock()
	h.onCount = fn
	h.mu.Unlock()
}

func (h *Hub) AttachClient(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	if h.topics[c.dashboardID] == nil {
		h.topics[c.dashboardID] = make(map[*Client]struct{})
	}
	h.topics[c.dashboardID][c] = struct{}{}
	count := len(h.topics[c.dashboardID])
	notify := h.onCount
	h.mu.Unlock()

	if notify != nil {
		notify(c.dashboardID, count)
	}
	slog.Info("ws client attached", slog.String("connectionId", c.id), slog.String("dashboard", c.dashboardID), slog.String("userId", c.userID))
}

func (h *Hub) detachClient(c *Client) {
	h.mu.Lock()
	count, removed := h.detachLocked(c)
	notify := h.onCount
	h.mu.Unlock()

	if removed && notify != nil {
		notify(c.dashboardID, count)
	}
}

func (h *Hub) detachLocked(c *Client) (int, bool) {
	if c == nil {
		return 0, false
	}
	if _, ok := h.clients[c.id]; !ok {
		return 0, false
	}
	delete(h.clients, c.id)
	subs := h.topics[c.dashboardID]
	delete(subs, c)
	count := len(subs)
	if count == 0 {
		delete(h.topics, c.dashboardID)
	}
	c.close()
	slog.Info("ws client detached", slog.String("connectionId", c.id), slog.String("dashboard", c.dashboardID), slog.String("userId", c.userID))
	return count, true
}

// Broadcast encodes msg once and queues it on every client of the dashboard that has
// not already seen revision. A client whose buffer is full is detached; it will resync
// from a snapshot when it reconnects.
func (h *Hub) Broadcast(_ context.Context, dashboardID string, revision uint64, msg domain.DashboardRx) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("broadcast marshal error", slog.String("dashboard", dashboardID), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	subs := h.topics[dashboardID]
	clients := make([]*Client, 0, len(subs))
	for c := range subs {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if revision > 0 && revision <= c.syncedAt.Load() {
			continue
		}
		if !c.enqueue(data) {
			slog.Warn("ws client too slow, detaching", slog.String("connectionId", c.id), slog.String("dashboard", dashboardID))
			go h.detachClient(c)
		}
	}
}

// ClientCount returns the number of channels attached to a dashboard.
func (h *Hub) ClientCount(dashboardID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[dashboardID])
}

// Close detaches every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.detachLocked(c)
	}
}

var _ port.Broadcaster = (*Hub)(nil)
