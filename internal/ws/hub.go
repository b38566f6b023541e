// internal/ws/hub.go
package ws

import (
	"encoding/json"
	"sync"

	"prepcoach-service/internal/domain/session"

	"go.uber.org/zap"
)

// Hub fans committed turns out to live transcript subscribers, keyed by
// session id. Delivery is best-effort: it happens after the append commits,
// and a subscriber that cannot keep up is dropped rather than ever applying
// backpressure to the write path.
type Hub struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

type feedMessage struct {
	Type string       `json:"type"`
	Turn session.Turn `json:"turn"`
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[string]map[*client]struct{}),
	}
}

// PublishTurn delivers a committed turn to every subscriber of the session.
func (h *Hub) PublishTurn(sessionID string, t session.Turn) {
	msg, err := json.Marshal(feedMessage{Type: "turn", Turn: t})
	if err != nil {
		h.logger.Error("failed to marshal turn for feed", zap.Error(err))
		return
	}

	h.mu.RLock()
	var doomed []*client
	for c := range h.subs[sessionID] {
		select {
		case c.send <- msg:
		default:
			doomed = append(doomed, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range doomed {
		// Slow consumer; cut it loose.
		h.logger.Warn("dropping slow feed subscriber",
			zap.String("session_id", sessionID),
		)
		h.removeAndClose(sessionID, c)
	}
}

func (h *Hub) add(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*client]struct{})
	}
	h.subs[sessionID][c] = struct{}{}
}

// removeAndClose drops a subscriber and closes its send channel. Closing
// under the write lock excludes concurrent publishers, which only send while
// holding the read lock.
func (h *Hub) removeAndClose(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.subs[sessionID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.subs, sessionID)
		}
	}
	c.close()
}

// Subscribers reports the live subscriber count for a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
