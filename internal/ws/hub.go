// Package ws fans live daemon snapshots out to dashboard websocket clients.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Hub delivers published messages to every subscribed client. Slow clients
// are skipped rather than allowed to stall the publisher.
type Hub struct {
	logger *logrus.Logger

	mu          sync.RWMutex
	subscribers map[string]chan []byte
	last        []byte
	closed      bool
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		logger:      logger,
		subscribers: make(map[string]chan []byte),
	}
}

// Subscribe registers a new client and returns its id and receive channel.
// The most recent published message, if any, is queued first so a client
// has state to render before the next poll cycle lands.
func (h *Hub) Subscribe() (string, <-chan []byte) {
	id := uuid.NewString()
	ch := make(chan []byte, 16)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	if h.last != nil {
		ch <- h.last
	}
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a client and closes its channel. Unknown ids are a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.subscribers[id]
	if !ok {
		return
	}
	delete(h.subscribers, id)
	close(ch)
}

// Publish marshals v and fans it out to all subscribers.
func (h *Hub) Publish(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to marshal websocket message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = data
	for id, ch := range h.subscribers {
		select {
		case ch <- data:
		default:
			h.logger.WithField("client_id", id).Debug("Dropping message for slow websocket client")
		}
	}
}

// ClientCount reports how many clients are currently subscribed.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close drops all subscribers and rejects future ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}
