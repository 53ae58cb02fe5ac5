// Package browser streams asset creation events to content-browser
// clients over websockets.
package browser

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/meshsync/internal/logger"
	"github.com/Faultbox/meshsync/internal/scene"
)

// sendBuffer is how many events a subscriber may fall behind before it
// is dropped.
const sendBuffer = 64

type subscriber struct {
	send chan []byte
}

// Hub fans asset events out to subscribers. It implements
// scene.Notifier.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}

	published atomic.Int64
	dropped   atomic.Int64
	log       *zap.Logger
}

var _ scene.Notifier = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		log:  logger.Named("browser"),
	}
}

// Publish sends ev to every subscriber without blocking. Subscribers
// whose buffer is full are disconnected.
func (h *Hub) Publish(ev scene.AssetEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", zap.Error(err))
		return
	}
	h.published.Add(1)

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- data:
		default:
			h.dropped.Add(1)
			h.log.Warn("dropping slow subscriber")
			h.removeLocked(sub)
		}
	}
}

// Count returns the number of subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Stats returns how many events were published and how many
// subscribers were dropped for falling behind.
func (h *Hub) Stats() (published, dropped int64) {
	return h.published.Load(), h.dropped.Load()
}

func (h *Hub) subscribe() *subscriber {
	sub := &subscriber{send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

// removeLocked closes the subscriber's channel, which ends its writer.
func (h *Hub) removeLocked(sub *subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.send)
}

// CloseAll disconnects every subscriber.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		h.removeLocked(sub)
	}
}
