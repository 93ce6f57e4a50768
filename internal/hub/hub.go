// Package hub pushes live readings to connected viewers.
//
// The hub keeps no history: a viewer only sees readings broadcast while it is
// connected. Past readings come from the query API.
package hub

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Ramdhani171024/uts-iot/internal/metrics"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/types"
)

// EventSensorData is the event name viewers listen on.
const EventSensorData = "sensorData"

// Subscriber is one live connection. socketio.Conn satisfies it.
type Subscriber interface {
	ID() string
	Emit(event string, v ...interface{})
}

type Hub struct {
	mu      sync.RWMutex
	subs    map[string]Subscriber
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		subs:    make(map[string]Subscriber),
		logger:  logger,
		metrics: m,
	}
}

// SubscriberConnected adds s, replacing any subscriber with the same session id.
func (h *Hub) SubscriberConnected(s Subscriber) {
	h.mu.Lock()
	h.subs[s.ID()] = s
	n := len(h.subs)
	h.mu.Unlock()

	h.metrics.HubSubscribers.Set(float64(n))
	h.logger.Info("viewer connected", "session_id", s.ID(), "viewers", n)
}

// SubscriberDisconnected is a no-op for unknown ids, so duplicate disconnect
// and error callbacks for the same session are harmless.
func (h *Hub) SubscriberDisconnected(id string) {
	h.mu.Lock()
	_, ok := h.subs[id]
	delete(h.subs, id)
	n := len(h.subs)
	h.mu.Unlock()

	if !ok {
		return
	}
	h.metrics.HubSubscribers.Set(float64(n))
	h.logger.Info("viewer disconnected", "session_id", id, "viewers", n)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers r to a snapshot of the current subscribers. Delivery is
// fire-and-forget; a failure on one subscriber is logged and skipped.
func (h *Hub) Broadcast(r types.LiveReading) {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	h.metrics.HubBroadcasts.Inc()
	for _, s := range targets {
		if err := deliver(s, r); err != nil {
			h.logger.Warn("live delivery failed", "session_id", s.ID(), "error", err)
		}
	}
}

func deliver(s Subscriber, r types.LiveReading) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("emit panicked: %v", p)
		}
	}()
	s.Emit(EventSensorData, r)
	return nil
}
