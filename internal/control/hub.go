// Package control exposes a running relay over HTTP: a websocket for events
// and commands, Prometheus metrics and a health probe.
package control

import (
	"encoding/json"
	"sync"

	"github.com/andresmejia3/headtrack/internal/monitoring"
	"github.com/andresmejia3/headtrack/internal/relay"
	"github.com/andresmejia3/headtrack/internal/types"
)

// subscriberBuffer is how many events a slow client may lag behind before
// updates to it are dropped.
const subscriberBuffer = 64

// Hub fans relay events out to websocket subscribers. It implements
// relay.Observer and never blocks the relay worker.
type Hub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[chan []byte]struct{}{}}
}

func (h *Hub) subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish marshals ev and offers it to every subscriber. Full subscribers
// miss the event.
func (h *Hub) Publish(ev types.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		monitoring.Logf("control: marshal %s event: %v", ev.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- data:
		default:
		}
	}
}

func (h *Hub) OnTracking(t relay.Tracking) {
	h.Publish(types.TrackingEvent(t))
}

func (h *Hub) OnStopped(sessionID string) {
	h.Publish(types.Event{Type: types.EvStopped, SessionID: sessionID})
}

func (h *Hub) OnError(sessionID string, err *relay.Error) {
	h.Publish(types.ErrorEvent(sessionID, string(err.Kind), err.Message()))
}
