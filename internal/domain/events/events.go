package events

import (
	"sync"

	"github.com/rs/zerolog"

	"mediavault/internal/infrastructure/metrics"
)

// Type identifies the kind of a broadcast event.
type Type string

const (
	// TypeProgressUpdate carries an analysis progress percentage.
	TypeProgressUpdate Type = "progress-update"
	// TypeProcessingComplete carries the terminal classification.
	TypeProcessingComplete Type = "processing-complete"
)

// Event is a single broadcast notification. Clients filter by MediaID.
type Event struct {
	Type     Type   `json:"type"`
	MediaID  string `json:"media_id"`
	Progress int    `json:"progress,omitempty"`
	Status   string `json:"status,omitempty"`
}

// ProgressUpdate builds a progress-update event.
func ProgressUpdate(mediaID string, progress int) Event {
	return Event{Type: TypeProgressUpdate, MediaID: mediaID, Progress: progress}
}

// ProcessingComplete builds a processing-complete event.
func ProcessingComplete(mediaID, status string) Event {
	return Event{Type: TypeProcessingComplete, MediaID: mediaID, Status: status}
}

// Broadcaster fans events out to current subscribers. Delivery is
// best-effort: no persistence, no replay, and subscribers that joined after
// an event was published never see it.
type Broadcaster interface {
	Publish(event Event)
	Subscribe() *Subscription
}

// subscriptionBuffer bounds how far a subscriber may lag before events are
// dropped for it. Per-id ordering is preserved for subscribers that keep up
// because each pipeline task publishes its own events sequentially.
const subscriptionBuffer = 16

// Subscription is one listener on the hub. Receive from C; Close when done.
type Subscription struct {
	C chan Event

	hub  *Hub
	once sync.Once
}

// Close detaches the subscription from the hub and releases its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub is a mutex-guarded in-process broadcaster.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
	log  zerolog.Logger
}

// NewHub creates an event hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subs: make(map[*Subscription]struct{}),
		log:  log.With().Str("component", "event-hub").Logger(),
	}
}

// Subscribe registers a new listener.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		C:   make(chan Event, subscriptionBuffer),
		hub: h,
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	metrics.EventSubscribers.Inc()
	return sub
}

// Publish delivers the event to every current subscriber. A subscriber whose
// buffer is full is skipped rather than blocking the publisher.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.C <- event:
		default:
			metrics.EventsDroppedTotal.Inc()
			h.log.Debug().
				Str("media_id", event.MediaID).
				Str("event_type", string(event.Type)).
				Msg("subscriber buffer full, event dropped")
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.C)
		metrics.EventSubscribers.Dec()
	}
	h.mu.Unlock()
}

// SubscriberCount returns the number of attached subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
