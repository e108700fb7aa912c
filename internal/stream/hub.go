package stream

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmelendez07/MathG/internal/store"
)

// EventName tags every broadcast so subscribers can pattern-match on it
// irrespective of transport framing.
const EventName = "user.activity.streamed"

// GlobalChannel carries all activity.
const GlobalChannel = "log.stream"

// UserChannel names the per-actor stream for one user id.
func UserChannel(userID int64) string {
	return fmt.Sprintf("log.stream.%d", userID)
}

// Frame is the payload delivered to a subscriber.
type Frame struct {
	Channel string       `json:"channel"`
	Event   string       `json:"event"`
	Log     store.Record `json:"log"`
}

// Subscription is one live subscriber on one channel.
type Subscription struct {
	Channel string
	C       <-chan Frame

	hub  *Hub
	send chan Frame
	once sync.Once
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Hub broadcasts newly persisted activity records to live subscribers.
// Delivery is fire-and-forget: a slow or offline subscriber never blocks
// the caller.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe attaches a subscriber to a channel. Authorization happens at
// join time, before this call; the hub itself trusts its callers.
func (h *Hub) Subscribe(channel string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	send := make(chan Frame, buffer)
	sub := &Subscription{Channel: channel, C: send, send: send}
	sub.hub = h

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Notify broadcasts a persisted record on the global channel and, when the
// record has an actor, on that actor's channel.
func (h *Hub) Notify(rec store.Record) {
	h.broadcast(GlobalChannel, rec)
	if rec.UserID != nil {
		h.broadcast(UserChannel(*rec.UserID), rec)
	}
}

func (h *Hub) broadcast(channel string, rec store.Record) {
	frame := Frame{Channel: channel, Event: EventName, Log: rec}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.Channel != channel {
			continue
		}
		select {
		case sub.send <- frame:
		default:
			h.logger.Warn("subscriber too slow, dropping frame",
				"channel", channel, "log_id", rec.ID)
		}
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	close(sub.send)
}
