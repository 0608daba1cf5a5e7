package api

import (
	"sync"
	"time"

	"lamp/device"
)

const (
	defaultEventHistory = 64
	subscriberBuffer    = 16
)

// EventRecord is a playback event as served over HTTP.
type EventRecord struct {
	Time       time.Time `json:"time"`
	ActuatorID string    `json:"actuator_id"`
	Recording  string    `json:"recording"`
	Type       string    `json:"type"`
	Idle       bool      `json:"idle,omitempty"`
	Commands   int       `json:"commands"`
	Error      string    `json:"error,omitempty"`
}

// EventHub keeps recent playback events and fans them out to subscribers.
// Publish never blocks: a subscriber that falls behind misses events.
type EventHub struct {
	mu      sync.Mutex
	history []EventRecord
	limit   int
	subs    map[chan EventRecord]struct{}
}

// NewEventHub keeps the last limit events; non-positive limits use the default.
func NewEventHub(limit int) *EventHub {
	if limit <= 0 {
		limit = defaultEventHistory
	}
	return &EventHub{limit: limit, subs: make(map[chan EventRecord]struct{})}
}

// Publish has the device.PlaybackListener signature.
func (h *EventHub) Publish(ev device.PlaybackEvent) {
	rec := EventRecord{
		Time:       time.Now(),
		ActuatorID: ev.ActuatorID,
		Recording:  ev.Recording,
		Type:       string(ev.Type),
		Idle:       ev.Idle,
		Commands:   ev.Commands,
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, rec)
	if over := len(h.history) - h.limit; over > 0 {
		h.history = append(h.history[:0:0], h.history[over:]...)
	}
	for ch := range h.subs {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Recent returns the retained events, oldest first.
func (h *EventHub) Recent() []EventRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]EventRecord, len(h.history))
	copy(out, h.history)
	return out
}

// Subscribers reports how many streams are attached.
func (h *EventHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Subscribe returns a channel of new events and a function that releases it.
func (h *EventHub) Subscribe() (<-chan EventRecord, func()) {
	ch := make(chan EventRecord, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}
