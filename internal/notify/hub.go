// Package notify fans session updates out to live subscribers.
package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/voicept/internal/narration"
)

// Message types.
const (
	TypePhase  = "phase"
	TypeNotice = "notice"
	TypeAudio  = "audio"
)

// Message is one update for a subscriber. Audio messages carry a frame in
// Audio and are sent as binary websocket frames; the rest are JSON.
type Message struct {
	Type      string            `json:"type"`
	State     *narration.State  `json:"state,omitempty"`
	Notice    *narration.Notice `json:"notice,omitempty"`
	Utterance string            `json:"utterance,omitempty"`
	MIMEType  string            `json:"mimeType,omitempty"`
	Audio     []byte            `json:"-"`
}

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Hub broadcasts messages to subscribers without ever blocking the sender.
// A subscriber that falls behind loses messages.
type Hub struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	buffer  int
	dropped uint64
	logger  zerolog.Logger
}

// Subscription receives messages on C until Unsubscribe.
type Subscription struct {
	C    <-chan Message
	ch   chan Message
	hub  *Hub
	once sync.Once
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: DefaultBuffer,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan Message, h.buffer)
	s := &Subscription{C: ch, ch: ch, hub: h}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many messages were discarded for slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Publish delivers m to every subscriber with room for it.
func (h *Hub) Publish(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- m:
		default:
			h.dropped++
			h.logger.Debug().Str("type", m.Type).Msg("subscriber full, message dropped")
		}
	}
}

// Notify implements narration.Notifier.
func (h *Hub) Notify(n narration.Notice) {
	h.Publish(Message{Type: TypeNotice, Notice: &n})
}

// PhaseChanged implements narration.Observer.
func (h *Hub) PhaseChanged(_, next narration.State) {
	h.Publish(Message{Type: TypePhase, State: &next})
}

// WriteAudio implements speech.Sink.
func (h *Hub) WriteAudio(utteranceID, mimeType string, chunk []byte) error {
	h.Publish(Message{
		Type:      TypeAudio,
		Utterance: utteranceID,
		MIMEType:  mimeType,
		Audio:     append([]byte(nil), chunk...),
	})
	return nil
}

// Close unsubscribes everyone.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}
