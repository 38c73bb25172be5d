package api

import (
	"encoding/json"
	"sync"
)

// Event is the SSE payload wrapper delivered to chat front-ends.
type Event struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
	Payload   any    `json:"payload,omitempty"`
}

// Front-end event vocabulary.
const (
	EventBeginStep      = "begin_step"
	EventStepOutput     = "step_output"
	EventStreamFragment = "stream_fragment"
	EventEndMessage     = "end_message"
	EventError          = "error"
)

type subscriber chan []byte

// Hub fans events out to the subscribers of a session. Sends are
// non-blocking; a slow consumer drops events rather than stalling the
// turn.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[subscriber]struct{}{}}
}

func (h *Hub) Subscribe(sessionID string) (<-chan []byte, func()) {
	ch := make(subscriber, 64)
	h.mu.Lock()
	set := h.subs[sessionID]
	if set == nil {
		set = map[subscriber]struct{}{}
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if set, ok := h.subs[sessionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
		close(ch)
		h.mu.Unlock()
	}
	return ch, unsubscribe
}

func (h *Hub) Publish(sessionID, event string, payload any) {
	b, _ := json.Marshal(Event{Event: event, SessionID: sessionID, Payload: payload})
	h.mu.RLock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- b:
		default:
		}
	}
	h.mu.RUnlock()
}
