// Package realtimetest provides a broadcaster that records events for assertions.
package realtimetest

import (
	"sync"

	"github.com/aura-live/backend/internal/realtime"
)

// Event is one recorded broadcast.
type Event struct {
	Name    string
	Payload any
	Target  realtime.Target
}

// Recorder implements realtime.Broadcaster in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Broadcast records the event.
func (r *Recorder) Broadcast(event string, payload any, target realtime.Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: event, Payload: payload, Target: target})
}

// Events returns every recorded event in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named returns the recorded events called name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
