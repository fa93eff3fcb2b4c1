// Package notifytest provides a Publisher that records events for assertions
package notifytest

import "sync"

// Message is one recorded publication
type Message struct {
	Event   string
	Payload interface{}
}

// Recorder is a notify.Publisher that keeps every message in memory
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Publish(event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Event: event, Payload: payload})
}

// Messages returns a copy of the recorded messages
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Count returns how many times event was published
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Event == event {
			n++
		}
	}
	return n
}
