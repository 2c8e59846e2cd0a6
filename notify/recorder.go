package notify

import (
	"context"
	"sync"
)

// Recorder keeps every notification in memory. Tests use it to assert on side effects.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
	Err  error
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.Err
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *Recorder) OfType(t EventType) []Notification {
	var out []Notification
	for _, n := range r.Sent() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
