package reconciliation

import (
	"sync"
	"time"
)

const DefaultToastTTL = 5 * time.Second

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

type Notification struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Notifier interface {
	Notify(n Notification)
}

// Flash queues transient notifications until the next render. Entries older
// than the TTL are dropped unseen.
type Flash struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items []Notification
}

func NewFlash(ttl time.Duration, now func() time.Time) *Flash {
	if now == nil {
		now = time.Now
	}
	return &Flash{ttl: ttl, now: now}
}

func (f *Flash) Notify(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = f.now()
	}
	f.items = append(f.items, n)
}

// Drain returns the live notifications and empties the queue.
func (f *Flash) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := f.now().Add(-f.ttl)
	out := make([]Notification, 0, len(f.items))
	for _, n := range f.items {
		if f.ttl <= 0 || n.CreatedAt.After(cutoff) {
			out = append(out, n)
		}
	}
	f.items = nil
	return out
}

func (f *Flash) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
