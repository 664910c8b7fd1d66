package notify

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/screening-comb/app/event"
)

var _ Notifier = (*Recent)(nil)

const DefaultRecentCapacity = 200

type Entry struct {
	Event      event.Event
	NotifiedAt time.Time
}

// Recent keeps the most recently notified events in memory.
type Recent struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	now      func() time.Time
}

func NewRecent(capacity int) *Recent {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &Recent{capacity: capacity, now: time.Now}
}

func (r *Recent) Notify(ctx context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, Entry{Event: e, NotifiedAt: r.now()})
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = append(r.entries[:0:0], r.entries[over:]...)
	}
	return nil
}

func (r *Recent) NotifyBootstrap(ctx context.Context, count int) error {
	return nil
}

// Entries returns up to limit entries, newest first. limit <= 0 means all.
func (r *Recent) Entries(limit int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.entries)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Entry, 0, n)
	for i := len(r.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.entries[i])
	}
	return out
}

func (r *Recent) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
