package realtime

import (
	"sync"
)

// Change feed event types, matching the row-level events the store emits
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
)

// Event is a row-level change delivered to subscribers. Old and New carry the
// row snapshots before and after the change; Old is nil for inserts.
type Event struct {
	Table string      `json:"table"`
	Type  string      `json:"type"`
	Old   interface{} `json:"old,omitempty"`
	New   interface{} `json:"new"`
}

// Subscription is one listener's buffered view of the feed. Events arrive on
// C in publish order. Close the subscription when the session ends, otherwise
// the listener leaks.
type Subscription struct {
	C    chan Event
	feed *Feed
	id   uint64
}

// Close unsubscribes from the feed and drains the channel
func (s *Subscription) Close() {
	s.feed.unsubscribe(s.id)
}

// Feed is an in-process publish/subscribe hub for row change events. It
// stands in for the hosted change feed: publishers never block, and a slow
// subscriber drops its oldest undelivered event rather than stalling others.
type Feed struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
	buffer int
}

// NewFeed creates a feed whose subscriptions buffer up to buffer events
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
	}
}

// Subscribe registers a new listener
func (f *Feed) Subscribe() *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	sub := &Subscription{
		C:    make(chan Event, f.buffer),
		feed: f,
		id:   f.nextID,
	}
	f.subs[sub.id] = sub
	return sub
}

// Publish delivers the event to every active subscription without blocking
func (f *Feed) Publish(event Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		select {
		case sub.C <- event:
		default:
			// Buffer full: drop the oldest event to make room so the
			// subscriber still converges on recent state.
			select {
			case <-sub.C:
			default:
			}
			select {
			case sub.C <- event:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscriptions
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) unsubscribe(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if sub, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(sub.C)
	}
}
