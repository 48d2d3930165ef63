package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeed_PublishSubscribe(t *testing.T) {
	feed := NewFeed(8)
	sub := feed.Subscribe()
	defer sub.Close()

	feed.Publish(Event{Table: "repair_requests", Type: EventInsert})
	feed.Publish(Event{Table: "repair_updates", Type: EventInsert})

	first := <-sub.C
	assert.Equal(t, "repair_requests", first.Table)
	assert.Equal(t, EventInsert, first.Type)

	second := <-sub.C
	assert.Equal(t, "repair_updates", second.Table)
}

func TestFeed_MultipleSubscribers(t *testing.T) {
	feed := NewFeed(8)
	subA := feed.Subscribe()
	subB := feed.Subscribe()
	defer subA.Close()
	defer subB.Close()

	assert.Equal(t, 2, feed.SubscriberCount())

	feed.Publish(Event{Table: "repair_requests", Type: EventUpdate})

	assert.Equal(t, EventUpdate, (<-subA.C).Type)
	assert.Equal(t, EventUpdate, (<-subB.C).Type)
}

func TestFeed_UnsubscribeStopsDelivery(t *testing.T) {
	feed := NewFeed(8)
	sub := feed.Subscribe()

	sub.Close()
	assert.Equal(t, 0, feed.SubscriberCount())

	// Channel is closed after unsubscribe
	_, open := <-sub.C
	assert.False(t, open)

	// Publishing after unsubscribe must not panic
	feed.Publish(Event{Table: "repair_requests", Type: EventUpdate})
}

func TestFeed_SlowSubscriberDropsOldest(t *testing.T) {
	feed := NewFeed(2)
	sub := feed.Subscribe()
	defer sub.Close()

	feed.Publish(Event{Type: EventInsert, New: 1})
	feed.Publish(Event{Type: EventInsert, New: 2})
	// Buffer full: the oldest event is dropped to make room
	feed.Publish(Event{Type: EventInsert, New: 3})

	first := <-sub.C
	second := <-sub.C
	assert.Equal(t, 2, first.New)
	assert.Equal(t, 3, second.New)
}
