// Package broadcast delivers stage-boundary progress events to live
// subscribers. Delivery is best-effort per subscriber: one slow or failed
// subscriber never blocks the pipeline or its peers.
package broadcast

import (
	"sync"
	"time"
)

// EventType enumerates the progress event kinds.
type EventType string

const (
	EventStart         EventType = "start"
	EventProgress      EventType = "progress"
	EventStageComplete EventType = "stage_complete"
	EventError         EventType = "error"
	EventComplete      EventType = "complete"
)

// Event is one progress notification.
type Event struct {
	Type      EventType `json:"type"`
	Stage     string    `json:"stage,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Broker fans events out to subscribers over buffered channels.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe func. The channel is closed on unsubscribe.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers ev to every current subscriber. A subscriber whose buffer
// is full simply misses the event; a send on a concurrently closed channel is
// recovered and ignored.
func (b *Broker) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.mu.RLock()
	chans := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chans = append(chans, ch)
	}
	b.mu.RUnlock()

	for _, ch := range chans {
		deliver(ch, ev)
	}
}

func deliver(ch chan Event, ev Event) {
	defer func() { _ = recover() }()
	select {
	case ch <- ev:
	default:
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
