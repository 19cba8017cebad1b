package events

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	// ProfileChanged means a mutation may have moved the user's balance,
	// pinned item or counters.
	ProfileChanged Type = "profile_changed"
	SessionExpired Type = "session_expired"
)

type Event struct {
	Type      Type
	Source    string
	Timestamp time.Time
}

type Subscription struct {
	ID    string
	types map[Type]bool
	ch    chan Event
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) wants(t Type) bool {
	return len(s.types) == 0 || s.types[t]
}

// Bus fans events out to subscribers. A subscriber whose buffer is full
// misses the event rather than stalling the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	buffer int
}

func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
	}
}

// Subscribe registers for the given types; none means every type.
func (b *Bus) Subscribe(types ...Type) *Subscription {
	sub := &Subscription{
		ID:    uuid.New().String(),
		types: make(map[Type]bool, len(types)),
		ch:    make(chan Event, b.buffer),
	}
	for _, t := range types {
		sub.types[t] = true
	}

	b.mu.Lock()
	b.subs[sub.ID] = sub
	b.mu.Unlock()

	return sub
}

func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.ID]; ok {
		delete(b.subs, sub.ID)
		close(sub.ch)
	}
}

func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subs {
		if !sub.wants(e.Type) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			log.Printf("[Events] subscriber %s buffer full, dropping %s", id, e.Type)
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
