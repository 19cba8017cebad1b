package view

import (
	"context"
	"log"
	"sync"
	"time"

	"zg-client/internal/client"
	"zg-client/internal/events"
)

// Loader fetches a whole remote collection.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Collection owns one remote list. The list is replaced wholesale by every
// successful Load; the last Load to finish wins.
type Collection[T any] struct {
	name   string
	life   context.Context
	bus    *events.Bus
	load   Loader[T]
	flight *inflight

	mu       sync.RWMutex
	items    []T
	loadedAt time.Time
}

func NewCollection[T any](life context.Context, name string, bus *events.Bus, load Loader[T]) *Collection[T] {
	return &Collection[T]{
		name:   name,
		life:   life,
		bus:    bus,
		load:   load,
		flight: newInflight(),
	}
}

func (c *Collection[T]) Load(ctx context.Context) error {
	ctx, stop := bind(ctx, c.life)
	defer stop()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items = items
	c.loadedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

func (c *Collection[T]) Pending(key string) bool {
	return c.flight.busy(key)
}

// Mutate runs fn once per key at a time. After fn succeeds the collection
// is reloaded and a ProfileChanged event is published; a failed fn leaves
// everything as it was.
func (c *Collection[T]) Mutate(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if !c.flight.acquire(key) {
		return client.ErrBusy
	}
	defer c.flight.release(key)

	ctx, stop := bind(ctx, c.life)
	defer stop()

	if err := fn(ctx); err != nil {
		return err
	}

	if err := c.Load(ctx); err != nil {
		log.Printf("[View] %s reload after %s failed: %v", c.name, key, err)
	}
	if c.bus != nil {
		c.bus.Publish(events.Event{Type: events.ProfileChanged, Source: c.name})
	}
	return nil
}

type inflight struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newInflight() *inflight {
	return &inflight{keys: make(map[string]bool)}
}

func (f *inflight) acquire(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false
	}
	f.keys[key] = true
	return true
}

func (f *inflight) release(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
}

func (f *inflight) busy(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key]
}

// bind ties a call context to the owning view's lifetime.
func bind(ctx, life context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
