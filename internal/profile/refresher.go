package profile

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"zg-client/internal/client"
	"zg-client/internal/events"
)

// Refresher turns bursts of ProfileChanged events into a single cache
// refresh, fired one debounce window after the first event of the burst.
type Refresher struct {
	cache  *Cache
	bus    *events.Bus
	sub    *events.Subscription
	window time.Duration
	flush  chan chan bool

	runs atomic.Int64
}

func NewRefresher(cache *Cache, bus *events.Bus, window time.Duration) *Refresher {
	return &Refresher{
		cache:  cache,
		bus:    bus,
		sub:    bus.Subscribe(events.ProfileChanged),
		window: window,
		flush:  make(chan chan bool),
	}
}

func (r *Refresher) Run(ctx context.Context) {
	defer r.bus.Unsubscribe(r.sub)

	var timer *time.Timer
	var fire <-chan time.Time
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, fire = nil, nil
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return

		case _, ok := <-r.sub.Events():
			if !ok {
				return
			}
			if timer == nil {
				timer = time.NewTimer(r.window)
				fire = timer.C
			}

		case <-fire:
			stop()
			r.refresh(ctx)

		case done := <-r.flush:
			pending := timer != nil
			stop()
		drain:
			for {
				select {
				case _, ok := <-r.sub.Events():
					if !ok {
						break drain
					}
					pending = true
				default:
					break drain
				}
			}
			if pending {
				r.refresh(ctx)
			}
			done <- pending
		}
	}
}

// Flush runs any pending refresh now and reports whether one ran.
func (r *Refresher) Flush(ctx context.Context) bool {
	done := make(chan bool, 1)
	select {
	case r.flush <- done:
	case <-ctx.Done():
		return false
	}
	select {
	case ran := <-done:
		return ran
	case <-ctx.Done():
		return false
	}
}

// Runs reports how many debounced refreshes have been performed.
func (r *Refresher) Runs() int64 {
	return r.runs.Load()
}

func (r *Refresher) refresh(ctx context.Context) {
	r.runs.Add(1)
	if _, err := r.cache.Refresh(ctx); err != nil && !errors.Is(err, client.ErrNoCredential) {
		log.Printf("[Refresher] profile refresh: %v", err)
	}
}
