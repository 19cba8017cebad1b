package events

import (
	"testing"
)

func TestBus_PublishFiltersByType(t *testing.T) {
	bus := NewBus(4)
	profile := bus.Subscribe(ProfileChanged)
	all := bus.Subscribe()

	bus.Publish(Event{Type: ProfileChanged, Source: "shop"})
	bus.Publish(Event{Type: SessionExpired})

	if got := len(profile.Events()); got != 1 {
		t.Errorf("profile subscriber got %d events, want 1", got)
	}
	if got := len(all.Events()); got != 2 {
		t.Errorf("catch-all subscriber got %d events, want 2", got)
	}

	e := <-profile.Events()
	if e.Source != "shop" || e.Timestamp.IsZero() {
		t.Errorf("event = %+v", e)
	}
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := NewBus(1)
	sub := bus.Subscribe(ProfileChanged)

	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: ProfileChanged})
	}

	if got := len(sub.Events()); got != 1 {
		t.Errorf("buffered events = %d, want 1", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(1)
	sub := bus.Subscribe()

	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)

	if bus.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", bus.Subscribers())
	}
	if _, ok := <-sub.Events(); ok {
		t.Error("channel still open after Unsubscribe()")
	}

	bus.Publish(Event{Type: ProfileChanged})
}
