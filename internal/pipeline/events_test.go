package pipeline

import (
	"io"
	"log"
	"testing"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.Subscribe(func(Event) { order = append(order, "first") })
	bus.Subscribe(func(Event) { order = append(order, "second") })
	bus.Subscribe(func(Event) { order = append(order, "third") })

	bus.Emit(Event{Kind: EventJobCreated})

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("expected delivery in subscription order, got %v", order)
	}
}

func TestBusKindFiltering(t *testing.T) {
	bus := NewBus(nil)

	var completed, all int
	bus.Subscribe(func(Event) { completed++ }, EventJobCompleted)
	bus.Subscribe(func(Event) { all++ })

	bus.Emit(Event{Kind: EventJobCreated})
	bus.Emit(Event{Kind: EventJobCompleted})
	bus.Emit(Event{Kind: EventJobFailed})

	if completed != 1 {
		t.Fatalf("filtered listener saw %d events, expected 1", completed)
	}
	if all != 3 {
		t.Fatalf("unfiltered listener saw %d events, expected 3", all)
	}
}

func TestBusListenerPanicDoesNotStopOthers(t *testing.T) {
	bus := NewBus(log.New(io.Discard, "", 0))

	delivered := false
	bus.Subscribe(func(Event) { panic("listener bug") })
	bus.Subscribe(func(Event) { delivered = true })

	bus.Emit(Event{Kind: EventJobStarted})

	if !delivered {
		t.Fatalf("a panicking listener must not block later listeners")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(nil)

	count := 0
	id := bus.Subscribe(func(Event) { count++ })

	bus.Emit(Event{Kind: EventJobCreated})
	if !bus.Unsubscribe(id) {
		t.Fatalf("expected unsubscribe to find the listener")
	}
	if bus.Unsubscribe(id) {
		t.Fatalf("expected second unsubscribe to report absence")
	}
	bus.Emit(Event{Kind: EventJobCreated})

	if count != 1 {
		t.Fatalf("listener ran %d times, expected 1", count)
	}
}
