package events

import (
	"sync"
	"testing"
)

func TestSubscribeReceivesMatchingEvents(t *testing.T) {
	e := NewEmitter()
	var mu sync.Mutex
	var got []Event
	e.Subscribe(EventApplied, func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})

	e.Emit(Event{Type: EventApplied, TrxID: "abc"})
	e.Emit(Event{Type: EventInboxed, TrxID: "def"})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].TrxID != "abc" {
		t.Errorf("got %+v, want exactly one EventApplied with TrxID abc", got)
	}
}

func TestEmitRecoversFromHandlerPanic(t *testing.T) {
	e := NewEmitter()
	called := false
	e.Subscribe(EventApplied, func(Event) { panic("boom") })
	e.Subscribe(EventApplied, func(Event) { called = true })

	e.Emit(Event{Type: EventApplied})

	if !called {
		t.Error("a panicking handler should not prevent other subscribers from running")
	}
}
