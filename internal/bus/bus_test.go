package bus

import (
	"sync"
	"testing"
	"time"
)

func TestEventBus_PublishReachesSubscriber(t *testing.T) {
	b := NewEventBus()
	got := make(chan Event, 1)

	b.Subscribe(EventTypeUtteranceReady, func(e Event) { got <- e })
	b.Publish(Event{Type: EventTypeUtteranceReady, Data: map[string]any{"id": "u1"}})

	select {
	case e := <-got:
		if e.Data["id"] != "u1" {
			t.Errorf("wrong payload: %v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestEventBus_TypeIsolation(t *testing.T) {
	b := NewEventBus()
	got := make(chan Event, 1)

	b.Subscribe(EventTypePlaybackDone, func(e Event) { got <- e })
	b.Publish(Event{Type: EventTypePlaybackFailed})

	select {
	case <-got:
		t.Fatal("handler received an event of another type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_SubscribeMultiple(t *testing.T) {
	b := NewEventBus()
	var mu sync.Mutex
	count := 0

	b.SubscribeMultiple([]EventType{EventTypePoseSent, EventTypePoseDropped}, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.PublishSync(Event{Type: EventTypePoseSent})
	b.PublishSync(Event{Type: EventTypePoseDropped})

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("expected 2 invocations, got %d", count)
	}
}

func TestEventBus_PublishSyncWaits(t *testing.T) {
	b := NewEventBus()
	done := false
	var mu sync.Mutex

	b.Subscribe(EventTypeRenderFrame, func(Event) {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		done = true
		mu.Unlock()
	})

	b.PublishSync(Event{Type: EventTypeRenderFrame})

	mu.Lock()
	defer mu.Unlock()
	if !done {
		t.Fatal("PublishSync returned before handler finished")
	}
}

func TestEventBus_ClearDropsHandlers(t *testing.T) {
	b := NewEventBus()
	got := make(chan Event, 1)

	b.Subscribe(EventTypeConnected, func(e Event) { got <- e })
	b.Clear()
	b.Publish(Event{Type: EventTypeConnected})

	select {
	case <-got:
		t.Fatal("cleared handler still invoked")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_PublishWithNoSubscribers(t *testing.T) {
	b := NewEventBus()
	b.Publish(Event{Type: EventTypeError}) // must not panic
	b.PublishSync(Event{Type: EventTypeError})
}
