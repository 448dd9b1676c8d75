// Package bus provides the in-process pub/sub point that decouples the sync
// core from UI, metrics, and other observers.
package bus

import (
	"sync"
)

// EventType identifies different event types
type EventType string

// Event types emitted by the sync core
const (
	// Connection events
	EventTypeConnected    EventType = "connection.connected"
	EventTypeDisconnected EventType = "connection.disconnected"
	EventTypeError        EventType = "connection.error"

	// Pose telemetry
	EventTypePoseUpdated EventType = "pose.updated"
	EventTypePoseSent    EventType = "pose.sent"
	EventTypePoseDropped EventType = "pose.dropped"

	// Caption passthrough
	EventTypeCaptionUpdated EventType = "caption.updated"

	// Utterance lifecycle
	EventTypeUtteranceReady  EventType = "utterance.ready"
	EventTypePlaybackStarted EventType = "playback.started"
	EventTypePlaybackDone    EventType = "playback.done"
	EventTypePlaybackFailed  EventType = "playback.failed"
	EventTypeVisemeFired     EventType = "viseme.fired"

	// Animation
	EventTypeRenderFrame EventType = "render.frame"
)

// Event represents a bus event
type Event struct {
	Type EventType
	Data map[string]any
}

// Handler is a function that handles events
type Handler func(Event)

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

// Publish sends an event to all subscribed handlers without blocking the
// publisher.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete
func (b *EventBus) PublishSync(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]Handler)
}
