// Package bus provides an internal event bus for component communication
package bus

import (
	"sync"
	"time"
)

// EventType identifies different event types
type EventType string

// Event types for CortexChat
const (
	// Session lifecycle events
	EventTypeSessionStarted      EventType = "session.started"
	EventTypeSessionStateChanged EventType = "session.state_changed"
	EventTypeSessionEnded        EventType = "session.ended"

	// Model registry events
	EventTypeModelsListed  EventType = "model.listed"
	EventTypeModelSelected EventType = "model.selected"

	// Mode events
	EventTypeModeChanged EventType = "mode.changed"

	// Turn events
	EventTypeTurnStarted   EventType = "turn.started"
	EventTypeTurnCompleted EventType = "turn.completed"

	// Audio events
	EventTypeAudioStateChanged EventType = "audio.state_changed"
	EventTypeCaptureStarted    EventType = "audio.capture_started"
	EventTypeCaptureFinished   EventType = "audio.capture_finished"
	EventTypePlaybackStarted   EventType = "audio.playback_started"
	EventTypePlaybackFinished  EventType = "audio.playback_finished"

	// Engine events
	EventTypeTranscript EventType = "stt.transcript"
	EventTypeReply      EventType = "llm.reply"
	EventTypeSpeechDone EventType = "tts.completed"
)

// Event represents a bus event
type Event struct {
	Type      EventType
	Data      map[string]any
	Timestamp time.Time
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

// Publish sends an event to all subscribed handlers without blocking
func (b *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

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
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

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
