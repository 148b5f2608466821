package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeVoiceTickersChanged EventType = "voice_tickers_changed"
	EventTypeSettingsChanged     EventType = "settings_changed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// VoiceTickersChangedEvent fires when a guild's voice ticker set or update
// category changes, so the voice channels can be refreshed immediately
// instead of waiting for the next hourly boundary.
type VoiceTickersChangedEvent struct {
	GuildID int64
}

func (e VoiceTickersChangedEvent) Type() EventType {
	return EventTypeVoiceTickersChanged
}

// SettingsChangedEvent fires on any other guild settings mutation
type SettingsChangedEvent struct {
	GuildID int64
}

func (e SettingsChangedEvent) Type() EventType {
	return EventTypeSettingsChanged
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the mutation path
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}
