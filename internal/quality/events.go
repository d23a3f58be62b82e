package quality

import (
	"fmt"
	"sync"
	"time"

	"github.com/argie33/algo-sub006/internal/logger"
)

// EventType is one of the closed set of notification tags the engine
// publishes.
type EventType string

const (
	EventMonitoringStarted EventType = "monitoring_started"
	EventMonitoringStopped EventType = "monitoring_stopped"
	EventDataValidated     EventType = "data_validated"
	EventQualityAlert      EventType = "quality_alert"
)

// Event is a single engine notification. Payload holds the typed payload for
// the event's type: MonitoringEvent, ValidationEvent or AlertEvent.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Symbol    string      `json:"symbol,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// MonitoringEvent is the payload for monitoring_started and
// monitoring_stopped.
type MonitoringEvent struct {
	Symbol     string   `json:"symbol"`
	DataType   DataType `json:"data_type"`
	ProviderID string   `json:"provider_id,omitempty"`
}

// ValidationEvent is the payload for data_validated.
type ValidationEvent struct {
	Result   ValidationResult `json:"result"`
	Metrics  QualityMetrics   `json:"metrics"`
	Duration time.Duration    `json:"duration"`
}

// AlertEvent is the payload for quality_alert.
type AlertEvent struct {
	Alert Alert `json:"alert"`
}

// Handler consumes events. Delivery is synchronous; handlers should return
// quickly.
type Handler func(Event)

// EventBus is the engine's publish/subscribe surface. Delivery is
// best-effort: a panicking handler is logged and does not affect other
// handlers or the publisher.
type EventBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[EventType]map[int]Handler
	log    logger.Logger
}

// NewEventBus creates an event bus.
func NewEventBus(log logger.Logger) *EventBus {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventBus{
		subs: make(map[EventType]map[int]Handler),
		log:  log,
	}
}

// Subscribe registers a handler for an event type and returns an unsubscribe
// function. Unsubscribing twice is harmless.
func (b *EventBus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[eventType] == nil {
		b.subs[eventType] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[eventType][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[eventType], id)
	}
}

// Publish delivers an event to every subscriber of its type. The subscriber
// set is copied before iteration so handlers may subscribe or unsubscribe
// during delivery.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[event.Type]))
	for _, h := range b.subs[event.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(event, h)
	}
}

func (b *EventBus) deliver(event Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				"event_type", string(event.Type),
				"symbol", event.Symbol,
				"panic", fmt.Sprintf("%v", r))
		}
	}()
	h(event)
}

// SubscriberCount reports the number of handlers for an event type.
func (b *EventBus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}
