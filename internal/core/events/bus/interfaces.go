package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus that carries runtime events
// past the process boundary: to feed clients, loggers and replication.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type() string.
// - Optional topics: handlers can subscribe within a topic for isolation.
// - Synchronous delivery: publishing calls handlers in the caller goroutine.
// - Error aggregation: handler errors are joined and returned to the publisher.
//
// Topics are logical groupings; the topic "" always exists.
type EventBus interface {
	// Unsubscribe cancels the given Subscription. It is safe to call with nil.
	Unsubscribe(Subscription) error

	// PublishWithFilters applies filters before delivery; if any filter returns false,
	// the event is dropped and not delivered to handlers.
	PublishWithFilters(topic string, event Event, filters ...EventFilter) error

	// CreateTopic declares a logical topic. Repeat declarations are idempotent.
	CreateTopic(name string) error
	// SubscribeTopic registers a handler for eventType within a topic.
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// PublishToTopic publishes to a specific topic.
	PublishToTopic(topic string, event Event) error
	// PublishBatch publishes a set of events sequentially and aggregates errors across them.
	PublishBatch(topic string, events ...Event) error

	// AddObserver registers an observer to receive delivery callbacks.
	AddObserver(obs Observer)
	// RemoveObserver unregisters a previously added observer.
	RemoveObserver(obs Observer)
	// GetMetrics returns a snapshot of accumulated metrics. Metrics are only
	// collected while at least one observer is registered.
	GetMetrics() Metrics
	// GetTopics returns a snapshot list of known topics.
	GetTopics() []TopicInfo
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	// Type is the routing key, one of the Type* constants for runtime events.
	Type() string
	// Source identifies the publisher.
	Source() string
	Timestamp() time.Time
	// Data is one of the payload structs in payloads.go for runtime events.
	Data() any
}

type (
	// EventHandler is invoked per delivered event.
	EventHandler func(event Event) error
	// EventFilter decides whether an event should be delivered.
	EventFilter func(event Event) bool
)

// Subscription represents a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler from the bus. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about deliveries. Observers should return quickly.
type Observer interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error, durationMicros int64)
}

type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	DroppedByFilters  uint64
	SubscribersActive uint64
	Topics            uint64
}

type TopicInfo struct {
	Name       string
	EventTypes int
	Subs       int
}
