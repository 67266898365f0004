package events

import "sync"

// EventHandler defines a function type where its input type is the generic type. A returned error stops the
// publication and is returned to the publisher.
type EventHandler[T any] func(T) error

// EventEmitter describes a provider which can subscribe EventHandler methods for callback when the event type (generic)
// is published. It additionally provides methods for publishing events. The zero value is ready to use, and an
// EventEmitter is safe for concurrent use.
type EventEmitter[T any] struct {
	// subscriptionsLock guards subscriptions.
	subscriptionsLock sync.RWMutex

	// subscriptions defines the EventHandler methods which should be invoked when a new event is published to this
	// emitter.
	subscriptions []EventHandler[T]
}

// Publish emits the provided event by calling every EventHandler subscribed to this emitter, in subscription order.
// The first error returned by a handler stops the publication.
func (e *EventEmitter[T]) Publish(event T) error {
	// Copy the handlers so callbacks run without holding the lock
	e.subscriptionsLock.RLock()
	subscriptions := make([]EventHandler[T], len(e.subscriptions))
	copy(subscriptions, e.subscriptions)
	e.subscriptionsLock.RUnlock()

	for _, subscription := range subscriptions {
		if err := subscription(event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe adds an EventHandler to the list of subscribed EventHandler objects for this emitter. When an event is
// published, the callback will be triggered with the event data.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.subscriptionsLock.Lock()
	defer e.subscriptionsLock.Unlock()
	e.subscriptions = append(e.subscriptions, callback)
}
