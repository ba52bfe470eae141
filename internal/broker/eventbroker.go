package broker

import "sync/atomic"

// EventBroker fans every published value out to all subscribers.
//
// Each subscriber owns a buffered channel. A subscriber that falls behind misses values instead of blocking the
// publisher, and the misses are counted in Dropped.
type EventBroker[T any] struct {
	stopChannel        chan struct{}
	publishChannel     chan T
	subscribeChannel   chan chan T
	unsubscribeChannel chan (<-chan T)
	dropped            atomic.Int64
}

// NewEventBroker creates a new EventBroker. Start runs it and Stop ends it.
func NewEventBroker[T any]() *EventBroker[T] {
	return &EventBroker[T]{ //nolint:exhaustruct // counter zero value
		stopChannel:        make(chan struct{}),
		publishChannel:     make(chan T),
		subscribeChannel:   make(chan chan T),
		unsubscribeChannel: make(chan (<-chan T)),
	}
}

// Start listening for publish, subscribe and unsubscribe requests. This function blocks until Stop() is called,
// so it should be called in a goroutine. Subscriber channels are closed when it returns.
func (b *EventBroker[T]) Start() {
	subscribers := map[<-chan T]chan T{}
	defer func() {
		for _, c := range subscribers {
			close(c)
		}
	}()
	for {
		select {
		case <-b.stopChannel:
			return

		case c := <-b.subscribeChannel:
			subscribers[c] = c

		case c := <-b.unsubscribeChannel:
			if own, ok := subscribers[c]; ok {
				delete(subscribers, c)
				close(own)
			}

		case value := <-b.publishChannel:
			for _, c := range subscribers {
				select {
				case c <- value:
				default:
					b.dropped.Add(1)
				}
			}
		}
	}
}

// Stop the goroutine that handles the broker.
func (b *EventBroker[T]) Stop() {
	close(b.stopChannel)
}

// Subscribe returns a channel receiving every value published from now on. The channel is closed by Unsubscribe or
// when the broker stops.
func (b *EventBroker[T]) Subscribe(buffer int) <-chan T {
	c := make(chan T, buffer)
	select {
	case b.subscribeChannel <- c:
	case <-b.stopChannel:
		close(c)
	}
	return c
}

// Unsubscribe stops delivery to a channel returned by Subscribe and closes it.
func (b *EventBroker[T]) Unsubscribe(c <-chan T) {
	select {
	case b.unsubscribeChannel <- c:
	case <-b.stopChannel:
	}
}

// Publish sends value to the current subscribers. Publishing to a stopped broker does nothing.
func (b *EventBroker[T]) Publish(value T) {
	select {
	case b.publishChannel <- value:
	case <-b.stopChannel:
	}
}

// Dropped reports how many deliveries were skipped because a subscriber's buffer was full.
func (b *EventBroker[T]) Dropped() int64 {
	return b.dropped.Load()
}
