// Package event provides a small in-process publish/subscribe bus used to
// fan sync outcomes out to observers such as the websocket status feed.
package event

import (
	"sync"
	"sync/atomic"
)

const defaultSubscriberBufferSize = 16

// BusOptions configures a Bus.
type BusOptions struct {
	// SubscriberBufferSize is the channel capacity given to each subscriber.
	SubscriberBufferSize int

	// MaxSubscribers caps concurrent subscriptions; zero means unlimited.
	MaxSubscribers int
}

// Bus delivers published values to every current subscriber. Publish never
// blocks: a subscriber whose buffer is full misses the value.
type Bus[T any] struct {
	mu          sync.Mutex
	subscribers map[uint64]chan T
	nextID      uint64
	closed      bool
	options     BusOptions

	published atomic.Int64
	dropped   atomic.Int64
}

// NewBus creates an empty bus.
func NewBus[T any](opts BusOptions) *Bus[T] {
	if opts.SubscriberBufferSize <= 0 {
		opts.SubscriberBufferSize = defaultSubscriberBufferSize
	}

	return &Bus[T]{
		subscribers: make(map[uint64]chan T),
		options:     opts,
	}
}

// Subscribe returns a channel of future values and a cancel function that
// removes the subscription and closes the channel. A nil, closed or full
// bus returns an already-closed channel.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	if b == nil {
		ch := make(chan T)
		close(ch)

		return ch, func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || (b.options.MaxSubscribers > 0 && len(b.subscribers) >= b.options.MaxSubscribers) {
		ch := make(chan T)
		close(ch)

		return ch, func() {}
	}

	b.nextID++
	id := b.nextID
	ch := make(chan T, b.options.SubscriberBufferSize)
	b.subscribers[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Publish delivers v to all subscribers without blocking.
func (b *Bus[T]) Publish(v T) {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.published.Add(1)

	for _, ch := range b.subscribers {
		select {
		case ch <- v:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus[T]) Subscribers() int {
	if b == nil {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers)
}

// Published returns how many values have been published.
func (b *Bus[T]) Published() int64 { return b.published.Load() }

// Dropped returns how many deliveries were skipped because a subscriber
// buffer was full.
func (b *Bus[T]) Dropped() int64 { return b.dropped.Load() }

// Close closes every subscriber channel. Later Publish calls are ignored.
func (b *Bus[T]) Close() {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
