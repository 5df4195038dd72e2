package output_storage

import (
	"errors"
	"sync"
)

// ErrStopped is returned when subscribing to a stopped Broadcaster.
var ErrStopped = errors.New("broadcaster is stopped")

// Broadcaster fans a value out to every subscriber. Each subscriber channel
// holds at most one pending value; a newer value replaces an unread one, so a
// slow subscriber never blocks Publish.
type Broadcaster[T any] struct {
	mu          sync.Mutex
	subscribers map[chan T]struct{}
	stopped     bool
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subscribers: make(map[chan T]struct{})}
}

// Subscribe registers a new subscriber channel. The channel is closed on Stop.
func (b *Broadcaster[T]) Subscribe() (chan T, error) {
	ch := make(chan T, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil, ErrStopped
	}
	b.subscribers[ch] = struct{}{}
	logger.Printf("subscriber added (%d total)", len(b.subscribers))
	return ch, nil
}

// Unsubscribe removes and closes the subscriber channel.
func (b *Broadcaster[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

// Publish delivers msg to every subscriber without blocking.
func (b *Broadcaster[T]) Publish(msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	for ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			// Drop the stale value and replace it. Only Publish sends on ch
			// and it holds b.mu, so the second send cannot block.
			select {
			case <-ch:
			default:
			}
			ch <- msg
		}
	}
}

// Stop closes every subscriber channel. Later Publish calls are no-ops and
// later Subscribe calls fail with ErrStopped.
func (b *Broadcaster[T]) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
