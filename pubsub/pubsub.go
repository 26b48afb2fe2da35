// Package pubsub fans values out to any number of subscribers without ever
// blocking the publisher.
package pubsub

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type SubscriptionID int64

type Pubsub[T any] struct {
	buffer      int
	nextID      SubscriptionID
	subscribers map[SubscriptionID]chan T
	mu          sync.RWMutex
}

// New returns a Pubsub whose subscriber channels hold up to buffer
// undelivered values. Values published to a full channel are dropped.
func New[T any](buffer int) *Pubsub[T] {
	return &Pubsub[T]{
		buffer:      buffer,
		subscribers: make(map[SubscriptionID]chan T),
	}
}

func (ps *Pubsub[T]) Subscribe() (SubscriptionID, <-chan T) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan T, ps.buffer)
	id := ps.nextID

	ps.subscribers[id] = ch
	ps.nextID += 1

	return id, ch
}

func (ps *Pubsub[T]) Unsubscribe(id SubscriptionID) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch, ok := ps.subscribers[id]
	if !ok {
		return
	}

	delete(ps.subscribers, id)
	close(ch)
}

// Publish delivers msg to every subscriber that has room for it.
func (ps *Pubsub[T]) Publish(msg T) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for id, ch := range ps.subscribers {
		select {
		case ch <- msg:
		default:
			log.Warn().
				Str("component", "pubsub").
				Int64("subscription_id", int64(id)).
				Interface("message", msg).
				Msg("Message dropped, channel full")
		}
	}
}

func (ps *Pubsub[T]) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.subscribers)
}
