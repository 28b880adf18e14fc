// Package store provides an observable single-value container. Components
// that own a piece of UI-relevant state (the player status, for example)
// publish it through a Value; the WebSocket feed and the pages subscribe to
// it instead of polling.
package store

import "sync"

// Value holds a single value of type T and notifies subscribers on change.
// The zero Value is not usable; create one with New.
type Value[T any] struct {
	mu     sync.RWMutex
	val    T
	nextID int
	subs   map[int]chan T
}

// New creates a Value holding the given initial value.
func New[T any](initial T) *Value[T] {
	return &Value[T]{
		val:  initial,
		subs: make(map[int]chan T),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.val
}

// Set replaces the value and notifies every subscriber.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.val = val
	v.broadcast()
}

// Update applies fn to the current value under the lock and stores the
// result, so read-modify-write sequences cannot interleave.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.val = fn(v.val)
	v.broadcast()
	return v.val
}

// Subscribe returns a channel that first receives the current value and then
// every subsequent change. Delivery is latest-wins: a subscriber that falls
// behind skips intermediate values and only sees the newest one. Call the
// returned cancel function to unsubscribe; it closes the channel.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = ch
	ch <- v.val
	v.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			close(ch)
			v.mu.Unlock()
		})
	}
	return ch, cancel
}

// broadcast must be called with v.mu held for writing.
func (v *Value[T]) broadcast() {
	for _, ch := range v.subs {
		// Drop the stale pending value, if any, so the newest one fits.
		select {
		case <-ch:
		default:
		}
		ch <- v.val
	}
}
