// Package refresh coordinates one background refresh at a time for a
// polling UI loop.
package refresh

import (
	"fmt"
	"sync/atomic"
)

// Outcome is what a finished refresh delivers.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Coordinator runs at most one refresh at a time and hands its outcome to the
// loop through a single-slot channel. The loop calls Poll on its own cadence;
// nothing here blocks it.
type Coordinator[T any] struct {
	inFlight atomic.Bool
	results  chan Outcome[T]
}

// New returns an idle Coordinator.
func New[T any]() *Coordinator[T] {
	return &Coordinator[T]{results: make(chan Outcome[T], 1)}
}

// Start launches fn in the background. It returns false without doing
// anything when a refresh is already in flight.
func (c *Coordinator[T]) Start(fn func() (T, error)) bool {
	if !c.inFlight.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		var out Outcome[T]
		defer func() {
			if r := recover(); r != nil {
				out = Outcome[T]{Err: fmt.Errorf("refresh panicked: %v", r)}
			}
			c.results <- out
		}()
		value, err := fn()
		out = Outcome[T]{Value: value, Err: err}
	}()
	return true
}

// Poll returns a finished outcome if one is waiting. Delivery clears the
// in-flight flag so the next Start is accepted.
func (c *Coordinator[T]) Poll() (Outcome[T], bool) {
	select {
	case out := <-c.results:
		c.inFlight.Store(false)
		return out, true
	default:
		return Outcome[T]{}, false
	}
}

// InFlight reports whether a refresh is running or its outcome is unread.
func (c *Coordinator[T]) InFlight() bool {
	return c.inFlight.Load()
}
