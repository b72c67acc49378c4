package bond

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Bridge errors.
var (
	ErrTimeout      = errors.New("timed out waiting for bond event")
	ErrBridgeClosed = errors.New("bond bridge closed")
)

// Bridge queues radio notifications for one address so a blocking caller can
// wait for them. Notifications that do not match the current wait stay queued
// for later waits.
type Bridge struct {
	address     string
	unsubscribe func()

	mu     sync.Mutex
	queue  []Event
	closed bool

	// notify is signalled (non-blocking) whenever an event is queued.
	notify chan struct{}
}

// Open subscribes to notifications for address.
func Open(p Primitive, address string) *Bridge {
	b := &Bridge{
		address: address,
		notify:  make(chan struct{}, 1),
	}
	b.unsubscribe = p.Subscribe(address, b.deliver)
	return b
}

// Address returns the subscribed address.
func (b *Bridge) Address() string {
	return b.address
}

// deliver is called on radio-owned goroutines and never blocks.
func (b *Bridge) deliver(e Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, e)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Wait blocks until an event satisfying match arrives, the timeout elapses or
// ctx is done. Earlier queued events are considered first.
func (b *Bridge) Wait(ctx context.Context, timeout time.Duration, match func(Event) bool) (Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		e, ok, err := b.take(match)
		if err != nil {
			return Event{}, err
		}
		if ok {
			return e, nil
		}

		select {
		case <-b.notify:
		case <-timer.C:
			return Event{}, ErrTimeout
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Pending returns the number of queued events.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Bridge) take(match func(Event) bool) (Event, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Event{}, false, ErrBridgeClosed
	}
	for i, e := range b.queue {
		if match(e) {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			return e, true, nil
		}
	}
	return Event{}, false, nil
}

// Close unsubscribes from the radio. It is safe to call Close multiple times.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.queue = nil
	b.mu.Unlock()

	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}

// InState matches state-change events that end in one of states.
func InState(states ...State) func(Event) bool {
	return func(e Event) bool {
		if e.Type != EventStateChanged {
			return false
		}
		for _, s := range states {
			if e.State == s {
				return true
			}
		}
		return false
	}
}

// PasskeyRequested matches passkey requests.
func PasskeyRequested(e Event) bool {
	return e.Type == EventPasskeyRequest
}

// Any matches if any of the matchers match.
func Any(matchers ...func(Event) bool) func(Event) bool {
	return func(e Event) bool {
		for _, m := range matchers {
			if m(e) {
				return true
			}
		}
		return false
	}
}
