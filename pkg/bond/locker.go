package bond

import (
	"context"
	"sync"
)

// Locker hands out one exclusive lease per address.
// The zero value is ready to use.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// Lock acquires the lease for address, or returns ctx.Err() if ctx is done
// first. The returned unlock function is idempotent.
func (l *Locker) Lock(ctx context.Context, address string) (unlock func(), err error) {
	s := l.acquire(address)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(address, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(address, s)
		})
	}, nil
}

// TryLock acquires the lease only if it is free.
func (l *Locker) TryLock(address string) (unlock func(), ok bool) {
	s := l.acquire(address)

	select {
	case s.ch <- struct{}{}:
	default:
		l.release(address, s)
		return nil, false
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(address, s)
		})
	}, true
}

// Held reports whether address is currently leased.
func (l *Locker) Held(address string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[address]
	return ok && len(s.ch) > 0
}

func (l *Locker) acquire(address string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.slots == nil {
		l.slots = make(map[string]*slot)
	}
	s, ok := l.slots[address]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[address] = s
	}
	s.refs++
	return s
}

func (l *Locker) release(address string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, address)
	}
}
