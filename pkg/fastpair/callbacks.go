package fastpair

import (
	"context"
	"errors"
	"sync"
)

// Callback registry errors.
var (
	ErrCallbackAlreadySet = errors.New("callback already set")
	ErrCallbacksSealed    = errors.New("callbacks sealed: a session has started")
	ErrNilCallback        = errors.New("callback is nil")
)

// Callbacks holds the optional hooks of a Connection. Each slot can be set
// once, and only before the owning Connection starts its first session.
// A nil *Callbacks has every slot empty.
type Callbacks struct {
	mu     sync.Mutex
	sealed bool
	hooks  hooks
}

// hooks is the immutable snapshot a session runs with.
type hooks struct {
	onPaired          func(address string)
	onAddressResolved func(address string)
	passkey           PasskeyHandler
	signalChecker     SignalChecker
	rescue            RescueFunc
	prepareCreateBond func(ctx context.Context, address string) error
}

// NewCallbacks returns an empty registry.
func NewCallbacks() *Callbacks {
	return &Callbacks{}
}

// SetOnPaired registers the paired notification. It fires once per
// successful pair with the accessory's public address.
func (c *Callbacks) SetOnPaired(fn func(address string)) error {
	return c.set(fn == nil, func(h *hooks) bool {
		if h.onPaired != nil {
			return false
		}
		h.onPaired = fn
		return true
	})
}

// SetOnAddressResolved registers the address-resolved notification.
func (c *Callbacks) SetOnAddressResolved(fn func(address string)) error {
	return c.set(fn == nil, func(h *hooks) bool {
		if h.onAddressResolved != nil {
			return false
		}
		h.onAddressResolved = fn
		return true
	})
}

// SetPasskeyHandler registers the passkey confirmation handler.
func (c *Callbacks) SetPasskeyHandler(handler PasskeyHandler) error {
	return c.set(handler == nil, func(h *hooks) bool {
		if h.passkey != nil {
			return false
		}
		h.passkey = handler
		return true
	})
}

// SetSignalChecker registers the address re-resolver.
func (c *Callbacks) SetSignalChecker(checker SignalChecker) error {
	return c.set(checker == nil, func(h *hooks) bool {
		if h.signalChecker != nil {
			return false
		}
		h.signalChecker = checker
		return true
	})
}

// SetRescue registers the rescue hook.
func (c *Callbacks) SetRescue(fn RescueFunc) error {
	return c.set(fn == nil, func(h *hooks) bool {
		if h.rescue != nil {
			return false
		}
		h.rescue = fn
		return true
	})
}

// SetPrepareCreateBond registers a hook run right before the bond is
// requested. An error fails the attempt with KindBond.
func (c *Callbacks) SetPrepareCreateBond(fn func(ctx context.Context, address string) error) error {
	return c.set(fn == nil, func(h *hooks) bool {
		if h.prepareCreateBond != nil {
			return false
		}
		h.prepareCreateBond = fn
		return true
	})
}

func (c *Callbacks) set(isNil bool, apply func(*hooks) bool) error {
	if isNil {
		return ErrNilCallback
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return ErrCallbacksSealed
	}
	if !apply(&c.hooks) {
		return ErrCallbackAlreadySet
	}
	return nil
}

// seal freezes the registry and returns its snapshot.
func (c *Callbacks) seal() hooks {
	if c == nil {
		return hooks{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	return c.hooks
}

// Sealed reports whether the registry can no longer be changed.
func (c *Callbacks) Sealed() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sealed
}
