package fastpair

import (
	"context"
	"errors"

	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
)

// ErrServiceUnavailable is returned by Transport.Dial when the accessory (or
// the local platform) does not offer the key-based pairing service.
var ErrServiceUnavailable = errors.New("key-based pairing service unavailable")

// Transport opens the provider's key-based pairing service.
type Transport interface {
	// Dial connects to the accessory at address. It returns
	// ErrServiceUnavailable (possibly wrapped) when the service is missing.
	// ctx bounds connecting only; the Link must outlive it.
	Dial(ctx context.Context, address string) (Link, error)
}

// Link is an open connection to the provider's pairing service.
type Link interface {
	keyexchange.Channel

	// PublicAddress is the accessory's stable radio address, the one the
	// bond is created with.
	PublicAddress() string

	Close() error
}

// SignalChecker re-resolves a currently valid address for the accessory's
// model when the last known address stopped answering.
type SignalChecker interface {
	ValidAddressForModelID(ctx context.Context, current string) (string, error)
}

// SignalCheckerFunc adapts a function to SignalChecker.
type SignalCheckerFunc func(ctx context.Context, current string) (string, error)

// ValidAddressForModelID calls f.
func (f SignalCheckerFunc) ValidAddressForModelID(ctx context.Context, current string) (string, error) {
	return f(ctx, current)
}

// PasskeyHandler asks the user to confirm a passkey. It returns true to
// accept. The context carries the passkey timeout.
type PasskeyHandler interface {
	ConfirmPasskey(ctx context.Context, passkey uint32) (bool, error)
}

// PasskeyHandlerFunc adapts a function to PasskeyHandler.
type PasskeyHandlerFunc func(ctx context.Context, passkey uint32) (bool, error)

// ConfirmPasskey calls f.
func (f PasskeyHandlerFunc) ConfirmPasskey(ctx context.Context, passkey uint32) (bool, error) {
	return f(ctx, passkey)
}

// RescueFunc is consulted once before a pair attempt fails. It may try an
// alternate strategy and return a secret to use instead. Returning false
// lets the original error propagate. Crypto verification failures and
// cancellation are never rescued.
type RescueFunc func(ctx context.Context, err *Error) (SharedSecret, bool)
