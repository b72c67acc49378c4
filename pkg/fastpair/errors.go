package fastpair

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastpair-protocol/fastpair-go/pkg/bond"
	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
)

// Kind classifies a pairing failure.
type Kind uint8

const (
	// KindUnknown is never produced by Connection; it marks foreign errors.
	KindUnknown Kind = iota

	// KindAddressResolution means no valid accessory address could be found.
	KindAddressResolution

	// KindBond means the radio failed to create or remove the bond.
	KindBond

	// KindTimeout means an awaited radio notification, callback or
	// provider response did not arrive in time.
	KindTimeout

	// KindCryptoVerification means the key confirmation or passkey check
	// failed. Never retried.
	KindCryptoVerification

	// KindPasskeyRejected means the passkey was rejected.
	KindPasskeyRejected

	// KindPlatformCapabilityUnavailable means the preferred exchange
	// mechanism is missing and the configured fallback cannot proceed.
	KindPlatformCapabilityUnavailable

	// KindCancelled means the caller's context was done.
	KindCancelled
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAddressResolution:
		return "ADDRESS_RESOLUTION"
	case KindBond:
		return "BOND"
	case KindTimeout:
		return "TIMEOUT"
	case KindCryptoVerification:
		return "CRYPTO_VERIFICATION"
	case KindPasskeyRejected:
		return "PASSKEY_REJECTED"
	case KindPlatformCapabilityUnavailable:
		return "PLATFORM_CAPABILITY_UNAVAILABLE"
	case KindCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrAddressResolution     = errors.New("address resolution failed")
	ErrBond                  = errors.New("bond failed")
	ErrTimeout               = errors.New("timed out")
	ErrCryptoVerification    = errors.New("crypto verification failed")
	ErrPasskeyRejected       = errors.New("passkey rejected")
	ErrCapabilityUnavailable = errors.New("platform capability unavailable")
	ErrCancelled             = errors.New("cancelled")
)

func (k Kind) sentinel() error {
	switch k {
	case KindAddressResolution:
		return ErrAddressResolution
	case KindBond:
		return ErrBond
	case KindTimeout:
		return ErrTimeout
	case KindCryptoVerification:
		return ErrCryptoVerification
	case KindPasskeyRejected:
		return ErrPasskeyRejected
	case KindPlatformCapabilityUnavailable:
		return ErrCapabilityUnavailable
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// Error is the single error type returned by Connection operations.
type Error struct {
	Kind    Kind
	Op      string // "pair" or "unpair"
	Address string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("fastpair %s", e.Op)
	if e.Address != "" {
		msg += " " + e.Address
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// classify maps lower-level errors onto a Kind. fallback is used when nothing
// more specific applies. A deadline is a timeout here; callers whose own
// context ended report KindCancelled instead.
func classify(err error, fallback Kind) Kind {
	var fe *Error
	switch {
	case errors.As(err, &fe):
		return fe.Kind
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, bond.ErrTimeout), errors.Is(err, errHookTimeout):
		return KindTimeout
	case errors.Is(err, ErrServiceUnavailable):
		return KindPlatformCapabilityUnavailable
	case errors.Is(err, keyexchange.ErrConfirmationFailed),
		errors.Is(err, keyexchange.ErrInvalidPublicKey),
		errors.Is(err, keyexchange.ErrInvalidResponse),
		errors.Is(err, keyexchange.ErrInvalidBlock),
		errors.Is(err, keyexchange.ErrInvalidKeySize):
		return KindCryptoVerification
	default:
		return fallback
	}
}
