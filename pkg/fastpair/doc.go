// Package fastpair implements the seeker side of Fast Pair: resolving an
// accessory's address, bonding with it over the radio, running the key-based
// pairing handshake and handing back a SharedSecret.
//
// # Lifecycle
//
// A Connection targets one accessory. Pair and PairWithKey block until the
// session reaches PAIRED or FAILED:
//
//	IDLE → RESOLVING_ADDRESS → CREATING_BOND → EXCHANGING_KEY
//	     → AWAITING_PASSKEY_CONFIRMATION → PAIRED
//
// Unpair walks IDLE → UNPAIRING → UNPAIRED and is idempotent.
//
// # Key material
//
// Key material of exactly 16 bytes is an account key and is used directly.
// Any other length is the provider's public key and triggers key agreement,
// after which a fresh account key is written to the provider.
//
// # Concurrency
//
// Overlapping Pair calls on one Connection join the running session and
// observe its outcome. Bond creation and removal for one address never
// overlap. Every blocking wait is bounded by a timeout and by the caller's
// context.
//
// # Errors
//
// Failures are reported as *Error carrying a Kind. Use errors.Is with the
// sentinel values (ErrTimeout, ErrBond, ...) or KindOf.
package fastpair
