package keyexchange

import (
	"errors"
	"fmt"
)

// AccountKeySize is the length of an account key in bytes. Key material of
// exactly this length is always treated as an account key.
const AccountKeySize = 16

// AccountKeyPrefix is the first byte of every freshly issued account key.
const AccountKeyPrefix = 0x04

// Key material errors.
var (
	ErrEmptyKeyMaterial = errors.New("empty key material")
)

// MaterialKind tells the two key material variants apart.
type MaterialKind uint8

const (
	// KindAccountKey is a previously issued 16-byte symmetric key.
	KindAccountKey MaterialKind = iota

	// KindPublicKey is a provider public key used for key agreement.
	KindPublicKey
)

// String returns the kind name.
func (k MaterialKind) String() string {
	switch k {
	case KindAccountKey:
		return "ACCOUNT_KEY"
	case KindPublicKey:
		return "PUBLIC_KEY"
	default:
		return "UNKNOWN"
	}
}

// KeyMaterial is the key supplied to a pairing attempt.
// The zero value is not valid; use ParseKeyMaterial.
type KeyMaterial struct {
	kind  MaterialKind
	bytes []byte
}

// ParseKeyMaterial classifies b by length and copies it.
func ParseKeyMaterial(b []byte) (KeyMaterial, error) {
	if len(b) == 0 {
		return KeyMaterial{}, ErrEmptyKeyMaterial
	}

	kind := KindPublicKey
	if len(b) == AccountKeySize {
		kind = KindAccountKey
	}

	return KeyMaterial{
		kind:  kind,
		bytes: append([]byte(nil), b...),
	}, nil
}

// AccountKey wraps a 16-byte account key.
func AccountKey(key []byte) (KeyMaterial, error) {
	if len(key) != AccountKeySize {
		return KeyMaterial{}, fmt.Errorf("account key must be %d bytes, got %d", AccountKeySize, len(key))
	}
	return ParseKeyMaterial(key)
}

// Kind returns the material variant.
func (m KeyMaterial) Kind() MaterialKind {
	return m.kind
}

// IsAccountKey reports whether the material is an account key.
func (m KeyMaterial) IsAccountKey() bool {
	return m.kind == KindAccountKey && len(m.bytes) == AccountKeySize
}

// Bytes returns a copy of the raw key bytes.
func (m KeyMaterial) Bytes() []byte {
	return append([]byte(nil), m.bytes...)
}

// Len returns the key length in bytes.
func (m KeyMaterial) Len() int {
	return len(m.bytes)
}

// IsZero reports whether m was never initialised.
func (m KeyMaterial) IsZero() bool {
	return len(m.bytes) == 0
}
