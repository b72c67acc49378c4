package fastpair

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// SharedSecret errors.
var (
	ErrEmptySecretKey     = errors.New("shared secret key is empty")
	ErrEmptySecretAddress = errors.New("shared secret address is empty")
)

// SharedSecret is the outcome of a successful pairing: the account key and
// the accessory address it is bound to. It is immutable.
type SharedSecret struct {
	key     []byte
	address string
}

// NewSharedSecret copies key and binds it to address.
func NewSharedSecret(key []byte, address string) (SharedSecret, error) {
	if len(key) == 0 {
		return SharedSecret{}, ErrEmptySecretKey
	}
	if address == "" {
		return SharedSecret{}, ErrEmptySecretAddress
	}
	return SharedSecret{
		key:     append([]byte(nil), key...),
		address: address,
	}, nil
}

// Key returns a copy of the account key.
func (s SharedSecret) Key() []byte {
	return append([]byte(nil), s.key...)
}

// Address returns the accessory address.
func (s SharedSecret) Address() string {
	return s.address
}

// IsZero reports whether s was never constructed.
func (s SharedSecret) IsZero() bool {
	return len(s.key) == 0 && s.address == ""
}

// Equal reports whether s and other hold the same key and address.
func (s SharedSecret) Equal(other SharedSecret) bool {
	return s.address == other.address && bytes.Equal(s.key, other.key)
}

// Hash returns a hash consistent with Equal.
func (s SharedSecret) Hash() uint64 {
	h := sha256.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s.key)))
	h.Write(n[:])
	h.Write(s.key)
	h.Write([]byte(s.address))
	return binary.BigEndian.Uint64(h.Sum(nil))
}

// String prints the address and a short key fingerprint, never the key.
func (s SharedSecret) String() string {
	if s.IsZero() {
		return "SharedSecret{}"
	}
	sum := sha256.Sum256(s.key)
	return fmt.Sprintf("SharedSecret{address=%s key=sha256:%s}", s.address, hex.EncodeToString(sum[:4]))
}
