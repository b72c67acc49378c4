package keyexchange

import (
	"crypto/ecdh"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/fastpair-protocol/fastpair-go/internal/memzero"
)

// Agreement errors.
var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrKeyPairWiped     = errors.New("key pair already wiped")
)

// SessionKeySize is the size of the derived AES key.
const SessionKeySize = 16

// hkdfInfo binds derived keys to this protocol.
var hkdfInfo = []byte("fastpair key-based pairing")

// KeyFormat identifies the curve and public key encoding.
type KeyFormat uint8

const (
	// FormatX25519 is a 32-byte X25519 public key.
	FormatX25519 KeyFormat = iota

	// FormatP256Raw is a 64-byte P-256 public key (X || Y).
	FormatP256Raw

	// FormatP256Uncompressed is a 65-byte SEC1 P-256 public key.
	FormatP256Uncompressed
)

// String returns the format name.
func (f KeyFormat) String() string {
	switch f {
	case FormatX25519:
		return "X25519"
	case FormatP256Raw:
		return "P256_RAW"
	case FormatP256Uncompressed:
		return "P256_UNCOMPRESSED"
	default:
		return "UNKNOWN"
	}
}

// Size returns the encoded public key size in bytes.
func (f KeyFormat) Size() int {
	switch f {
	case FormatX25519:
		return curve25519.PointSize
	case FormatP256Raw:
		return 64
	case FormatP256Uncompressed:
		return 65
	default:
		return 0
	}
}

// FormatForPublicKey picks the key format implied by a public key length.
func FormatForPublicKey(pub []byte) (KeyFormat, error) {
	switch len(pub) {
	case curve25519.PointSize:
		return FormatX25519, nil
	case 64:
		return FormatP256Raw, nil
	case 65:
		if pub[0] != 0x04 {
			return 0, fmt.Errorf("%w: unsupported point encoding 0x%02x", ErrInvalidPublicKey, pub[0])
		}
		return FormatP256Uncompressed, nil
	default:
		return 0, fmt.Errorf("%w: unsupported length %d", ErrInvalidPublicKey, len(pub))
	}
}

// KeyPair is an ephemeral or static agreement key pair.
// Call Wipe as soon as the private half is no longer needed.
type KeyPair struct {
	format KeyFormat
	public []byte

	// X25519 scalar, owned by the key pair so it can be wiped.
	scalar []byte

	// P-256 private key.
	p256 *ecdh.PrivateKey
}

// GenerateKeyPair creates a new key pair in the given format.
func GenerateKeyPair(format KeyFormat, rand io.Reader) (*KeyPair, error) {
	switch format {
	case FormatX25519:
		scalar := make([]byte, curve25519.ScalarSize)
		if _, err := io.ReadFull(rand, scalar); err != nil {
			return nil, fmt.Errorf("failed to generate scalar: %w", err)
		}
		pub, err := curve25519.X25519(scalar, curve25519.Basepoint)
		if err != nil {
			memzero.Zero(scalar)
			return nil, fmt.Errorf("failed to compute public key: %w", err)
		}
		return &KeyPair{format: format, public: pub, scalar: scalar}, nil

	case FormatP256Raw, FormatP256Uncompressed:
		priv, err := ecdh.P256().GenerateKey(rand)
		if err != nil {
			return nil, fmt.Errorf("failed to generate P-256 key: %w", err)
		}
		pub := priv.PublicKey().Bytes()
		if format == FormatP256Raw {
			pub = pub[1:]
		}
		return &KeyPair{format: format, public: pub, p256: priv}, nil

	default:
		return nil, fmt.Errorf("unknown key format %d", format)
	}
}

// GenerateKeyPairFor creates an ephemeral key pair matching the peer's key format.
func GenerateKeyPairFor(peer []byte, rand io.Reader) (*KeyPair, error) {
	format, err := FormatForPublicKey(peer)
	if err != nil {
		return nil, err
	}
	return GenerateKeyPair(format, rand)
}

// Format returns the key format.
func (kp *KeyPair) Format() KeyFormat {
	return kp.format
}

// PublicKey returns a copy of the encoded public key.
func (kp *KeyPair) PublicKey() []byte {
	return append([]byte(nil), kp.public...)
}

// DeriveSessionKey performs key agreement with peer and derives the 16-byte
// AES session key. The raw shared point is wiped before returning.
func (kp *KeyPair) DeriveSessionKey(peer []byte) ([]byte, error) {
	format, err := FormatForPublicKey(peer)
	if err != nil {
		return nil, err
	}
	if format.Size() != kp.format.Size() && !(isP256(format) && isP256(kp.format)) {
		return nil, fmt.Errorf("%w: %s peer for %s key pair", ErrInvalidPublicKey, format, kp.format)
	}

	shared, err := kp.agree(peer, format)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(shared)

	key := make([]byte, SessionKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}

func (kp *KeyPair) agree(peer []byte, format KeyFormat) ([]byte, error) {
	switch {
	case kp.format == FormatX25519:
		if kp.scalar == nil {
			return nil, ErrKeyPairWiped
		}
		shared, err := curve25519.X25519(kp.scalar, peer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		return shared, nil

	default:
		if kp.p256 == nil {
			return nil, ErrKeyPairWiped
		}
		encoded := peer
		if format == FormatP256Raw {
			encoded = append([]byte{0x04}, peer...)
		}
		pub, err := ecdh.P256().NewPublicKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		shared, err := kp.p256.ECDH(pub)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		return shared, nil
	}
}

// Wipe discards the private half. The public key stays readable.
func (kp *KeyPair) Wipe() {
	memzero.Zero(kp.scalar)
	kp.scalar = nil
	kp.p256 = nil
}

func isP256(f KeyFormat) bool {
	return f == FormatP256Raw || f == FormatP256Uncompressed
}
