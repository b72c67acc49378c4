package keyexchange

import (
	"crypto/aes"
	"errors"
	"fmt"
	"net"
)

// BlockSize is the size of every encrypted handshake block.
const BlockSize = aes.BlockSize

// AddressSize is the size of a radio address in bytes.
const AddressSize = 6

// MaxPasskey is the largest six-digit passkey.
const MaxPasskey = 999999

// Message types (first byte of each decrypted block).
const (
	MsgKeyBasedPairingRequest  uint8 = 0x00
	MsgKeyBasedPairingResponse uint8 = 0x01
	MsgSeekerPasskey           uint8 = 0x02
	MsgProviderPasskey         uint8 = 0x03
)

// Request flags.
const (
	// FlagInitiateBonding asks the provider to accept an incoming bond.
	FlagInitiateBonding uint8 = 0x40
)

// Block errors.
var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrInvalidBlock   = errors.New("invalid block size")
	ErrInvalidAddress = errors.New("invalid radio address")
	ErrPasskeyRange   = errors.New("passkey out of range")
)

// Address is a 6-byte radio address.
type Address [AddressSize]byte

// ParseAddress parses "AA:BB:CC:DD:EE:FF".
func ParseAddress(s string) (Address, error) {
	var a Address
	hw, err := net.ParseMAC(s)
	if err != nil {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if len(hw) != AddressSize {
		return a, fmt.Errorf("%w: %q has %d bytes", ErrInvalidAddress, s, len(hw))
	}
	copy(a[:], hw)
	return a, nil
}

// String formats the address as upper-case colon separated hex.
func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// EncryptBlock encrypts one 16-byte block with a 16-byte key.
func EncryptBlock(key, plain []byte) ([]byte, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, len(key))
	}
	if len(plain) != BlockSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlock, len(plain))
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, BlockSize)
	c.Encrypt(out, plain)
	return out, nil
}

// DecryptBlock decrypts one 16-byte block with a 16-byte key.
func DecryptBlock(key, cipherText []byte) ([]byte, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, len(key))
	}
	if len(cipherText) != BlockSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlock, len(cipherText))
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, BlockSize)
	c.Decrypt(out, cipherText)
	return out, nil
}

// PutPasskey writes a passkey as 3 big-endian bytes.
func PutPasskey(b []byte, passkey uint32) error {
	if passkey > MaxPasskey {
		return fmt.Errorf("%w: %d", ErrPasskeyRange, passkey)
	}
	b[0] = byte(passkey >> 16)
	b[1] = byte(passkey >> 8)
	b[2] = byte(passkey)
	return nil
}

// Passkey reads a 3-byte big-endian passkey.
func Passkey(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
