package keyexchange

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// Additional data layout: mac[8] || nonce[8] || ciphertext.
const (
	additionalMACSize   = 8
	additionalNonceSize = 8
	additionalHeader    = additionalMACSize + additionalNonceSize
)

// ErrAdditionalDataAuth is returned when additional data fails authentication.
var ErrAdditionalDataAuth = errors.New("additional data authentication failed")

// SealAdditionalData encrypts data with AES-CTR under key and prefixes a
// truncated HMAC-SHA256 tag over nonce || ciphertext.
func SealAdditionalData(key, data []byte, rand io.Reader) ([]byte, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, len(key))
	}

	out := make([]byte, additionalHeader+len(data))
	nonce := out[additionalMACSize:additionalHeader]
	if _, err := io.ReadFull(rand, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	stream, err := ctrStream(key, nonce)
	if err != nil {
		return nil, err
	}
	stream.XORKeyStream(out[additionalHeader:], data)

	copy(out[:additionalMACSize], additionalMAC(key, out[additionalMACSize:]))
	return out, nil
}

// OpenAdditionalData authenticates and decrypts sealed additional data.
func OpenAdditionalData(key, sealed []byte) ([]byte, error) {
	if len(key) != SessionKeySize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, len(key))
	}
	if len(sealed) < additionalHeader {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidBlock, len(sealed))
	}

	if !hmac.Equal(sealed[:additionalMACSize], additionalMAC(key, sealed[additionalMACSize:])) {
		return nil, ErrAdditionalDataAuth
	}

	stream, err := ctrStream(key, sealed[additionalMACSize:additionalHeader])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(sealed)-additionalHeader)
	stream.XORKeyStream(out, sealed[additionalHeader:])
	return out, nil
}

func ctrStream(key, nonce []byte) (cipher.Stream, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, aes.BlockSize)
	copy(iv, nonce)
	return cipher.NewCTR(block, iv), nil
}

func additionalMAC(key, msg []byte) []byte {
	m := hmac.New(sha256.New, key)
	m.Write(msg)
	return m.Sum(nil)[:additionalMACSize]
}
