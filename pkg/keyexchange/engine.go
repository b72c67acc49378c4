package keyexchange

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/fastpair-protocol/fastpair-go/internal/memzero"
)

// Handshake errors.
var (
	ErrConfirmationFailed = errors.New("key confirmation failed")
	ErrInvalidResponse    = errors.New("invalid provider response")
	ErrSessionClosed      = errors.New("key exchange session closed")
)

// Channel carries handshake blocks to the provider's pairing service.
// Framing below the block level belongs to the radio stack.
type Channel interface {
	// WriteKeyBasedPairing sends a key-based pairing request and returns the
	// provider's encrypted response block.
	WriteKeyBasedPairing(ctx context.Context, request []byte) ([]byte, error)

	// WritePasskey sends the seeker's encrypted passkey block and returns the
	// provider's encrypted passkey block.
	WritePasskey(ctx context.Context, block []byte) ([]byte, error)

	// WriteAccountKey stores an encrypted account key on the provider.
	WriteAccountKey(ctx context.Context, block []byte) error

	// WriteAdditionalData sends sealed additional data (e.g. device name).
	WriteAdditionalData(ctx context.Context, data []byte) error
}

// Engine runs the seeker side of the handshake.
type Engine struct {
	rand io.Reader
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand overrides the randomness source. Intended for tests.
func WithRand(r io.Reader) Option {
	return func(e *Engine) {
		e.rand = r
	}
}

// NewEngine creates a handshake engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{rand: rand.Reader}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handshake establishes the session key with the provider at providerAddress.
//
// An account key is used directly. A public key triggers ephemeral key
// agreement; the ephemeral private key is wiped as soon as the session key is
// derived. Either way the provider must prove knowledge of the key by
// answering the key-based pairing request.
func (e *Engine) Handshake(ctx context.Context, ch Channel, material KeyMaterial, providerAddress string) (*Session, error) {
	if material.IsZero() {
		return nil, ErrEmptyKeyMaterial
	}
	addr, err := ParseAddress(providerAddress)
	if err != nil {
		return nil, err
	}

	var key, localPublic []byte
	if material.IsAccountKey() {
		key = material.Bytes()
	} else {
		key, localPublic, err = e.agree(material.Bytes())
		if err != nil {
			return nil, err
		}
	}

	s := &Session{
		key:        key,
		ch:         ch,
		addr:       addr,
		rand:       e.rand,
		asymmetric: localPublic != nil,
	}
	if err := s.confirm(ctx, localPublic); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (e *Engine) agree(peer []byte) (key, localPublic []byte, err error) {
	kp, err := GenerateKeyPairFor(peer, e.rand)
	if err != nil {
		return nil, nil, err
	}
	defer kp.Wipe()

	key, err = kp.DeriveSessionKey(peer)
	if err != nil {
		return nil, nil, err
	}
	return key, kp.PublicKey(), nil
}

// Session is an established handshake bound to one provider.
type Session struct {
	key        []byte
	ch         Channel
	addr       Address
	rand       io.Reader
	asymmetric bool
}

// confirm runs the key-based pairing request/response.
func (s *Session) confirm(ctx context.Context, localPublic []byte) error {
	req := make([]byte, BlockSize)
	req[0] = MsgKeyBasedPairingRequest
	req[1] = FlagInitiateBonding
	copy(req[2:8], s.addr[:])
	if _, err := io.ReadFull(s.rand, req[8:]); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	enc, err := EncryptBlock(s.key, req)
	if err != nil {
		return err
	}
	payload := append(enc, localPublic...)

	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := s.ch.WriteKeyBasedPairing(ctx, payload)
	if err != nil {
		return fmt.Errorf("failed to write key-based pairing request: %w", err)
	}
	if len(resp) != BlockSize {
		return fmt.Errorf("%w: response is %d bytes", ErrInvalidResponse, len(resp))
	}

	plain, err := DecryptBlock(s.key, resp)
	if err != nil {
		return err
	}
	defer memzero.Zero(plain)

	ok := subtle.ConstantTimeByteEq(plain[0], MsgKeyBasedPairingResponse) &
		subtle.ConstantTimeCompare(plain[1:1+AddressSize], s.addr[:])
	if ok != 1 {
		return ErrConfirmationFailed
	}
	return nil
}

// Asymmetric reports whether the session key came from key agreement.
func (s *Session) Asymmetric() bool {
	return s.asymmetric
}

// Key returns a copy of the session key.
func (s *Session) Key() []byte {
	return append([]byte(nil), s.key...)
}

// VerifyPasskey exchanges passkey blocks with the provider and checks that
// the provider reports the same passkey as the local radio.
func (s *Session) VerifyPasskey(ctx context.Context, passkey uint32) error {
	if s.key == nil {
		return ErrSessionClosed
	}

	block := make([]byte, BlockSize)
	block[0] = MsgSeekerPasskey
	if err := PutPasskey(block[1:4], passkey); err != nil {
		return err
	}
	if _, err := io.ReadFull(s.rand, block[4:]); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	enc, err := EncryptBlock(s.key, block)
	if err != nil {
		return err
	}
	resp, err := s.ch.WritePasskey(ctx, enc)
	if err != nil {
		return fmt.Errorf("failed to write passkey: %w", err)
	}
	if len(resp) != BlockSize {
		return fmt.Errorf("%w: passkey response is %d bytes", ErrInvalidResponse, len(resp))
	}

	plain, err := DecryptBlock(s.key, resp)
	if err != nil {
		return err
	}
	defer memzero.Zero(plain)

	ok := subtle.ConstantTimeByteEq(plain[0], MsgProviderPasskey) &
		subtle.ConstantTimeCompare(plain[1:4], block[1:4])
	if ok != 1 {
		return ErrConfirmationFailed
	}
	return nil
}

// IssueAccountKey generates a fresh account key, writes it to the provider
// encrypted with the session key and returns it.
func (s *Session) IssueAccountKey(ctx context.Context) ([]byte, error) {
	if s.key == nil {
		return nil, ErrSessionClosed
	}

	accountKey := make([]byte, AccountKeySize)
	if _, err := io.ReadFull(s.rand, accountKey); err != nil {
		return nil, fmt.Errorf("failed to generate account key: %w", err)
	}
	accountKey[0] = AccountKeyPrefix

	enc, err := EncryptBlock(s.key, accountKey)
	if err != nil {
		return nil, err
	}
	if err := s.ch.WriteAccountKey(ctx, enc); err != nil {
		return nil, fmt.Errorf("failed to write account key: %w", err)
	}
	return accountKey, nil
}

// WriteAdditionalData seals data under the session key and sends it to the
// provider.
func (s *Session) WriteAdditionalData(ctx context.Context, data []byte) error {
	if s.key == nil {
		return ErrSessionClosed
	}
	sealed, err := SealAdditionalData(s.key, data, s.rand)
	if err != nil {
		return err
	}
	if err := s.ch.WriteAdditionalData(ctx, sealed); err != nil {
		return fmt.Errorf("failed to write additional data: %w", err)
	}
	return nil
}

// Close wipes the session key.
func (s *Session) Close() {
	memzero.Zero(s.key)
	s.key = nil
}
