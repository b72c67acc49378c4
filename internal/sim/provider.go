package sim

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fastpair-protocol/fastpair-go/internal/memzero"
	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
)

// Provider errors.
var (
	ErrLinkClosed = errors.New("sim: link closed")
	ErrNoSession  = errors.New("sim: no key-based pairing session")
)

// Provider is a simulated accessory.
type Provider struct {
	address keyexchange.Address
	rand    io.Reader

	mu              sync.Mutex
	antiSpoofing    *keyexchange.KeyPair
	accountKeys     [][]byte
	passkey         uint32
	passkeyOverride *uint32
	deviceName      string
	handshakes      int
	agreements      int
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider) error

// WithAntiSpoofingKey gives the provider a key pair of the given format.
func WithAntiSpoofingKey(format keyexchange.KeyFormat) ProviderOption {
	return func(p *Provider) error {
		kp, err := keyexchange.GenerateKeyPair(format, p.rand)
		if err != nil {
			return err
		}
		p.antiSpoofing = kp
		return nil
	}
}

// WithAccountKey stores an account key, as if paired before.
func WithAccountKey(key []byte) ProviderOption {
	return func(p *Provider) error {
		if len(key) != keyexchange.AccountKeySize {
			return fmt.Errorf("sim: account key must be %d bytes", keyexchange.AccountKeySize)
		}
		p.accountKeys = append(p.accountKeys, append([]byte(nil), key...))
		return nil
	}
}

// WithPasskey sets the passkey the provider displays.
func WithPasskey(passkey uint32) ProviderOption {
	return func(p *Provider) error {
		p.passkey = passkey
		return nil
	}
}

// WithProviderRand overrides the randomness source.
func WithProviderRand(r io.Reader) ProviderOption {
	return func(p *Provider) error {
		p.rand = r
		return nil
	}
}

// NewProvider creates a provider with the given public address.
func NewProvider(address string, opts ...ProviderOption) (*Provider, error) {
	addr, err := keyexchange.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	p := &Provider{address: addr, rand: rand.Reader}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Address returns the public address.
func (p *Provider) Address() string {
	return p.address.String()
}

// AntiSpoofingPublicKey returns the provider's public key, or nil.
func (p *Provider) AntiSpoofingPublicKey() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.antiSpoofing == nil {
		return nil
	}
	return p.antiSpoofing.PublicKey()
}

// Passkey returns the passkey the provider displays.
func (p *Provider) Passkey() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.passkey
}

// ReportPasskey makes the provider report passkey over the encrypted channel
// instead of its own, simulating a man in the middle.
func (p *Provider) ReportPasskey(passkey uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passkeyOverride = &passkey
}

// AccountKeys returns copies of the stored account keys.
func (p *Provider) AccountKeys() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.accountKeys))
	for i, k := range p.accountKeys {
		out[i] = append([]byte(nil), k...)
	}
	return out
}

// DeviceName returns the last name written by a seeker.
func (p *Provider) DeviceName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deviceName
}

// Handshakes returns the number of successful key-based pairing requests.
func (p *Provider) Handshakes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handshakes
}

// Agreements returns how many of them used key agreement.
func (p *Provider) Agreements() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agreements
}

// Link opens a connection to the provider's pairing service.
func (p *Provider) Link() fastpair.Link {
	return &link{p: p}
}

// link is one GATT connection. It holds the session key once the key-based
// pairing request succeeded.
type link struct {
	p *Provider

	mu     sync.Mutex
	key    []byte
	closed bool
}

func (l *link) PublicAddress() string {
	return l.p.Address()
}

func (l *link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	memzero.Zero(l.key)
	l.key = nil
	l.closed = true
	return nil
}

func (l *link) sessionKey() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLinkClosed
	}
	if l.key == nil {
		return nil, ErrNoSession
	}
	return l.key, nil
}

// WriteKeyBasedPairing answers with an encrypted response if some known key
// decrypts a request addressed to this provider. Otherwise it answers with
// random bytes, which the seeker fails to verify.
func (l *link) WriteKeyBasedPairing(ctx context.Context, request []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, ErrLinkClosed
	}
	if len(request) < keyexchange.BlockSize {
		return nil, keyexchange.ErrInvalidBlock
	}

	p := l.p
	key, agreed := p.lookupKey(request)
	if key == nil {
		return p.randomBlock()
	}

	resp := make([]byte, keyexchange.BlockSize)
	resp[0] = keyexchange.MsgKeyBasedPairingResponse
	copy(resp[1:1+keyexchange.AddressSize], p.address[:])
	if _, err := io.ReadFull(p.rand, resp[1+keyexchange.AddressSize:]); err != nil {
		return nil, err
	}
	enc, err := keyexchange.EncryptBlock(key, resp)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.handshakes++
	if agreed {
		p.agreements++
	}
	p.mu.Unlock()

	l.mu.Lock()
	l.key = key
	l.mu.Unlock()
	return enc, nil
}

// lookupKey finds the key the request was encrypted with.
func (p *Provider) lookupKey(request []byte) (key []byte, agreed bool) {
	block := request[:keyexchange.BlockSize]

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(request) > keyexchange.BlockSize {
		if p.antiSpoofing == nil {
			return nil, false
		}
		k, err := p.antiSpoofing.DeriveSessionKey(request[keyexchange.BlockSize:])
		if err != nil || !p.accepts(k, block) {
			return nil, false
		}
		return k, true
	}

	for _, k := range p.accountKeys {
		if p.accepts(k, block) {
			return append([]byte(nil), k...), false
		}
	}
	return nil, false
}

func (p *Provider) accepts(key, block []byte) bool {
	plain, err := keyexchange.DecryptBlock(key, block)
	if err != nil {
		return false
	}
	defer memzero.Zero(plain)
	return plain[0] == keyexchange.MsgKeyBasedPairingRequest &&
		subtle.ConstantTimeCompare(plain[2:2+keyexchange.AddressSize], p.address[:]) == 1
}

func (p *Provider) randomBlock() ([]byte, error) {
	b := make([]byte, keyexchange.BlockSize)
	if _, err := io.ReadFull(p.rand, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (l *link) WritePasskey(ctx context.Context, block []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := l.sessionKey()
	if err != nil {
		return nil, err
	}
	plain, err := keyexchange.DecryptBlock(key, block)
	if err != nil {
		return nil, err
	}
	if plain[0] != keyexchange.MsgSeekerPasskey {
		return l.p.randomBlock()
	}

	p := l.p
	p.mu.Lock()
	shown := p.passkey
	if p.passkeyOverride != nil {
		shown = *p.passkeyOverride
	}
	p.mu.Unlock()

	resp := make([]byte, keyexchange.BlockSize)
	resp[0] = keyexchange.MsgProviderPasskey
	if err := keyexchange.PutPasskey(resp[1:4], shown); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(p.rand, resp[4:]); err != nil {
		return nil, err
	}
	return keyexchange.EncryptBlock(key, resp)
}

func (l *link) WriteAccountKey(ctx context.Context, block []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := l.sessionKey()
	if err != nil {
		return err
	}
	accountKey, err := keyexchange.DecryptBlock(key, block)
	if err != nil {
		return err
	}
	if accountKey[0] != keyexchange.AccountKeyPrefix {
		return fmt.Errorf("sim: account key prefix 0x%02x", accountKey[0])
	}

	p := l.p
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range p.accountKeys {
		if bytes.Equal(k, accountKey) {
			return nil
		}
	}
	p.accountKeys = append(p.accountKeys, accountKey)
	return nil
}

func (l *link) WriteAdditionalData(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := l.sessionKey()
	if err != nil {
		return err
	}
	name, err := keyexchange.OpenAdditionalData(key, data)
	if err != nil {
		return err
	}

	p := l.p
	p.mu.Lock()
	p.deviceName = string(name)
	p.mu.Unlock()
	return nil
}
