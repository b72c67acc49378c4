package fastpair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fastpair-protocol/fastpair-go/internal/memzero"
	"github.com/fastpair-protocol/fastpair-go/pkg/bond"
	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
	plog "github.com/fastpair-protocol/fastpair-go/pkg/log"
)

// Connection pairs with one accessory. It is safe for concurrent use; all
// blocking methods must be called from a goroutine that may block.
type Connection struct {
	cfg       Config
	radio     bond.Primitive
	transport Transport
	callbacks *Callbacks
	engine    *keyexchange.Engine
	locker    *bond.Locker
	logger    *slog.Logger

	flights flightGroup

	mu            sync.RWMutex
	publicAddress string
	deviceName    string
	accountKey    []byte
	history       []HistoryItem
	current       *session
}

// Option customises a Connection.
type Option func(*Connection)

// WithEngine sets the key exchange engine.
func WithEngine(e *keyexchange.Engine) Option {
	return func(c *Connection) {
		c.engine = e
	}
}

// WithLocker shares a bond locker between connections using the same radio,
// so that no two of them touch the bond of one address at once.
func WithLocker(l *bond.Locker) Option {
	return func(c *Connection) {
		c.locker = l
	}
}

// New creates a Connection for the accessory at cfg.Address. transport may be
// nil, in which case every pair attempt takes the configured fallback.
//
// Without WithLocker each Connection serialises bond changes only among its
// own calls. Connections that share a radio and may reach the same accessory
// must be given one Locker, or they can issue overlapping bond requests for
// one address.
func New(cfg Config, radio bond.Primitive, transport Transport, cb *Callbacks, opts ...Option) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if radio == nil {
		return nil, fmt.Errorf("%w: radio is nil", ErrInvalidConfig)
	}
	cfg.Address, _ = canonicalAddress(cfg.Address)

	c := &Connection{
		cfg:       cfg,
		radio:     radio,
		transport: transport,
		callbacks: cb,
		logger:    cfg.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = keyexchange.NewEngine()
	}
	if c.locker == nil {
		c.locker = &bond.Locker{}
	}
	return c, nil
}

// Pair pairs without supplied key material. A history entry for the
// accessory is confirmed as is; otherwise the configured anti-spoofing key
// is used for key agreement.
func (c *Connection) Pair(ctx context.Context) (SharedSecret, error) {
	return c.pair(ctx, nil)
}

// PairWithKey pairs using key. A 16-byte key is an account key and is used
// without key agreement; any other length is the provider's public key.
// An empty key behaves like Pair. A call that overlaps a running pair on
// this Connection joins it and receives its outcome, whatever key it passed.
// Joined calls see a failure before the rescue hook runs; only the call that
// started the pair is rescued.
func (c *Connection) PairWithKey(ctx context.Context, key []byte) (SharedSecret, error) {
	return c.pair(ctx, key)
}

func (c *Connection) pair(ctx context.Context, key []byte) (SharedSecret, error) {
	r, err, leader := c.flights.do(ctx, opPair+" "+c.cfg.Address, opPair, func() (flightResult, error) {
		s := c.newSession(plog.OperationPair, c.cfg.Address)
		secret, err := s.pair(ctx, key)
		if err != nil {
			return flightResult{sess: s}, s.finalError(ctx, opPair, err)
		}
		return flightResult{secret: secret}, nil
	})
	if !leader {
		c.debugLog("joined in-flight pair", "address", c.cfg.Address, "error", err)
		return r.secret, fillAddress(err, c.cfg.Address)
	}

	var fe *Error
	if err != nil && r.sess != nil && errors.As(err, &fe) {
		return c.settle(ctx, r.sess, fe)
	}
	return r.secret, fillAddress(err, c.cfg.Address)
}

// settle ends a failed pair once its flight is released, so the rescue hook
// may pair again through this Connection.
func (c *Connection) settle(ctx context.Context, s *session, fe *Error) (SharedSecret, error) {
	rescued, ok, consulted := s.rescue(ctx, fe)
	if cerr := ctx.Err(); consulted && cerr != nil {
		fe = &Error{Kind: KindCancelled, Op: opPair, Address: fe.Address, Err: cerr}
		s.trace.failure(plog.LayerSession, fe, s.State().String())
		ok = false
	}
	if ok {
		s.setAddress(rescued.Address())
		s.transition(StatePaired, "rescued")
		s.notify(ctx, "paired", s.hooks.onPaired, rescued.Address())
		return rescued, nil
	}

	s.transition(StateFailed, fe.Kind.String())
	return SharedSecret{}, fillAddress(fe, c.cfg.Address)
}

// Unpair removes the bond with address. It succeeds without touching the
// radio when no bond exists.
func (c *Connection) Unpair(ctx context.Context, address string) error {
	canonical, err := canonicalAddress(address)
	if err != nil {
		return &Error{Kind: KindAddressResolution, Op: opUnpair, Address: address, Err: err}
	}

	_, err, _ = c.flights.do(ctx, opUnpair+" "+canonical, opUnpair, func() (flightResult, error) {
		s := c.newSession(plog.OperationUnpair, canonical)
		if err := s.unpair(ctx, canonical); err != nil {
			fe := s.finalError(ctx, opUnpair, err)
			s.transition(StateFailed, fe.Kind.String())
			return flightResult{}, fe
		}
		return flightResult{}, nil
	})
	return fillAddress(err, canonical)
}

func (c *Connection) newSession(op plog.Operation, address string) *session {
	s := &session{
		c:       c,
		id:      newSessionID(),
		hooks:   c.callbacks.seal(),
		address: address,
	}
	s.trace = &tracer{logger: c.cfg.ProtocolLogger, sessionID: s.id, op: op, address: address}

	c.mu.Lock()
	c.current = s
	c.mu.Unlock()

	c.debugLog("session started", "session", s.id, "op", op, "address", address, "model_id", c.cfg.ModelID)
	return s
}

// State returns the state of the most recent session, or StateIdle.
func (c *Connection) State() State {
	c.mu.RLock()
	s := c.current
	c.mu.RUnlock()
	if s == nil {
		return StateIdle
	}
	return s.State()
}

// PasskeyConfirmed reports whether the most recent session confirmed a
// passkey. Within a session it never reverts to false.
func (c *Connection) PasskeyConfirmed() bool {
	c.mu.RLock()
	s := c.current
	c.mu.RUnlock()
	return s != nil && s.passkeyConfirmed.Load()
}

// PublicAddress returns the last resolved public address, or "".
func (c *Connection) PublicAddress() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.publicAddress
}

func (c *Connection) setPublicAddress(address string) {
	c.mu.Lock()
	c.publicAddress = address
	c.mu.Unlock()
}

// ExistingAccountKey returns the account key known for the accessory: the
// key of the last successful pair, or a history match for its public
// address.
func (c *Connection) ExistingAccountKey() ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.accountKey) > 0 {
		return append([]byte(nil), c.accountKey...), true
	}
	if c.publicAddress == "" {
		return nil, false
	}
	return MatchHistory(c.history, c.publicAddress)
}

func (c *Connection) setAccountKey(key []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	memzero.Zero(c.accountKey)
	c.accountKey = append([]byte(nil), key...)
}

// SetHistory replaces the history consulted by Pair.
func (c *Connection) SetHistory(items []HistoryItem) {
	copied := make([]HistoryItem, len(items))
	for i, item := range items {
		copied[i] = HistoryItem{
			AccountKey:  append([]byte(nil), item.AccountKey...),
			AddressHash: item.AddressHash,
		}
	}

	c.mu.Lock()
	c.history = copied
	c.mu.Unlock()
}

// History returns the history consulted by Pair.
func (c *Connection) History() []HistoryItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]HistoryItem(nil), c.history...)
}

// ProviderDeviceName returns the name last set for the accessory.
func (c *Connection) ProviderDeviceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceName
}

// SetProviderDeviceName records name. When the accessory is paired and its
// pairing service is reachable, the name is also written to it encrypted
// under the account key.
func (c *Connection) SetProviderDeviceName(ctx context.Context, name string) error {
	c.mu.Lock()
	c.deviceName = name
	address := c.publicAddress
	key := append([]byte(nil), c.accountKey...)
	c.mu.Unlock()
	defer memzero.Zero(key)

	if len(key) == 0 || address == "" || c.transport == nil {
		return nil
	}

	t := &tracer{logger: c.cfg.ProtocolLogger, sessionID: newSessionID(), address: address}
	fail := func(kind Kind, err error) error {
		fe := &Error{Kind: classify(err, kind), Op: opSetName, Address: address, Err: err}
		t.failure(plog.LayerExchange, fe, "write device name")
		return fe
	}

	timeout := c.cfg.ExchangeTimeout
	link, err := onLink(ctx, timeout, "dial", func(ctx context.Context) (Link, error) {
		return c.transport.Dial(ctx, address)
	})
	if err != nil {
		if errors.Is(err, ErrServiceUnavailable) {
			c.debugLog("device name kept locally, pairing service unavailable", "address", address)
			return nil
		}
		return fail(KindAddressResolution, err)
	}
	defer link.Close()

	material, err := keyexchange.AccountKey(key)
	if err != nil {
		return fail(KindCryptoVerification, err)
	}
	sess, err := onLink(ctx, timeout, "key-based pairing", func(ctx context.Context) (*keyexchange.Session, error) {
		return c.engine.Handshake(ctx, &tracedLink{Link: link, t: t}, material, address)
	})
	if err != nil {
		return fail(KindBond, err)
	}
	defer sess.Close()

	_, err = onLink(ctx, timeout, "device name", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, sess.WriteAdditionalData(ctx, []byte(name))
	})
	if err != nil {
		return fail(KindBond, err)
	}
	c.debugLog("device name written", "address", address)
	return nil
}

// debugLog logs a debug message if logging is enabled.
func (c *Connection) debugLog(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func fillAddress(err error, address string) error {
	var fe *Error
	if errors.As(err, &fe) && fe.Address == "" {
		fe.Address = address
	}
	return err
}
