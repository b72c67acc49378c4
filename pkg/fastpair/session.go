package fastpair

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fastpair-protocol/fastpair-go/internal/memzero"
	"github.com/fastpair-protocol/fastpair-go/pkg/bond"
	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
	plog "github.com/fastpair-protocol/fastpair-go/pkg/log"
	"github.com/fastpair-protocol/fastpair-go/pkg/retry"
)

const (
	opPair    = "pair"
	opUnpair  = "unpair"
	opSetName = "set-name"
)

var (
	errNoKeyMaterial = errors.New("no account key in history and no anti-spoofing key configured")
	errBondRemoved   = errors.New("radio dropped the bond")
	errNotRescued    = errors.New("rescue declined")
)

// session is one pair or unpair run. Only its own goroutine mutates it; the
// state and passkey flag are read concurrently through Connection.
type session struct {
	c     *Connection
	id    string
	hooks hooks
	trace *tracer

	mu      sync.Mutex
	state   State
	address string

	passkeyConfirmed atomic.Bool

	// bondCreated is set once CreateBond was issued by this session.
	bondCreated bool
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

func (s *session) setAddress(address string) {
	s.mu.Lock()
	s.address = address
	s.mu.Unlock()
	s.trace.address = address
}

func (s *session) transition(to State, reason string) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	s.c.debugLog("state change", "session", s.id, "from", from, "to", to, "reason", reason)
	s.trace.state(from, to, reason)
	if obs := s.c.cfg.OnStateChange; obs != nil {
		obs(from, to)
	}
}

// pair runs the pairing protocol. On error any bond this session created has
// already been released.
func (s *session) pair(ctx context.Context, key []byte) (_ SharedSecret, err error) {
	var material keyexchange.KeyMaterial
	if len(key) > 0 {
		if material, err = keyexchange.ParseKeyMaterial(key); err != nil {
			return SharedSecret{}, err
		}
	}

	s.transition(StateResolvingAddress, "")
	strat, address, err := s.resolve(ctx)
	if err != nil {
		return SharedSecret{}, err
	}
	defer strat.close()

	s.setAddress(address)
	s.c.setPublicAddress(address)
	s.notify(ctx, "address resolved", s.hooks.onAddressResolved, address)

	if material.IsZero() {
		if material, err = s.selectMaterial(address); err != nil {
			return SharedSecret{}, err
		}
	}
	if _, legacy := strat.(legacyStrategy); legacy && !material.IsAccountKey() {
		return SharedSecret{}, &Error{Kind: KindPlatformCapabilityUnavailable, Err: errAgreementUnsupported}
	}

	unlock, err := s.c.locker.Lock(ctx, address)
	if err != nil {
		return SharedSecret{}, err
	}
	defer unlock()

	bridge := bond.Open(s.c.radio, address)
	defer bridge.Close()
	defer func() {
		if err != nil && s.bondCreated {
			s.releaseBond(ctx, bridge, address)
		}
	}()

	s.transition(StateCreatingBond, "")
	bonded, err := s.createBond(ctx, bridge, address)
	if err != nil {
		return SharedSecret{}, err
	}

	s.transition(StateExchangingKey, material.Kind().String())
	ex, err := onLink(ctx, s.c.cfg.ExchangeTimeout, "key-based pairing", func(ctx context.Context) (pendingExchange, error) {
		return strat.exchange(ctx, material, address)
	})
	if err != nil {
		return SharedSecret{}, wrapErr(err, KindBond)
	}
	defer ex.close()

	if !bonded {
		if err := s.awaitBonded(ctx, bridge, ex, address); err != nil {
			return SharedSecret{}, err
		}
	}

	accountKey, err := onLink(ctx, s.c.cfg.ExchangeTimeout, "account key", ex.finish)
	if err != nil {
		return SharedSecret{}, wrapErr(err, KindBond)
	}
	defer memzero.Zero(accountKey)

	secret, err := NewSharedSecret(accountKey, address)
	if err != nil {
		return SharedSecret{}, err
	}

	s.transition(StatePaired, "")
	s.c.setAccountKey(accountKey)
	s.notify(ctx, "paired", s.hooks.onPaired, address)
	return secret, nil
}

// resolve dials the pairing service, refreshing the address through the
// signal checker between attempts, and picks the exchange strategy.
func (s *session) resolve(ctx context.Context) (strategy, string, error) {
	address := s.Address()
	var (
		strat  strategy
		public string
	)

	b := retry.NewBackoffWithConfig(s.c.cfg.Backoff)
	err := retry.Do(ctx, s.c.cfg.ResolveAttempts, b, func(ctx context.Context, attempt int) error {
		if attempt > 1 && s.hooks.signalChecker != nil {
			next, err := s.hooks.signalChecker.ValidAddressForModelID(ctx, address)
			if err != nil {
				return fmt.Errorf("signal checker: %w", err)
			}
			if next, err = canonicalAddress(next); err != nil {
				return fmt.Errorf("signal checker: %w", err)
			}
			s.c.debugLog("address refreshed", "session", s.id, "from", address, "to", next, "attempt", attempt)
			address = next
		}

		if s.c.transport == nil {
			return retry.Permanent(ErrServiceUnavailable)
		}
		link, err := onLink(ctx, s.c.cfg.ExchangeTimeout, "dial", func(ctx context.Context) (Link, error) {
			return s.c.transport.Dial(ctx, address)
		})
		if err != nil {
			if errors.Is(err, ErrServiceUnavailable) || ctx.Err() != nil {
				return retry.Permanent(err)
			}
			s.c.debugLog("dial failed", "session", s.id, "address", address, "attempt", attempt, "error", err)
			return err
		}
		if public, err = canonicalAddress(link.PublicAddress()); err != nil {
			_ = link.Close()
			return fmt.Errorf("provider reported %w", err)
		}
		strat = &gattStrategy{engine: s.c.engine, link: &tracedLink{Link: link, t: s.trace}}
		return nil
	})

	switch {
	case err == nil:
		return strat, public, nil
	case errors.Is(err, ErrServiceUnavailable):
		if s.c.cfg.Fallback == FallbackLegacy {
			s.c.debugLog("pairing service unavailable, using legacy strategy", "session", s.id, "address", address)
			return legacyStrategy{}, address, nil
		}
		return nil, "", &Error{Kind: KindPlatformCapabilityUnavailable, Err: err}
	case ctx.Err() != nil:
		return nil, "", &Error{Kind: KindCancelled, Err: ctx.Err()}
	default:
		return nil, "", &Error{Kind: KindAddressResolution, Err: err}
	}
}

// selectMaterial picks the key for a pair call that supplied none.
func (s *session) selectMaterial(address string) (keyexchange.KeyMaterial, error) {
	if key, ok := MatchHistory(s.c.History(), address); ok {
		defer memzero.Zero(key)
		s.c.debugLog("account key found in history", "session", s.id, "address", address)
		return keyexchange.AccountKey(key)
	}
	if len(s.c.cfg.AntiSpoofingKey) > 0 {
		return keyexchange.ParseKeyMaterial(s.c.cfg.AntiSpoofingKey)
	}
	return keyexchange.KeyMaterial{}, &Error{Kind: KindPlatformCapabilityUnavailable, Err: errNoKeyMaterial}
}

// createBond requests the bond and waits for the radio to acknowledge it.
// bonded reports whether the bond is already complete.
func (s *session) createBond(ctx context.Context, bridge *bond.Bridge, address string) (bonded bool, err error) {
	if s.c.radio.BondState(address) == bond.StateBonded {
		s.c.debugLog("already bonded", "session", s.id, "address", address)
		return true, nil
	}

	if fn := s.hooks.prepareCreateBond; fn != nil {
		_, err := callWithTimeout(ctx, s.c.cfg.CallbackTimeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx, address)
		})
		if err != nil {
			return false, wrapErr(fmt.Errorf("prepare create bond: %w", err), KindBond)
		}
	}

	s.trace.bondRequest("CREATE_BOND")
	if err := s.c.radio.CreateBond(address); err != nil {
		return false, &Error{Kind: KindBond, Err: fmt.Errorf("create bond: %w", err)}
	}
	s.bondCreated = true

	e, err := s.await(ctx, bridge, s.c.cfg.BondTimeout, bond.InState(bond.StateBonding, bond.StateBonded, bond.StateNone))
	if err != nil {
		return false, err
	}
	switch e.State {
	case bond.StateNone:
		return false, bondDropped(e)
	case bond.StateBonded:
		return true, nil
	}
	return false, nil
}

// awaitBonded waits for the bond to complete, confirming a passkey if the
// radio asks for one.
func (s *session) awaitBonded(ctx context.Context, bridge *bond.Bridge, ex pendingExchange, address string) error {
	e, err := s.await(ctx, bridge, s.c.cfg.BondTimeout, bond.Any(bond.PasskeyRequested, bond.InState(bond.StateBonded, bond.StateNone)))
	if err != nil {
		return err
	}

	if e.Type == bond.EventPasskeyRequest {
		s.transition(StateAwaitingPasskeyConfirmation, "")
		if err := s.confirmPasskey(ctx, ex, address, e.Passkey); err != nil {
			return err
		}
		if e, err = s.await(ctx, bridge, s.c.cfg.BondTimeout, bond.InState(bond.StateBonded, bond.StateNone)); err != nil {
			return err
		}
	}

	if e.State == bond.StateNone {
		return bondDropped(e)
	}
	return nil
}

// confirmPasskey checks the passkey with the provider and asks the handler,
// concurrently. Both finish before it returns.
func (s *session) confirmPasskey(ctx context.Context, ex pendingExchange, address string, passkey uint32) error {
	var verified, accepted bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := onLink(gctx, s.c.cfg.ExchangeTimeout, "passkey", func(ctx context.Context) (bool, error) {
			return ex.verifyPasskey(ctx, passkey)
		})
		if err != nil {
			return wrapErr(fmt.Errorf("verify passkey: %w", err), KindCryptoVerification)
		}
		verified = v
		return nil
	})
	if h := s.hooks.passkey; h != nil {
		g.Go(func() error {
			ok, err := callWithTimeout(gctx, s.c.cfg.PasskeyTimeout, func(ctx context.Context) (bool, error) {
				return h.ConfirmPasskey(ctx, passkey)
			})
			if err != nil {
				if errors.Is(err, errHookTimeout) || gctx.Err() != nil {
					return wrapErr(err, KindTimeout)
				}
				return &Error{Kind: KindPasskeyRejected, Err: err}
			}
			accepted = ok
			return nil
		})
	}

	err := g.Wait()
	if err == nil && s.hooks.passkey == nil {
		accepted = verified && s.c.cfg.PasskeyPolicy == PasskeyAcceptVerified
		s.c.debugLog("no passkey handler, applying policy", "session", s.id, "policy", s.c.cfg.PasskeyPolicy, "verified", verified)
	}

	if err != nil || !accepted {
		s.trace.bondRequest("REJECT_PASSKEY")
		if rerr := s.c.radio.ConfirmPasskey(address, false); rerr != nil {
			s.c.debugLog("reject passkey failed", "session", s.id, "error", rerr)
		}
		if err != nil {
			return err
		}
		return &Error{Kind: KindPasskeyRejected}
	}

	s.passkeyConfirmed.Store(true)
	s.trace.bondRequest("CONFIRM_PASSKEY")
	if err := s.c.radio.ConfirmPasskey(address, true); err != nil {
		return &Error{Kind: KindBond, Err: fmt.Errorf("confirm passkey: %w", err)}
	}
	return nil
}

func (s *session) await(ctx context.Context, bridge *bond.Bridge, timeout time.Duration, match func(bond.Event) bool) (bond.Event, error) {
	e, err := bridge.Wait(ctx, timeout, match)
	if err != nil {
		return e, wrapErr(err, KindBond)
	}
	s.trace.bondEvent(e)
	return e, nil
}

// releaseBond removes a bond this session created. It runs on a fresh
// context so a cancelled caller still gets its bond cleaned up.
func (s *session) releaseBond(ctx context.Context, bridge *bond.Bridge, address string) {
	if s.c.radio.BondState(address) == bond.StateNone {
		return
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.c.cfg.UnbondTimeout)
	defer cancel()

	s.trace.bondRequest("REMOVE_BOND")
	if err := s.c.radio.RemoveBond(address); err != nil {
		s.c.debugLog("release bond failed", "session", s.id, "address", address, "error", err)
		return
	}
	if _, err := bridge.Wait(rctx, s.c.cfg.UnbondTimeout, bond.InState(bond.StateNone)); err != nil {
		s.c.debugLog("release bond unconfirmed", "session", s.id, "address", address, "error", err)
	}
}

// unpair removes the bond with address. Absent bonds are not an error.
func (s *session) unpair(ctx context.Context, address string) error {
	s.transition(StateUnpairing, "")

	unlock, err := s.c.locker.Lock(ctx, address)
	if err != nil {
		return err
	}
	defer unlock()

	bridge := bond.Open(s.c.radio, address)
	defer bridge.Close()

	if s.c.radio.BondState(address) == bond.StateNone {
		s.transition(StateUnpaired, "not bonded")
		return nil
	}

	s.trace.bondRequest("REMOVE_BOND")
	if err := s.c.radio.RemoveBond(address); err != nil {
		return &Error{Kind: KindBond, Err: fmt.Errorf("remove bond: %w", err)}
	}
	if _, err := s.await(ctx, bridge, s.c.cfg.UnbondTimeout, bond.InState(bond.StateNone)); err != nil {
		return err
	}

	s.transition(StateUnpaired, "")
	return nil
}

// notify runs a notification hook under the callback timeout.
func (s *session) notify(ctx context.Context, name string, fn func(address string), address string) {
	if fn == nil {
		return
	}
	_, err := callWithTimeout(ctx, s.c.cfg.CallbackTimeout, func(context.Context) (struct{}, error) {
		fn(address)
		return struct{}{}, nil
	})
	if err != nil {
		s.c.debugLog("callback did not complete", "session", s.id, "callback", name, "error", err)
	}
}

// rescue consults the rescue hook under the callback timeout. Crypto
// failures and cancellation are never rescued. consulted reports whether the
// hook ran.
func (s *session) rescue(ctx context.Context, fe *Error) (secret SharedSecret, ok, consulted bool) {
	fn := s.hooks.rescue
	if fn == nil || fe.Kind == KindCryptoVerification || fe.Kind == KindCancelled {
		return SharedSecret{}, false, false
	}
	secret, err := callWithTimeout(ctx, s.c.cfg.CallbackTimeout, func(ctx context.Context) (SharedSecret, error) {
		secret, ok := fn(ctx, fe)
		if !ok || secret.IsZero() {
			return SharedSecret{}, errNotRescued
		}
		return secret, nil
	})
	if err != nil {
		s.c.debugLog("failure not rescued", "session", s.id, "kind", fe.Kind, "error", err)
		return SharedSecret{}, false, true
	}
	s.c.debugLog("failure rescued", "session", s.id, "kind", fe.Kind, "address", secret.Address())
	return secret, true, true
}

// finalError turns err into the *Error returned to the caller.
func (s *session) finalError(ctx context.Context, op string, err error) *Error {
	out := &Error{Op: op, Address: s.Address()}

	var fe *Error
	if errors.As(err, &fe) {
		out.Kind, out.Err = fe.Kind, fe.Err
	} else {
		out.Kind, out.Err = classify(err, KindBond), err
	}
	if ctx.Err() != nil {
		out.Kind = KindCancelled
		if out.Err == nil {
			out.Err = ctx.Err()
		}
	}

	layer := plog.LayerSession
	switch out.Kind {
	case KindBond, KindTimeout:
		layer = plog.LayerBond
	case KindCryptoVerification:
		layer = plog.LayerExchange
	}
	s.trace.failure(layer, out, s.State().String())
	return out
}

// wrapErr converts err to an *Error, classifying it with fallback unless it
// already is one.
func wrapErr(err error, fallback Kind) error {
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Kind: classify(err, fallback), Err: err}
}

func bondDropped(e bond.Event) error {
	return &Error{Kind: KindBond, Err: fmt.Errorf("%w (reason %d)", errBondRemoved, e.Reason)}
}

func canonicalAddress(s string) (string, error) {
	a, err := keyexchange.ParseAddress(s)
	if err != nil {
		return "", err
	}
	return a.String(), nil
}

func newSessionID() string {
	return uuid.New().String()
}
