package fastpair

import (
	"context"
	"errors"

	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
)

var errAgreementUnsupported = errors.New("key agreement requires the key-based pairing service")

// strategy is the exchange mechanism chosen when the address is resolved.
type strategy interface {
	name() string

	// exchange establishes the session for material with the provider.
	exchange(ctx context.Context, material keyexchange.KeyMaterial, address string) (pendingExchange, error)

	close()
}

// pendingExchange is an established key exchange awaiting completion.
type pendingExchange interface {
	// verifyPasskey checks the radio's passkey against the provider's.
	// verified is false when the strategy has no means to check.
	verifyPasskey(ctx context.Context, passkey uint32) (verified bool, err error)

	// finish returns the account key of the pairing, writing a fresh one to
	// the provider when the session came from key agreement.
	finish(ctx context.Context) ([]byte, error)

	close()
}

// gattStrategy runs the handshake over the provider's pairing service.
type gattStrategy struct {
	engine *keyexchange.Engine
	link   Link
}

func (g *gattStrategy) name() string { return "gatt" }

func (g *gattStrategy) exchange(ctx context.Context, material keyexchange.KeyMaterial, address string) (pendingExchange, error) {
	s, err := g.engine.Handshake(ctx, g.link, material, address)
	if err != nil {
		return nil, err
	}
	return &gattExchange{session: s, material: material}, nil
}

func (g *gattStrategy) close() {
	_ = g.link.Close()
}

type gattExchange struct {
	session  *keyexchange.Session
	material keyexchange.KeyMaterial
}

func (e *gattExchange) verifyPasskey(ctx context.Context, passkey uint32) (bool, error) {
	if err := e.session.VerifyPasskey(ctx, passkey); err != nil {
		return false, err
	}
	return true, nil
}

func (e *gattExchange) finish(ctx context.Context) ([]byte, error) {
	if e.session.Asymmetric() {
		return e.session.IssueAccountKey(ctx)
	}
	return e.material.Bytes(), nil
}

func (e *gattExchange) close() {
	e.session.Close()
}

// legacyStrategy bonds without the pairing service. Only an account key the
// caller already trusts can be confirmed; the bond itself is the proof.
type legacyStrategy struct{}

func (legacyStrategy) name() string { return "legacy" }

func (legacyStrategy) exchange(_ context.Context, material keyexchange.KeyMaterial, _ string) (pendingExchange, error) {
	if !material.IsAccountKey() {
		return nil, &Error{Kind: KindPlatformCapabilityUnavailable, Err: errAgreementUnsupported}
	}
	return legacyExchange{key: material.Bytes()}, nil
}

func (legacyStrategy) close() {}

type legacyExchange struct {
	key []byte
}

func (legacyExchange) verifyPasskey(context.Context, uint32) (bool, error) {
	return false, nil
}

func (e legacyExchange) finish(context.Context) ([]byte, error) {
	return append([]byte(nil), e.key...), nil
}

func (legacyExchange) close() {}
