package fastpair_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fastpair-protocol/fastpair-go/internal/sim"
	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
	plog "github.com/fastpair-protocol/fastpair-go/pkg/log"
	"github.com/fastpair-protocol/fastpair-go/pkg/retry"
)

const (
	// publicAddr is the accessory's stable address, the one it bonds with.
	publicAddr = "AA:BB:CC:DD:EE:01"

	// randomAddr is the rotating address discovery reported.
	randomAddr = "5A:11:22:33:44:55"
)

func testAccountKey() []byte {
	return []byte{0x04, 0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 0x90, 0xA0, 0xB0, 0xC0, 0xD0, 0xE0, 0xF0}
}

// stateRecorder collects the target state of every transition.
type stateRecorder struct {
	mu     sync.Mutex
	states []fastpair.State
}

func (r *stateRecorder) observe(_, to fastpair.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, to)
}

func (r *stateRecorder) all() []fastpair.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fastpair.State(nil), r.states...)
}

// eventRecorder is an in-memory protocol logger.
type eventRecorder struct {
	mu     sync.Mutex
	events []plog.Event
}

func (r *eventRecorder) Log(e plog.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) all() []plog.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]plog.Event(nil), r.events...)
}

type fixture struct {
	radio     *sim.Radio
	transport *sim.Transport
	provider  *sim.Provider
	cfg       fastpair.Config
	states    *stateRecorder
	events    *eventRecorder
}

// newFixture wires a provider reachable at randomAddr and a radio that bonds
// with its public address.
func newFixture(t *testing.T, opts ...sim.ProviderOption) *fixture {
	t.Helper()

	p, err := sim.NewProvider(publicAddr, opts...)
	require.NoError(t, err)

	radio := sim.NewRadio()
	t.Cleanup(radio.Close)

	tr := sim.NewTransport()
	tr.Register(randomAddr, p)

	f := &fixture{
		radio:     radio,
		transport: tr,
		provider:  p,
		states:    &stateRecorder{},
		events:    &eventRecorder{},
	}

	f.cfg = fastpair.DefaultConfig()
	f.cfg.Address = randomAddr
	f.cfg.BondTimeout = 2 * time.Second
	f.cfg.UnbondTimeout = time.Second
	f.cfg.PasskeyTimeout = time.Second
	f.cfg.CallbackTimeout = time.Second
	f.cfg.Backoff = retry.Config{Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2}
	f.cfg.OnStateChange = f.states.observe
	f.cfg.ProtocolLogger = f.events
	return f
}

func (f *fixture) connect(t *testing.T, cb *fastpair.Callbacks) *fastpair.Connection {
	t.Helper()
	conn, err := fastpair.New(f.cfg, f.radio, f.transport, cb)
	require.NoError(t, err)
	return conn
}

// silentTransport dials links to a provider that never answers.
type silentTransport struct {
	public string
}

func (t silentTransport) Dial(context.Context, string) (fastpair.Link, error) {
	return silentLink(t), nil
}

type silentLink struct {
	public string
}

func (l silentLink) WriteKeyBasedPairing(ctx context.Context, _ []byte) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (l silentLink) WritePasskey(ctx context.Context, _ []byte) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (l silentLink) WriteAccountKey(ctx context.Context, _ []byte) error {
	<-ctx.Done()
	return ctx.Err()
}

func (l silentLink) WriteAdditionalData(ctx context.Context, _ []byte) error {
	<-ctx.Done()
	return ctx.Err()
}

func (l silentLink) PublicAddress() string { return l.public }

func (silentLink) Close() error { return nil }

// swapTransport forwards to a transport that can be replaced mid-test.
type swapTransport struct {
	mu sync.Mutex
	t  fastpair.Transport
}

func (s *swapTransport) set(t fastpair.Transport) {
	s.mu.Lock()
	s.t = t
	s.mu.Unlock()
}

func (s *swapTransport) Dial(ctx context.Context, address string) (fastpair.Link, error) {
	s.mu.Lock()
	t := s.t
	s.mu.Unlock()
	return t.Dial(ctx, address)
}
