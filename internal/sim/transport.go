package sim

import (
	"context"
	"errors"
	"sync"

	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
)

// ErrUnreachable is returned by Dial for addresses without a provider, or
// while a dial failure is scripted.
var ErrUnreachable = errors.New("sim: provider unreachable")

// Transport connects to registered providers.
type Transport struct {
	mu          sync.Mutex
	providers   map[string]*Provider
	failures    map[string]int
	unavailable bool
	dials       []string
}

// NewTransport creates an empty transport.
func NewTransport() *Transport {
	return &Transport{
		providers: make(map[string]*Provider),
		failures:  make(map[string]int),
	}
}

// Register makes p reachable at address. address may differ from the
// provider's public address, as with a rotating random address.
func (t *Transport) Register(address string, p *Provider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.providers[address] = p
}

// Unregister makes address unreachable.
func (t *Transport) Unregister(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.providers, address)
}

// FailDials makes the next n dials to address fail.
func (t *Transport) FailDials(address string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[address] = n
}

// SetServiceUnavailable makes every dial report that the pairing service
// does not exist.
func (t *Transport) SetServiceUnavailable(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unavailable = v
}

// Dials returns the addresses dialled so far, in order.
func (t *Transport) Dials() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.dials...)
}

// Dial implements fastpair.Transport.
func (t *Transport) Dial(ctx context.Context, address string) (fastpair.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.dials = append(t.dials, address)
	if t.unavailable {
		return nil, fastpair.ErrServiceUnavailable
	}
	if t.failures[address] > 0 {
		t.failures[address]--
		return nil, ErrUnreachable
	}
	p, ok := t.providers[address]
	if !ok {
		return nil, ErrUnreachable
	}
	return p.Link(), nil
}
