package sim

import (
	"errors"
	"sync"
	"time"

	"github.com/fastpair-protocol/fastpair-go/pkg/bond"
)

// Radio errors.
var (
	ErrBondInProgress   = errors.New("sim: bond already in progress")
	ErrNoPasskeyRequest = errors.New("sim: no passkey request pending")
	ErrRadioClosed      = errors.New("sim: radio closed")
)

// Behavior controls how the radio bonds with one address.
type Behavior struct {
	// CreateErr is returned synchronously by CreateBond.
	CreateErr error

	// Silent accepts CreateBond but never reports anything.
	Silent bool

	// Stall reports BONDING and then nothing.
	Stall bool

	// Drop reports BONDING and then NONE.
	Drop bool

	// Passkey, when non-zero, makes the radio ask for passkey confirmation
	// after BONDING.
	Passkey uint32

	// Hold delays completion until it is closed.
	Hold <-chan struct{}

	// Delay is slept before each notification.
	Delay time.Duration
}

// Radio is an in-memory bond.Primitive. Notifications are delivered from
// goroutines owned by the radio.
type Radio struct {
	// emitMu orders deliveries across goroutines.
	emitMu sync.Mutex

	mu        sync.Mutex
	behaviors map[string]Behavior
	states    map[string]bond.State
	gens      map[string]uint64
	aborts    map[string]chan struct{}
	pending   map[string]chan bool
	subs      map[string]map[uint64]func(bond.Event)
	nextSub   uint64
	creates   map[string]int
	removes   map[string]int
	answers   map[string][]bool
	closed    bool

	wg sync.WaitGroup
}

// NewRadio creates a radio with no bonds.
func NewRadio() *Radio {
	return &Radio{
		behaviors: make(map[string]Behavior),
		states:    make(map[string]bond.State),
		gens:      make(map[string]uint64),
		aborts:    make(map[string]chan struct{}),
		pending:   make(map[string]chan bool),
		subs:      make(map[string]map[uint64]func(bond.Event)),
		creates:   make(map[string]int),
		removes:   make(map[string]int),
		answers:   make(map[string][]bool),
	}
}

// SetBehavior sets the bonding behaviour for address.
func (r *Radio) SetBehavior(address string, b Behavior) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.behaviors[address] = b
}

// SetBondState forces the bond state of address without notifying anyone.
func (r *Radio) SetBondState(address string, s bond.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[address] = s
}

// CreateBonds returns how often CreateBond was called for address.
func (r *Radio) CreateBonds(address string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates[address]
}

// RemoveBonds returns how often RemoveBond was called for address.
func (r *Radio) RemoveBonds(address string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removes[address]
}

// PasskeyAnswers returns the ConfirmPasskey answers given for address.
func (r *Radio) PasskeyAnswers(address string) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.answers[address]...)
}

// Subscribers returns the number of subscriptions for address.
func (r *Radio) Subscribers(address string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[address])
}

func (r *Radio) CreateBond(address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRadioClosed
	}
	b := r.behaviors[address]
	if b.CreateErr != nil {
		return b.CreateErr
	}
	if r.states[address] == bond.StateBonding {
		return ErrBondInProgress
	}
	r.creates[address]++

	gen := r.restart(address)
	if b.Silent {
		r.states[address] = bond.StateBonding
		return nil
	}
	abort := make(chan struct{})
	r.aborts[address] = abort

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runBond(address, gen, b, abort)
	}()
	return nil
}

// restart invalidates notifications of earlier operations on address.
// r.mu must be held.
func (r *Radio) restart(address string) uint64 {
	r.gens[address]++
	if abort, ok := r.aborts[address]; ok {
		close(abort)
		delete(r.aborts, address)
	}
	delete(r.pending, address)
	return r.gens[address]
}

func (r *Radio) runBond(address string, gen uint64, b Behavior, abort <-chan struct{}) {
	if !r.step(address, gen, b.Delay, abort, bond.Event{Type: bond.EventStateChanged, State: bond.StateBonding}) {
		return
	}
	if b.Stall {
		return
	}
	if b.Drop {
		r.step(address, gen, b.Delay, abort, bond.Event{Type: bond.EventStateChanged, State: bond.StateNone, Reason: 9})
		return
	}

	final := bond.StateBonded
	if b.Passkey != 0 {
		answer := make(chan bool, 1)
		r.mu.Lock()
		if r.gens[address] == gen {
			r.pending[address] = answer
		}
		r.mu.Unlock()

		if !r.step(address, gen, b.Delay, abort, bond.Event{Type: bond.EventPasskeyRequest, Passkey: b.Passkey}) {
			return
		}
		select {
		case ok := <-answer:
			if !ok {
				final = bond.StateNone
			}
		case <-abort:
			return
		}
	}

	if b.Hold != nil {
		select {
		case <-b.Hold:
		case <-abort:
			return
		}
	}
	r.step(address, gen, b.Delay, abort, bond.Event{Type: bond.EventStateChanged, State: final})
}

// step sleeps delay and delivers e unless the operation was superseded.
func (r *Radio) step(address string, gen uint64, delay time.Duration, abort <-chan struct{}, e bond.Event) bool {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-abort:
			return false
		}
	}
	return r.emit(address, gen, e)
}

func (r *Radio) emit(address string, gen uint64, e bond.Event) bool {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	if r.gens[address] != gen {
		r.mu.Unlock()
		return false
	}
	e.Address = address
	if e.Type == bond.EventStateChanged {
		e.Previous = r.states[address]
		r.states[address] = e.State
	}
	subs := make([]func(bond.Event), 0, len(r.subs[address]))
	for _, fn := range r.subs[address] {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
	return true
}

func (r *Radio) RemoveBond(address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRadioClosed
	}
	r.removes[address]++
	gen := r.restart(address)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.emit(address, gen, bond.Event{Type: bond.EventStateChanged, State: bond.StateNone})
	}()
	return nil
}

func (r *Radio) ConfirmPasskey(address string, accept bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.answers[address] = append(r.answers[address], accept)
	answer, ok := r.pending[address]
	if !ok {
		return ErrNoPasskeyRequest
	}
	delete(r.pending, address)
	answer <- accept
	return nil
}

func (r *Radio) BondState(address string) bond.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[address]
}

func (r *Radio) Subscribe(address string, fn func(bond.Event)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	if r.subs[address] == nil {
		r.subs[address] = make(map[uint64]func(bond.Event))
	}
	r.subs[address][id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs[address], id)
		if len(r.subs[address]) == 0 {
			delete(r.subs, address)
		}
	}
}

// Close stops all pending bond operations and waits for their goroutines.
func (r *Radio) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for address := range r.aborts {
		r.restart(address)
	}
	r.mu.Unlock()
	r.wg.Wait()
}
