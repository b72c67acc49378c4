package fastpair

import (
	"context"
	"time"

	"github.com/fastpair-protocol/fastpair-go/pkg/bond"
	plog "github.com/fastpair-protocol/fastpair-go/pkg/log"
)

// tracer stamps protocol events with the session identity.
type tracer struct {
	logger    plog.Logger
	sessionID string
	op        plog.Operation
	address   string
}

func (t *tracer) emit(e plog.Event) {
	if t.logger == nil {
		return
	}
	e.Timestamp = time.Now()
	e.SessionID = t.sessionID
	e.Operation = t.op
	if e.Address == "" {
		e.Address = t.address
	}
	t.logger.Log(e)
}

func (t *tracer) state(from, to State, reason string) {
	t.emit(plog.Event{
		Layer:       plog.LayerSession,
		Category:    plog.CategoryState,
		StateChange: &plog.StateChangeEvent{OldState: from.String(), NewState: to.String(), Reason: reason},
	})
}

func (t *tracer) bondRequest(request string) {
	t.emit(plog.Event{
		Direction: plog.DirectionOut,
		Layer:     plog.LayerBond,
		Category:  plog.CategoryMessage,
		Bond:      &plog.BondEvent{Type: request},
	})
}

func (t *tracer) bondEvent(e bond.Event) {
	be := &plog.BondEvent{Type: e.Type.String(), Reason: e.Reason}
	if e.Type == bond.EventPasskeyRequest {
		be.PasskeyRequested = true
	} else {
		be.State = e.State.String()
	}
	t.emit(plog.Event{
		Direction: plog.DirectionIn,
		Layer:     plog.LayerBond,
		Category:  plog.CategoryNotification,
		Address:   e.Address,
		Bond:      be,
	})
}

func (t *tracer) message(dir plog.Direction, mt plog.MessageType, size int) {
	t.emit(plog.Event{
		Direction: dir,
		Layer:     plog.LayerExchange,
		Category:  plog.CategoryMessage,
		Message:   &plog.MessageEvent{Type: mt, Size: size},
	})
}

func (t *tracer) failure(layer plog.Layer, err *Error, during string) {
	t.emit(plog.Event{
		Layer:    layer,
		Category: plog.CategoryError,
		Error: &plog.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Kind:    err.Kind.String(),
			Context: during,
		},
	})
}

// tracedLink records handshake message sizes. Contents are never logged.
type tracedLink struct {
	Link
	t *tracer
}

func (l *tracedLink) WriteKeyBasedPairing(ctx context.Context, request []byte) ([]byte, error) {
	l.t.message(plog.DirectionOut, plog.MessageKeyBasedPairing, len(request))
	resp, err := l.Link.WriteKeyBasedPairing(ctx, request)
	if err == nil {
		l.t.message(plog.DirectionIn, plog.MessageKeyBasedPairing, len(resp))
	}
	return resp, err
}

func (l *tracedLink) WritePasskey(ctx context.Context, block []byte) ([]byte, error) {
	l.t.message(plog.DirectionOut, plog.MessagePasskey, len(block))
	resp, err := l.Link.WritePasskey(ctx, block)
	if err == nil {
		l.t.message(plog.DirectionIn, plog.MessagePasskey, len(resp))
	}
	return resp, err
}

func (l *tracedLink) WriteAccountKey(ctx context.Context, block []byte) error {
	l.t.message(plog.DirectionOut, plog.MessageAccountKey, len(block))
	return l.Link.WriteAccountKey(ctx, block)
}

func (l *tracedLink) WriteAdditionalData(ctx context.Context, data []byte) error {
	l.t.message(plog.DirectionOut, plog.MessageAdditionalData, len(data))
	return l.Link.WriteAdditionalData(ctx, data)
}
