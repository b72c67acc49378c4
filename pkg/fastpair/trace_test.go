package fastpair_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastpair-protocol/fastpair-go/internal/sim"
	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
	plog "github.com/fastpair-protocol/fastpair-go/pkg/log"
)

func TestProtocolLogRecordsSession(t *testing.T) {
	f := newFixture(t, sim.WithAccountKey(testAccountKey()))
	conn := f.connect(t, nil)

	_, err := conn.PairWithKey(context.Background(), testAccountKey())
	require.NoError(t, err)

	events := f.events.all()
	require.NotEmpty(t, events)

	var states []string
	var messages []plog.MessageEvent
	sessionID := events[0].SessionID
	for _, e := range events {
		assert.Equal(t, sessionID, e.SessionID, "one session per pair call")
		assert.Equal(t, plog.OperationPair, e.Operation)
		if e.StateChange != nil {
			states = append(states, e.StateChange.NewState)
		}
		if e.Message != nil {
			messages = append(messages, *e.Message)
		}
	}

	assert.Equal(t, []string{"RESOLVING_ADDRESS", "CREATING_BOND", "EXCHANGING_KEY", "PAIRED"}, states)
	assert.Contains(t, messages, plog.MessageEvent{Type: plog.MessageKeyBasedPairing, Size: keyexchange.BlockSize})
}

func TestProtocolLogRecordsFailure(t *testing.T) {
	f := newFixture(t)
	conn := f.connect(t, nil)

	_, err := conn.PairWithKey(context.Background(), testAccountKey())
	require.Error(t, err)

	var failures []*plog.ErrorEventData
	for _, e := range f.events.all() {
		if e.Error != nil {
			failures = append(failures, e.Error)
		}
	}
	require.Len(t, failures, 1)
	assert.Equal(t, plog.LayerExchange, failures[0].Layer)
	assert.Equal(t, fastpair.KindCryptoVerification.String(), failures[0].Kind)
}

func TestProtocolLogNeverContainsKeys(t *testing.T) {
	f := newFixture(t, sim.WithAntiSpoofingKey(keyexchange.FormatX25519))

	var buf bytes.Buffer
	enc := plog.NewEncoder(&buf)
	f.cfg.ProtocolLogger = loggerFunc(func(e plog.Event) {
		require.NoError(t, enc.Encode(e))
	})
	conn := f.connect(t, nil)

	secret, err := conn.PairWithKey(context.Background(), f.provider.AntiSpoofingPublicKey())
	require.NoError(t, err)

	assert.NotZero(t, buf.Len())
	assert.False(t, bytes.Contains(buf.Bytes(), secret.Key()), "account key found in protocol log")
	assert.False(t, bytes.Contains(buf.Bytes(), f.provider.AntiSpoofingPublicKey()), "public key found in protocol log")
}

type loggerFunc func(plog.Event)

func (f loggerFunc) Log(e plog.Event) { f(e) }
