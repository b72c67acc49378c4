package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastpair-protocol/fastpair-go/pkg/bond"
	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
)

const (
	publicAddr = "AA:BB:CC:DD:EE:01"
	randomAddr = "5A:00:00:00:00:01"
)

func TestProviderAcceptsAgreedKey(t *testing.T) {
	p, err := NewProvider(publicAddr, WithAntiSpoofingKey(keyexchange.FormatX25519))
	require.NoError(t, err)

	material, err := keyexchange.ParseKeyMaterial(p.AntiSpoofingPublicKey())
	require.NoError(t, err)

	sess, err := keyexchange.NewEngine().Handshake(context.Background(), p.Link(), material, publicAddr)
	require.NoError(t, err)
	defer sess.Close()

	assert.True(t, sess.Asymmetric())
	assert.Equal(t, 1, p.Handshakes())
	assert.Equal(t, 1, p.Agreements())

	key, err := sess.IssueAccountKey(context.Background())
	require.NoError(t, err)
	require.Len(t, p.AccountKeys(), 1)
	assert.Equal(t, key, p.AccountKeys()[0])
}

func TestProviderRejectsUnknownAccountKey(t *testing.T) {
	p, err := NewProvider(publicAddr)
	require.NoError(t, err)

	key := make([]byte, keyexchange.AccountKeySize)
	key[0] = keyexchange.AccountKeyPrefix
	material, err := keyexchange.AccountKey(key)
	require.NoError(t, err)

	_, err = keyexchange.NewEngine().Handshake(context.Background(), p.Link(), material, publicAddr)
	assert.ErrorIs(t, err, keyexchange.ErrConfirmationFailed)
	assert.Zero(t, p.Handshakes())
}

func TestProviderStoresDeviceName(t *testing.T) {
	key := []byte{0x04, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	p, err := NewProvider(publicAddr, WithAccountKey(key))
	require.NoError(t, err)

	material, err := keyexchange.AccountKey(key)
	require.NoError(t, err)
	sess, err := keyexchange.NewEngine().Handshake(context.Background(), p.Link(), material, publicAddr)
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.WriteAdditionalData(context.Background(), []byte("Kitchen Buds")))
	assert.Equal(t, "Kitchen Buds", p.DeviceName())
}

func TestRadioBondsAsynchronously(t *testing.T) {
	r := NewRadio()
	defer r.Close()

	b := bond.Open(r, publicAddr)
	defer b.Close()

	require.NoError(t, r.CreateBond(publicAddr))

	e, err := b.Wait(context.Background(), time.Second, bond.InState(bond.StateBonding))
	require.NoError(t, err)
	assert.Equal(t, bond.StateNone, e.Previous)

	_, err = b.Wait(context.Background(), time.Second, bond.InState(bond.StateBonded))
	require.NoError(t, err)
	assert.Equal(t, bond.StateBonded, r.BondState(publicAddr))
	assert.Equal(t, 1, r.CreateBonds(publicAddr))
}

func TestRadioPasskeyRejection(t *testing.T) {
	r := NewRadio()
	defer r.Close()
	r.SetBehavior(publicAddr, Behavior{Passkey: 123456})

	b := bond.Open(r, publicAddr)
	defer b.Close()

	require.NoError(t, r.CreateBond(publicAddr))
	e, err := b.Wait(context.Background(), time.Second, bond.PasskeyRequested)
	require.NoError(t, err)
	assert.Equal(t, uint32(123456), e.Passkey)

	require.NoError(t, r.ConfirmPasskey(publicAddr, false))
	_, err = b.Wait(context.Background(), time.Second, bond.InState(bond.StateNone))
	require.NoError(t, err)

	assert.ErrorIs(t, r.ConfirmPasskey(publicAddr, true), ErrNoPasskeyRequest)
	assert.Equal(t, []bool{false, true}, r.PasskeyAnswers(publicAddr))
}

func TestRadioRemoveBondAbortsBonding(t *testing.T) {
	r := NewRadio()
	defer r.Close()
	hold := make(chan struct{})
	r.SetBehavior(publicAddr, Behavior{Hold: hold})

	b := bond.Open(r, publicAddr)
	defer b.Close()

	require.NoError(t, r.CreateBond(publicAddr))
	_, err := b.Wait(context.Background(), time.Second, bond.InState(bond.StateBonding))
	require.NoError(t, err)

	require.NoError(t, r.RemoveBond(publicAddr))
	_, err = b.Wait(context.Background(), time.Second, bond.InState(bond.StateNone))
	require.NoError(t, err)
	close(hold)

	_, err = b.Wait(context.Background(), 50*time.Millisecond, bond.InState(bond.StateBonded))
	assert.ErrorIs(t, err, bond.ErrTimeout)
	assert.Equal(t, bond.StateNone, r.BondState(publicAddr))
}

func TestTransportDial(t *testing.T) {
	p, err := NewProvider(publicAddr)
	require.NoError(t, err)

	tr := NewTransport()
	tr.Register(randomAddr, p)
	tr.FailDials(randomAddr, 1)

	_, err = tr.Dial(context.Background(), randomAddr)
	assert.ErrorIs(t, err, ErrUnreachable)

	link, err := tr.Dial(context.Background(), randomAddr)
	require.NoError(t, err)
	assert.Equal(t, publicAddr, link.PublicAddress())
	require.NoError(t, link.Close())

	tr.SetServiceUnavailable(true)
	_, err = tr.Dial(context.Background(), randomAddr)
	assert.ErrorIs(t, err, fastpair.ErrServiceUnavailable)

	assert.Equal(t, []string{randomAddr, randomAddr, randomAddr}, tr.Dials())
}
