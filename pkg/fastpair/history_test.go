package fastpair_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
)

func TestHistoryMatching(t *testing.T) {
	item, err := fastpair.NewHistoryItem(testAccountKey(), publicAddr)
	require.NoError(t, err)

	assert.True(t, item.Matches(publicAddr))
	assert.True(t, item.Matches("aa:bb:cc:dd:ee:01"), "matching ignores case")
	assert.False(t, item.Matches("AA:BB:CC:DD:EE:02"))
	assert.False(t, item.Matches("garbage"))

	other, err := fastpair.NewHistoryItem(append([]byte{0x04}, make([]byte, 15)...), "AA:BB:CC:DD:EE:02")
	require.NoError(t, err)

	key, ok := fastpair.MatchHistory([]fastpair.HistoryItem{other, item}, publicAddr)
	require.True(t, ok)
	assert.Equal(t, testAccountKey(), key)

	_, ok = fastpair.MatchHistory([]fastpair.HistoryItem{other}, publicAddr)
	assert.False(t, ok)
}

func TestNewHistoryItemValidation(t *testing.T) {
	_, err := fastpair.NewHistoryItem(make([]byte, 32), publicAddr)
	assert.Error(t, err)

	_, err = fastpair.NewHistoryItem(testAccountKey(), "nope")
	assert.Error(t, err)
}
