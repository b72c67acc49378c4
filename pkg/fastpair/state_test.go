package fastpair_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
)

func TestStateTerminal(t *testing.T) {
	terminal := map[fastpair.State]bool{
		fastpair.StateIdle:                        false,
		fastpair.StateResolvingAddress:            false,
		fastpair.StateCreatingBond:                false,
		fastpair.StateExchangingKey:               false,
		fastpair.StateAwaitingPasskeyConfirmation: false,
		fastpair.StatePaired:                      true,
		fastpair.StateFailed:                      true,
		fastpair.StateUnpairing:                   false,
		fastpair.StateUnpaired:                    true,
	}

	for s, want := range terminal {
		assert.Equal(t, want, s.Terminal(), s.String())
	}
	assert.Equal(t, "AWAITING_PASSKEY_CONFIRMATION", fastpair.StateAwaitingPasskeyConfirmation.String())
}
