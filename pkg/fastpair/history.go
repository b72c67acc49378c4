package fastpair

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/fastpair-protocol/fastpair-go/pkg/keyexchange"
)

// HistoryItem records an account key already shared with some accessory of
// the user's account. The accessory address is only kept hashed.
type HistoryItem struct {
	AccountKey  []byte
	AddressHash [sha256.Size]byte
}

// NewHistoryItem builds the item for accountKey paired with address.
func NewHistoryItem(accountKey []byte, address string) (HistoryItem, error) {
	if len(accountKey) != keyexchange.AccountKeySize {
		return HistoryItem{}, fmt.Errorf("account key must be %d bytes, got %d", keyexchange.AccountKeySize, len(accountKey))
	}
	addr, err := keyexchange.ParseAddress(address)
	if err != nil {
		return HistoryItem{}, err
	}
	return HistoryItem{
		AccountKey:  append([]byte(nil), accountKey...),
		AddressHash: addressHash(accountKey, addr),
	}, nil
}

// Matches reports whether the item was recorded for address.
func (h HistoryItem) Matches(address string) bool {
	addr, err := keyexchange.ParseAddress(address)
	if err != nil || len(h.AccountKey) != keyexchange.AccountKeySize {
		return false
	}
	want := addressHash(h.AccountKey, addr)
	return subtle.ConstantTimeCompare(want[:], h.AddressHash[:]) == 1
}

// MatchHistory returns a copy of the first account key recorded for address.
func MatchHistory(items []HistoryItem, address string) ([]byte, bool) {
	for _, item := range items {
		if item.Matches(address) {
			return append([]byte(nil), item.AccountKey...), true
		}
	}
	return nil, false
}

func addressHash(accountKey []byte, addr keyexchange.Address) [sha256.Size]byte {
	buf := make([]byte, 0, len(accountKey)+len(addr))
	buf = append(buf, accountKey...)
	buf = append(buf, addr[:]...)
	return sha256.Sum256(buf)
}
