package persistence

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
)

// StateVersion is the current version of the history file format.
const StateVersion = 1

// History is the persisted pairing history of a seeker.
type History struct {
	// Version is the file format version.
	Version int `json:"version"`

	// SavedAt is when the history was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Entries lists the account keys, most recent last.
	Entries []HistoryEntry `json:"entries,omitempty"`
}

// HistoryEntry is one account key and the hashed address it was shared with.
type HistoryEntry struct {
	// AccountKey is the 16-byte account key.
	AccountKey []byte `json:"account_key"`

	// AddressHash is SHA-256(AccountKey || address bytes).
	AddressHash []byte `json:"address_hash"`

	// DeviceName is the name last given to the accessory.
	DeviceName string `json:"device_name,omitempty"`

	// PairedAt is when the key was recorded.
	PairedAt time.Time `json:"paired_at"`
}

// Items converts the entries for fastpair.Connection.SetHistory. Entries
// with a malformed hash are skipped.
func (h *History) Items() []fastpair.HistoryItem {
	if h == nil {
		return nil
	}
	items := make([]fastpair.HistoryItem, 0, len(h.Entries))
	for _, e := range h.Entries {
		if len(e.AddressHash) != sha256.Size {
			continue
		}
		item := fastpair.HistoryItem{AccountKey: append([]byte(nil), e.AccountKey...)}
		copy(item.AddressHash[:], e.AddressHash)
		items = append(items, item)
	}
	return items
}

// HistoryStore manages the history file.
type HistoryStore struct {
	mu   sync.Mutex
	path string
}

// NewHistoryStore creates a store for the file at path.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{path: path}
}

// Path returns the history file path.
func (s *HistoryStore) Path() string {
	return s.path
}

// Save persists the history to disk.
func (s *HistoryStore) Save(h *History) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(h)
}

func (s *HistoryStore) save(h *History) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	h.Version = StateVersion
	h.SavedAt = time.Now()

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}

	// Account keys are secrets; keep the file private.
	return os.WriteFile(s.path, data, 0o600)
}

// Load reads the history from disk.
// Returns nil, nil if the file doesn't exist (empty history).
func (s *HistoryStore) Load() (*History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *HistoryStore) load() (*History, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	h := &History{}
	if err := json.Unmarshal(data, h); err != nil {
		return nil, err
	}
	if h.Version > StateVersion {
		return nil, fmt.Errorf("history file version %d is newer than supported %d", h.Version, StateVersion)
	}
	return h, nil
}

// Record adds the secret of a successful pairing. An existing entry for the
// same key and address is replaced.
func (s *HistoryStore) Record(secret fastpair.SharedSecret, deviceName string) error {
	item, err := fastpair.NewHistoryItem(secret.Key(), secret.Address())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.load()
	if err != nil {
		return err
	}
	if h == nil {
		h = &History{}
	}

	entry := HistoryEntry{
		AccountKey:  item.AccountKey,
		AddressHash: item.AddressHash[:],
		DeviceName:  deviceName,
		PairedAt:    time.Now(),
	}
	kept := h.Entries[:0]
	for _, e := range h.Entries {
		if !bytes.Equal(e.AddressHash, entry.AddressHash) {
			kept = append(kept, e)
		}
	}
	h.Entries = append(kept, entry)
	return s.save(h)
}

// Forget removes every entry recorded for address.
func (s *HistoryStore) Forget(address string) (removed int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.load()
	if err != nil || h == nil {
		return 0, err
	}

	kept := h.Entries[:0]
	for _, e := range h.Entries {
		if len(e.AddressHash) == sha256.Size {
			item := fastpair.HistoryItem{AccountKey: e.AccountKey}
			copy(item.AddressHash[:], e.AddressHash)
			if item.Matches(address) {
				removed++
				continue
			}
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0, nil
	}
	h.Entries = kept
	return removed, s.save(h)
}

// Clear removes the history file.
func (s *HistoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
