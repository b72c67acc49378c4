package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
)

const (
	addrA = "AA:BB:CC:DD:EE:01"
	addrB = "AA:BB:CC:DD:EE:02"
)

func secret(t *testing.T, fill byte, address string) fastpair.SharedSecret {
	t.Helper()
	key := make([]byte, 16)
	key[0] = 0x04
	for i := 1; i < len(key); i++ {
		key[i] = fill
	}
	s, err := fastpair.NewSharedSecret(key, address)
	if err != nil {
		t.Fatalf("NewSharedSecret() error = %v", err)
	}
	return s
}

func TestHistoryStore(t *testing.T) {
	t.Run("LoadNonExistent", func(t *testing.T) {
		store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil for non-existent file", got)
		}
		if items := got.Items(); items != nil {
			t.Errorf("Items() on nil history = %v, want nil", items)
		}
	})

	t.Run("RecordAndMatch", func(t *testing.T) {
		store := NewHistoryStore(filepath.Join(t.TempDir(), "nested", "history.json"))

		a := secret(t, 0xAA, addrA)
		b := secret(t, 0xBB, addrB)
		if err := store.Record(a, "Earbuds"); err != nil {
			t.Fatalf("Record(a) error = %v", err)
		}
		if err := store.Record(b, ""); err != nil {
			t.Fatalf("Record(b) error = %v", err)
		}

		h, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if h.Version != StateVersion {
			t.Errorf("Version = %d, want %d", h.Version, StateVersion)
		}
		if len(h.Entries) != 2 {
			t.Fatalf("len(Entries) = %d, want 2", len(h.Entries))
		}
		if h.Entries[0].DeviceName != "Earbuds" {
			t.Errorf("DeviceName = %q, want Earbuds", h.Entries[0].DeviceName)
		}

		key, ok := fastpair.MatchHistory(h.Items(), addrA)
		if !ok {
			t.Fatal("MatchHistory(addrA) found nothing")
		}
		if !a.Equal(mustSecret(t, key, addrA)) {
			t.Error("matched key differs from recorded key")
		}
	})

	t.Run("RecordReplacesSameAddress", func(t *testing.T) {
		store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))
		a := secret(t, 0xAA, addrA)

		if err := store.Record(a, "Old"); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if err := store.Record(a, "New"); err != nil {
			t.Fatalf("Record() error = %v", err)
		}

		h, _ := store.Load()
		if len(h.Entries) != 1 || h.Entries[0].DeviceName != "New" {
			t.Errorf("Entries = %+v, want one entry named New", h.Entries)
		}
	})

	t.Run("Forget", func(t *testing.T) {
		store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))
		_ = store.Record(secret(t, 0xAA, addrA), "")
		_ = store.Record(secret(t, 0xBB, addrB), "")

		n, err := store.Forget(addrA)
		if err != nil || n != 1 {
			t.Fatalf("Forget() = %d, %v; want 1, nil", n, err)
		}
		h, _ := store.Load()
		if _, ok := fastpair.MatchHistory(h.Items(), addrA); ok {
			t.Error("forgotten address still matches")
		}
		if _, ok := fastpair.MatchHistory(h.Items(), addrB); !ok {
			t.Error("other address lost")
		}

		if n, _ := store.Forget(addrA); n != 0 {
			t.Errorf("second Forget() = %d, want 0", n)
		}
	})

	t.Run("FilePermissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")
		store := NewHistoryStore(path)
		if err := store.Record(secret(t, 0xAA, addrA), ""); err != nil {
			t.Fatalf("Record() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("mode = %o, want 600", perm)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))
		_ = store.Record(secret(t, 0xAA, addrA), "")

		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("second Clear() error = %v", err)
		}
		if h, _ := store.Load(); h != nil {
			t.Error("history survived Clear")
		}
	})

	t.Run("CorruptFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := NewHistoryStore(path).Load(); err == nil {
			t.Error("Load() accepted a corrupt file")
		}
	})
}

func mustSecret(t *testing.T, key []byte, address string) fastpair.SharedSecret {
	t.Helper()
	s, err := fastpair.NewSharedSecret(key, address)
	if err != nil {
		t.Fatalf("NewSharedSecret() error = %v", err)
	}
	return s
}
