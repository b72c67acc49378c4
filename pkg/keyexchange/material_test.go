package keyexchange

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseKeyMaterialClassifiesByLength(t *testing.T) {
	tests := []struct {
		name string
		len  int
		want MaterialKind
	}{
		{"account key", 16, KindAccountKey},
		{"x25519", 32, KindPublicKey},
		{"p256 raw", 64, KindPublicKey},
		{"p256 uncompressed", 65, KindPublicKey},
		{"odd length", 20, KindPublicKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseKeyMaterial(make([]byte, tt.len))
			if err != nil {
				t.Fatalf("ParseKeyMaterial() error = %v", err)
			}
			if m.Kind() != tt.want {
				t.Errorf("Kind() = %v, want %v", m.Kind(), tt.want)
			}
			if m.IsAccountKey() != (tt.want == KindAccountKey) {
				t.Errorf("IsAccountKey() = %v", m.IsAccountKey())
			}
			if m.Len() != tt.len {
				t.Errorf("Len() = %d, want %d", m.Len(), tt.len)
			}
		})
	}
}

func TestParseKeyMaterialEmpty(t *testing.T) {
	if _, err := ParseKeyMaterial(nil); !errors.Is(err, ErrEmptyKeyMaterial) {
		t.Errorf("ParseKeyMaterial(nil) error = %v, want ErrEmptyKeyMaterial", err)
	}
	var m KeyMaterial
	if !m.IsZero() {
		t.Error("zero KeyMaterial should report IsZero")
	}
}

func TestKeyMaterialCopies(t *testing.T) {
	raw := bytes.Repeat([]byte{0x04}, AccountKeySize)
	m, err := AccountKey(raw)
	if err != nil {
		t.Fatalf("AccountKey() error = %v", err)
	}

	raw[0] = 0xFF
	if m.Bytes()[0] != 0x04 {
		t.Error("KeyMaterial aliases the caller's slice")
	}
	b := m.Bytes()
	b[1] = 0xFF
	if m.Bytes()[1] != 0x04 {
		t.Error("Bytes() exposes internal storage")
	}

	if _, err := AccountKey(make([]byte, 32)); err == nil {
		t.Error("AccountKey() accepted a 32-byte key")
	}
}
