package memzero

import "testing"

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("b[%d] = %d, want 0", i, v)
		}
	}

	// Empty and nil slices are no-ops.
	Zero(nil)
	Zero([]byte{})
}

func TestZeroAll(t *testing.T) {
	a := []byte{0xff, 0xff}
	b := []byte{0x01}
	ZeroAll(a, nil, b)

	if a[0] != 0 || a[1] != 0 || b[0] != 0 {
		t.Errorf("ZeroAll left data behind: a=%v b=%v", a, b)
	}
}
