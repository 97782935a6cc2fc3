package key

import (
	"bytes"
	"fmt"
	"testing"
)

func TestDeriveSameLengthReturnsOriginal(t *testing.T) {
	orig := []byte{0x00, 0x01, 0x02, 0x03}
	k, err := New(orig)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	d, err := k.Derive(len(orig))
	if err != nil {
		t.Fatalf("Derive: %s", err)
	}
	if !bytes.Equal(d, orig) {
		t.Fatalf("Derive(same length) = %x, want %x", d, orig)
	}
}

func TestDeriveDeterministic(t *testing.T) {
	k, err := New([]byte("some base key material"))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	a, err := k.Derive(32)
	if err != nil {
		t.Fatalf("Derive: %s", err)
	}
	b, err := k.Derive(32)
	if err != nil {
		t.Fatalf("Derive: %s", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("Derive not deterministic: %x != %x", a, b)
	}
}

func TestDeriveDistinctLengths(t *testing.T) {
	tests := []struct {
		length int
	}{
		{16},
		{24},
		{32},
		{48},
		{64},
	}
	k, err := New([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	seen := make(map[string]int)
	for idx, spec := range tests {
		t.Run(fmt.Sprintf("Sample%d", idx+1), func(t *testing.T) {
			d, err := k.Derive(spec.length)
			if err != nil {
				t.Fatalf("Derive(%d): %s", spec.length, err)
			}
			if len(d) != spec.length {
				t.Fatalf("Derive(%d) returned %d bytes", spec.length, len(d))
			}
			if prev, ok := seen[string(d)]; ok {
				t.Fatalf("Derive(%d) collided with derivation for length %d", spec.length, prev)
			}
			seen[string(d)] = spec.length
		})
	}
}

func TestNewRejectsNil(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("New(nil) unexpectedly succeeded")
	}
}

func TestNewAllowsEmpty(t *testing.T) {
	k, err := New([]byte{})
	if err != nil {
		t.Fatalf("New(empty): %s", err)
	}
	d, err := k.Derive(0)
	if err != nil {
		t.Fatalf("Derive(0): %s", err)
	}
	if len(d) != 0 {
		t.Fatalf("Derive(0) returned %d bytes", len(d))
	}
}

func TestIsKeyLengthAllowed(t *testing.T) {
	tests := []struct {
		length int
		want   bool
	}{
		{16, true},
		{24, true},
		{32, true},
		{8, false},
		{20, false},
	}
	for idx, spec := range tests {
		t.Run(fmt.Sprintf("Sample%d", idx+1), func(t *testing.T) {
			if got := IsKeyLengthAllowed(spec.length); got != spec.want {
				t.Fatalf("IsKeyLengthAllowed(%d) = %v, want %v", spec.length, got, spec.want)
			}
		})
	}
}
