package eme2

import (
	"math/big"
	"testing"

	"github.com/EVGStudents/FPE/key"
	"github.com/EVGStudents/FPE/messagespace"
)

// TestRoundTripE3 mirrors scenario E3: a very wide message space
// (500 bytes, minus one bit), a zero key, a 37-byte tweak, and a
// 43-byte plaintext, 2^(43*8-1).
func TestRoundTripE3(t *testing.T) {
	max := new(big.Int).Lsh(big.NewInt(1), 500*8-1)
	max.Sub(max, big.NewInt(1))
	ms, err := messagespace.NewIntegerMessageSpace(max)
	if err != nil {
		t.Fatalf("NewIntegerMessageSpace: %s", err)
	}
	c, err := New(ms)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	k, err := key.New(make([]byte, 48))
	if err != nil {
		t.Fatalf("key.New: %s", err)
	}
	tweak := make([]byte, 37)
	for i := range tweak {
		tweak[i] = byte(i)
	}

	p := new(big.Int).Lsh(big.NewInt(1), 43*8-1)
	ct, err := c.Encrypt(p, k, tweak)
	if err != nil {
		t.Fatalf("Encrypt: %s", err)
	}
	got, err := c.Decrypt(ct, k, tweak)
	if err != nil {
		t.Fatalf("Decrypt: %s", err)
	}
	if got.Cmp(p) != 0 {
		t.Fatalf("Decrypt(Encrypt(p)) = %s, want %s", got, p)
	}
}

// TestRoundTripAcrossRefreshBoundary forces a message space wide
// enough to need more than 128 sixteen-byte blocks, exercising the
// mixing step's mask-chain refresh.
func TestRoundTripAcrossRefreshBoundary(t *testing.T) {
	const blocks = 140 // > refreshInterval (128)
	max := new(big.Int).Lsh(big.NewInt(1), blocks*blockSize*8-1)
	max.Sub(max, big.NewInt(1))
	ms, err := messagespace.NewIntegerMessageSpace(max)
	if err != nil {
		t.Fatalf("NewIntegerMessageSpace: %s", err)
	}
	c, err := New(ms)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	k, err := key.New([]byte("refresh-boundary-key-material!!"))
	if err != nil {
		t.Fatalf("key.New: %s", err)
	}
	tweak := []byte("a tweak that exercises the refresh path")

	samples := []*big.Int{
		big.NewInt(0),
		new(big.Int).Lsh(big.NewInt(1), 129*blockSize*8-1),
		new(big.Int).Lsh(big.NewInt(1), 12),
	}
	for _, p := range samples {
		ct, err := c.Encrypt(p, k, tweak)
		if err != nil {
			t.Fatalf("Encrypt(%s): %s", p, err)
		}
		if ct.Sign() < 0 || ct.Cmp(ms.MaxValue()) > 0 {
			t.Fatalf("Encrypt(%s) = %s outside message space", p, ct)
		}
		got, err := c.Decrypt(ct, k, tweak)
		if err != nil {
			t.Fatalf("Decrypt(%s): %s", p, err)
		}
		if got.Cmp(p) != 0 {
			t.Fatalf("Decrypt(Encrypt(%s)) = %s", p, got)
		}
	}
}

func TestRoundTripSmallSamples(t *testing.T) {
	max := new(big.Int).Lsh(big.NewInt(1), 200)
	ms, err := messagespace.NewIntegerMessageSpace(max)
	if err != nil {
		t.Fatalf("NewIntegerMessageSpace: %s", err)
	}
	c, err := New(ms)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	k, err := key.New([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("key.New: %s", err)
	}
	tweak := []byte("a tweak of arbitrary length")

	samples := []int64{0, 1, 2, 42, 1000000}
	for _, s := range samples {
		p := big.NewInt(s)
		ct, err := c.Encrypt(p, k, tweak)
		if err != nil {
			t.Fatalf("Encrypt(%d): %s", s, err)
		}
		if ct.Sign() < 0 || ct.Cmp(ms.MaxValue()) > 0 {
			t.Fatalf("Encrypt(%d) = %s outside message space", s, ct)
		}
		got, err := c.Decrypt(ct, k, tweak)
		if err != nil {
			t.Fatalf("Decrypt(%d): %s", s, err)
		}
		if got.Cmp(p) != 0 {
			t.Fatalf("Decrypt(Encrypt(%d)) = %s", s, got)
		}
	}
}

func TestEmptyTweakRoundTrip(t *testing.T) {
	max := new(big.Int).Lsh(big.NewInt(1), 150)
	ms, err := messagespace.NewIntegerMessageSpace(max)
	if err != nil {
		t.Fatalf("NewIntegerMessageSpace: %s", err)
	}
	c, err := New(ms)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	k, err := key.New([]byte("another-key-material"))
	if err != nil {
		t.Fatalf("key.New: %s", err)
	}

	p := big.NewInt(9999)
	ct, err := c.Encrypt(p, k, nil)
	if err == nil {
		t.Fatalf("Encrypt with a nil tweak unexpectedly succeeded")
	}
	ct, err = c.Encrypt(p, k, []byte{})
	if err != nil {
		t.Fatalf("Encrypt with an empty tweak: %s", err)
	}
	got, err := c.Decrypt(ct, k, []byte{})
	if err != nil {
		t.Fatalf("Decrypt: %s", err)
	}
	if got.Cmp(p) != 0 {
		t.Fatalf("Decrypt(Encrypt(9999)) = %s, want 9999", got)
	}
}

func TestKeyLengthSelection(t *testing.T) {
	max := new(big.Int).Lsh(big.NewInt(1), 150)
	ms, err := messagespace.NewIntegerMessageSpace(max)
	if err != nil {
		t.Fatalf("NewIntegerMessageSpace: %s", err)
	}
	c, err := NewWithKeyLength(ms, AES256)
	if err != nil {
		t.Fatalf("NewWithKeyLength: %s", err)
	}
	k, err := key.New([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("key.New: %s", err)
	}
	tweak := []byte{1, 2, 3}

	p := big.NewInt(777)
	ct, err := c.Encrypt(p, k, tweak)
	if err != nil {
		t.Fatalf("Encrypt: %s", err)
	}
	got, err := c.Decrypt(ct, k, tweak)
	if err != nil {
		t.Fatalf("Decrypt: %s", err)
	}
	if got.Cmp(p) != 0 {
		t.Fatalf("Decrypt(Encrypt(777)) = %s, want 777", got)
	}
}

func TestRejectsNarrowMessageSpace(t *testing.T) {
	ms, err := messagespace.NewIntegerMessageSpace(big.NewInt(65535))
	if err != nil {
		t.Fatalf("NewIntegerMessageSpace: %s", err)
	}
	if _, err := New(ms); err == nil {
		t.Fatalf("New unexpectedly succeeded for a narrow message space")
	}
}

func TestRejectsInvalidKeyLength(t *testing.T) {
	max := new(big.Int).Lsh(big.NewInt(1), 150)
	ms, err := messagespace.NewIntegerMessageSpace(max)
	if err != nil {
		t.Fatalf("NewIntegerMessageSpace: %s", err)
	}
	if _, err := NewWithKeyLength(ms, KeyLength(192)); err == nil {
		t.Fatalf("NewWithKeyLength unexpectedly accepted a 192-bit key length")
	}
}

func TestMultAlphaDoubling(t *testing.T) {
	// Doubling a value with a clear top byte must never trigger the
	// reduction XOR.
	in := make([]byte, 16)
	in[15] = 0x01
	out := multAlpha(in)
	want := make([]byte, 16)
	want[15] = 0x02
	for i := range out {
		if out[i] != want[i] {
			t.Fatalf("multAlpha(%v) = %v, want %v", in, out, want)
		}
	}

	// A set top bit in byte 15 must fold 0x87 into byte 0.
	in2 := make([]byte, 16)
	in2[15] = 0x80
	out2 := multAlpha(in2)
	if out2[0] != 0x87 {
		t.Fatalf("multAlpha(%v)[0] = %#x, want 0x87", in2, out2[0])
	}
	for i := 1; i < 16; i++ {
		if out2[i] != 0 {
			t.Fatalf("multAlpha(%v)[%d] = %#x, want 0", in2, i, out2[i])
		}
	}
}
