/*

SPDX-Copyright: Copyright (c) Capital One Services, LLC
SPDX-License-Identifier: Apache-2.0
Copyright 2017 Capital One Services, LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and limitations under the License.

*/

// Package ffx implements FFX mode A2: radix 2, alternating Feistel,
// characterwise XOR addition, AES-CBC-MAC round function. This is the
// small-to-medium-space member of the cipher family, applicable to
// message-space orders from 8 up to 128 bits.
package ffx

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/EVGStudents/FPE/intcipher"
	"github.com/EVGStudents/FPE/key"
	"github.com/EVGStudents/FPE/messagespace"
)

const (
	vers     = 1
	method   = 2
	addition = 0
	radix    = 2

	maxBitLength  = 128
	maxTweakLen   = 8
	maxCycleWalks = 1024
)

// Cipher is the FFX-A2 IntegerCipher over a fixed IntegerMessageSpace.
type Cipher struct {
	order *big.Int
	max   *big.Int
	n     int
}

// New constructs an FFX cipher over ms. ms's order must fit in 128
// bits; RankThenEncipher selects FFX automatically for orders between
// 8 and 128 bits.
func New(ms *messagespace.IntegerMessageSpace) (*Cipher, error) {
	if ms == nil {
		return nil, fmt.Errorf("ffx: message space must not be nil")
	}
	order := ms.Order()
	n := order.BitLen()
	if n > maxBitLength {
		return nil, fmt.Errorf("ffx: message space order requires %d bits, exceeding the %d-bit limit", n, maxBitLength)
	}
	if n == 0 {
		n = 1
	}
	return &Cipher{order: order, max: ms.MaxValue(), n: n}, nil
}

// Order implements intcipher.Cipher.
func (c *Cipher) Order() *big.Int { return new(big.Int).Set(c.order) }

// Encrypt implements intcipher.Cipher.
func (c *Cipher) Encrypt(plaintext *big.Int, k *key.Key, tweak []byte) (*big.Int, error) {
	return c.cycle(plaintext, k, tweak, true)
}

// Decrypt implements intcipher.Cipher.
func (c *Cipher) Decrypt(ciphertext *big.Int, k *key.Key, tweak []byte) (*big.Int, error) {
	return c.cycle(ciphertext, k, tweak, false)
}

func (c *Cipher) cycle(value *big.Int, k *key.Key, tweak []byte, encrypt bool) (*big.Int, error) {
	name := "ciphertext"
	if encrypt {
		name = "plaintext"
	}
	if err := intcipher.ValidateInput(value, c.max, name); err != nil {
		return nil, err
	}
	if k == nil {
		return nil, fmt.Errorf("ffx: key must not be nil")
	}
	if tweak == nil {
		return nil, fmt.Errorf("ffx: tweak must not be nil")
	}
	if len(tweak) > maxTweakLen {
		return nil, fmt.Errorf("ffx: tweak length %d exceeds the %d-byte limit", len(tweak), maxTweakLen)
	}

	derivedKey, err := k.Derive(16)
	if err != nil {
		return nil, fmt.Errorf("ffx: deriving AES key: %w", err)
	}
	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("ffx: %w", err)
	}
	pTilde := c.precomputeP(block, len(tweak))

	v := new(big.Int).Set(value)
	for i := 0; i < maxCycleWalks; i++ {
		if encrypt {
			v = c.feistelForward(block, pTilde, tweak, v)
		} else {
			v = c.feistelBackward(block, pTilde, tweak, v)
		}
		if v.Cmp(c.max) <= 0 {
			return v, nil
		}
	}
	return nil, fmt.Errorf("ffx: cycle-walking did not converge after %d iterations", maxCycleWalks)
}

// precomputeP builds the 16-byte FFX header block and encrypts it once
// under the derived AES key with a zero IV.
func (c *Cipher) precomputeP(block cipher.Block, tweakLen int) []byte {
	split, _, rounds := c.widths()
	p := make([]byte, aes.BlockSize)
	p[1] = vers
	p[2] = method
	p[3] = addition
	p[4] = radix
	p[5] = byte(c.n)
	p[6] = byte(split)
	p[7] = byte(rounds)
	p[15] = byte(tweakLen)

	pTilde := make([]byte, aes.BlockSize)
	block.Encrypt(pTilde, p)
	return pTilde
}

// widths returns the initial left/right bit-widths and the round
// count for this cipher's n.
func (c *Cipher) widths() (leftWidth, rightWidth, rounds int) {
	split := (c.n + 1) / 2
	return split, c.n - split, roundCount(c.n)
}

func roundCount(n int) int {
	switch {
	case n >= 32:
		return 12
	case n >= 20:
		return 18
	case n >= 14:
		return 24
	case n >= 10:
		return 30
	default:
		return 36
	}
}

// feistelForward runs one full encryption pass over the n-bit domain.
// Because an alternating Feistel round always swaps the two halves,
// the width assigned to "left" and "right" alternates round to round
// whenever n is odd; widthSchedule below tracks this without needing
// a separately documented convention.
func (c *Cipher) feistelForward(block cipher.Block, pTilde, tweak []byte, v *big.Int) *big.Int {
	leftWidth, rightWidth, rounds := c.widths()
	left, right := splitBits(v, rightWidth)

	for i := 0; i < rounds; i++ {
		f := c.roundFunction(block, pTilde, tweak, i, right, rightWidth, leftWidth)
		newLeft := right
		newRight := new(big.Int).Xor(left, f)
		left, right = newLeft, newRight
		leftWidth, rightWidth = rightWidth, leftWidth
	}
	return combineBits(left, right, rightWidth)
}

// feistelBackward inverts feistelForward.
func (c *Cipher) feistelBackward(block cipher.Block, pTilde, tweak []byte, v *big.Int) *big.Int {
	leftWidth0, rightWidth0, rounds := c.widths()

	lws := make([]int, rounds+1)
	rws := make([]int, rounds+1)
	lws[0], rws[0] = leftWidth0, rightWidth0
	for i := 0; i < rounds; i++ {
		lws[i+1] = rws[i]
		rws[i+1] = lws[i]
	}

	left, right := splitBits(v, rws[rounds])

	for i := rounds - 1; i >= 0; i-- {
		rightI := left
		f := c.roundFunction(block, pTilde, tweak, i, rightI, rws[i], lws[i])
		leftI := new(big.Int).Xor(right, f)
		left, right = leftI, rightI
	}
	return combineBits(left, right, rws[0])
}

// roundFunction implements F(i, B): build Q from the tweak, the round
// index, and B, then AES-CBC-MAC P̃⊕Q under key, chaining through a
// second block when tweakLen == 8 pushes Q to 32 bytes. The result is
// masked to outputWidth bits.
func (c *Cipher) roundFunction(block cipher.Block, pTilde, tweak []byte, round int, right *big.Int, rightWidth, outputWidth int) *big.Int {
	var q []byte
	if len(tweak) == 8 {
		q = make([]byte, 24)
		copy(q, tweak)
		q[23] = byte(round)
	} else {
		q = make([]byte, 8)
		copy(q, tweak)
		q[7] = byte(round)
	}
	bBytes := make([]byte, 8)
	rb := right.Bytes()
	copy(bBytes[8-len(rb):], rb)
	q = append(q, bBytes...)

	mac := make([]byte, aes.BlockSize)
	block.Encrypt(mac, xorBlock(pTilde, q[:16]))
	for i := 16; i < len(q); i += 16 {
		block.Encrypt(mac, xorBlock(mac, q[i:i+16]))
	}

	full := new(big.Int).SetBytes(mac)
	return full.And(full, lowBitsMask(outputWidth))
}

func xorBlock(a, b []byte) []byte {
	out := make([]byte, len(a))
	subtle.XORBytes(out, a, b)
	return out
}

func lowBitsMask(width int) *big.Int {
	mask := new(big.Int).Lsh(big.NewInt(1), uint(width))
	return mask.Sub(mask, big.NewInt(1))
}

func splitBits(v *big.Int, rightWidth int) (left, right *big.Int) {
	right = new(big.Int).And(v, lowBitsMask(rightWidth))
	left = new(big.Int).Rsh(v, uint(rightWidth))
	return left, right
}

func combineBits(left, right *big.Int, rightWidth int) *big.Int {
	result := new(big.Int).Lsh(left, uint(rightWidth))
	return result.Or(result, right)
}
