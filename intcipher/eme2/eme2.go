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

// Package eme2 implements an ECB-mix-ECB wide-block integer cipher in
// the style of Halevi's EME2: a tweak is digested into a single block
// via a doubling mask chain in GF(2^128), the plaintext's AES blocks
// are masked and encrypted once, mixed together with the tweak digest,
// and masked and encrypted a second time. This is the wide-space
// member of the cipher family, applicable to message-space orders
// wider than 128 bits that FFX cannot address directly.
package eme2

import (
	"crypto/aes"
	"fmt"
	"math/big"

	"github.com/EVGStudents/FPE/intcipher"
	"github.com/EVGStudents/FPE/key"
	"github.com/EVGStudents/FPE/messagespace"
)

const (
	blockSize = 16

	// minWidth is the smallest number of bits EME2 is intended to
	// address; RankThenEncipher hands off anything narrower to FFX.
	minWidth = 129

	maxCycleWalks = 1024
)

// KeyLength selects the AES variant used for the AES_K layers: 128 or
// 256, matching the byte-key and Key-object EME2 variants distinguished
// in the source this package is adapted from.
type KeyLength int

const (
	AES128 KeyLength = 128
	AES256 KeyLength = 256
)

func (kl KeyLength) derivedKeyBytes() int {
	if kl == AES256 {
		return 32
	}
	return 16
}

// Cipher is the EME2 IntegerCipher over a fixed IntegerMessageSpace.
type Cipher struct {
	order     *big.Int
	max       *big.Int
	blockLen  int // L', a multiple of blockSize
	keyLength KeyLength
}

// New constructs an EME2 cipher over ms using AES-128 internally. ms's
// order must require more than 128 bits to represent; RankThenEncipher
// selects EME2 automatically in that regime.
func New(ms *messagespace.IntegerMessageSpace) (*Cipher, error) {
	return NewWithKeyLength(ms, AES128)
}

// NewWithKeyLength is New with an explicit choice of internal AES
// variant.
func NewWithKeyLength(ms *messagespace.IntegerMessageSpace, keyLength KeyLength) (*Cipher, error) {
	if ms == nil {
		return nil, fmt.Errorf("eme2: message space must not be nil")
	}
	if keyLength != AES128 && keyLength != AES256 {
		return nil, fmt.Errorf("eme2: key length must be 128 or 256 bits, got %d", keyLength)
	}
	order := ms.Order()
	n := order.BitLen()
	if n < minWidth {
		return nil, fmt.Errorf("eme2: message space order requires only %d bits; use ffx or knuth below %d bits", n, minWidth)
	}
	byteLen := (n + 7) / 8
	blockLen := blockSize * ((byteLen + blockSize - 1) / blockSize)
	return &Cipher{order: order, max: ms.MaxValue(), blockLen: blockLen, keyLength: keyLength}, nil
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
		return nil, fmt.Errorf("eme2: key must not be nil")
	}
	if tweak == nil {
		return nil, fmt.Errorf("eme2: tweak must not be nil")
	}

	k2, k3, aesKey, err := c.deriveSubkeys(k)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("eme2: %w", err)
	}
	tStar := tweakDigest(block, k3, tweak)

	v := new(big.Int).Set(value)
	for i := 0; i < maxCycleWalks; i++ {
		buf := make([]byte, c.blockLen)
		v.FillBytes(buf)

		var out []byte
		if encrypt {
			out = transform(block, k2, tStar, buf, true)
		} else {
			out = transform(block, k2, tStar, buf, false)
		}
		v = new(big.Int).SetBytes(out)
		if v.Cmp(c.max) <= 0 {
			return v, nil
		}
	}
	return nil, fmt.Errorf("eme2: cycle-walking did not converge after %d iterations", maxCycleWalks)
}

// deriveSubkeys splits the key-derived byte string into the two
// GF(2^128) mask seeds K2, K3 and the AES_K key used for every block
// cipher call.
func (c *Cipher) deriveSubkeys(k *key.Key) (k2, k3, aesKey []byte, err error) {
	aesLen := c.keyLength.derivedKeyBytes()
	total := 2*blockSize + aesLen
	material, err := k.Derive(total)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("eme2: deriving subkeys: %w", err)
	}
	return material[0:16], material[16:32], material[32:], nil
}

// tweakDigest computes T*, the single-block tweak digest folded into
// the mixing step of every transform call.
func tweakDigest(block cipher128, k3 []byte, tweak []byte) []byte {
	if len(tweak) == 0 {
		return encryptBlock(block, k3)
	}

	blocks := splitPadded(tweak)
	mask := multAlpha(k3)
	digest := make([]byte, blockSize)
	for _, t := range blocks {
		e := xorBytes(encryptBlock(block, xorBytes(t, mask)), mask)
		digest = xorBytes(digest, e)
		mask = multAlpha(mask)
	}
	return digest
}

// splitPadded splits b into 16-byte blocks, padding the final block
// with an 0x80 byte followed by zeros if it is shorter than 16 bytes.
func splitPadded(b []byte) [][]byte {
	var blocks [][]byte
	for i := 0; i < len(b); i += blockSize {
		end := i + blockSize
		if end > len(b) {
			end = len(b)
		}
		chunk := make([]byte, blockSize)
		copy(chunk, b[i:end])
		if end-i < blockSize {
			chunk[end-i] = 0x80
		}
		blocks = append(blocks, chunk)
	}
	return blocks
}

// cipher128 is the subset of crypto/cipher.Block this package needs;
// defined locally so transform and tweakDigest stay agnostic to which
// direction (Encrypt/Decrypt) the caller means by "the block cipher".
type cipher128 interface {
	Encrypt(dst, src []byte)
	Decrypt(dst, src []byte)
}

func encryptBlock(block cipher128, src []byte) []byte {
	dst := make([]byte, blockSize)
	block.Encrypt(dst, src)
	return dst
}

func decryptBlock(block cipher128, src []byte) []byte {
	dst := make([]byte, blockSize)
	block.Decrypt(dst, src)
	return dst
}

// transform runs the full-width ECB-mask-ECB-mix-ECB-mask-ECB pass in
// either direction over a blockLen-byte buffer that is always an exact
// multiple of 16 bytes. encrypt selects direction; the mask chain and
// mixing formulas are mirror images of each other by construction.
func transform(block cipher128, k2, tStar, data []byte, encrypt bool) []byte {
	m := len(data) / blockSize
	masks := maskChain(k2, m)

	blocksIn := make([][]byte, m)
	for i := 0; i < m; i++ {
		blocksIn[i] = data[i*blockSize : (i+1)*blockSize]
	}

	if encrypt {
		return encryptPass(block, masks, tStar, blocksIn)
	}
	return decryptPass(block, masks, tStar, blocksIn)
}

func maskChain(k2 []byte, m int) [][]byte {
	masks := make([][]byte, m)
	cur := k2
	for i := 0; i < m; i++ {
		masks[i] = cur
		cur = multAlpha(cur)
	}
	return masks
}

// refreshInterval is the mask-chain refresh period from spec §4.6's
// mixing step: every 128th block re-seeds the running mix mask by
// running it back through AES instead of just doubling it again, so a
// single mult_α chain is never pushed through more than 128 doublings.
const refreshInterval = 128

func encryptPass(block cipher128, masks [][]byte, tStar []byte, p [][]byte) []byte {
	m := len(p)
	ppp := make([][]byte, m)
	for i := 0; i < m; i++ {
		ppp[i] = encryptBlock(block, xorBytes(p[i], masks[i]))
	}

	mp := append([]byte{}, tStar...)
	for i := 0; i < m; i++ {
		mp = xorBytes(mp, ppp[i])
	}
	mc := encryptBlock(block, mp)
	m1 := xorBytes(mp, mc)
	mMask := append([]byte{}, m1...)

	ccc := make([][]byte, m)
	rest := make([]byte, blockSize)
	for i := 1; i < m; i++ {
		if i%refreshInterval != 0 {
			mMask = multAlpha(mMask)
			ccc[i] = xorBytes(ppp[i], mMask)
		} else {
			mpPrime := xorBytes(ppp[i], m1)
			mcPrime := encryptBlock(block, mpPrime)
			mMask = xorBytes(mpPrime, mcPrime)
			ccc[i] = xorBytes(mcPrime, m1)
		}
		rest = xorBytes(rest, ccc[i])
	}
	ccc[0] = xorBytes(mc, xorBytes(tStar, rest))

	out := make([]byte, m*blockSize)
	for i := 0; i < m; i++ {
		c := xorBytes(encryptBlock(block, ccc[i]), masks[i])
		copy(out[i*blockSize:], c)
	}
	return out
}

func decryptPass(block cipher128, masks [][]byte, tStar []byte, c [][]byte) []byte {
	m := len(c)
	// The forward direction's second ECB layer masks only after
	// encrypting (C_i = AES(CCC_i) xor M_i), so recovering CCC_i takes
	// a single pre-mask before decrypting; the last loop below likewise
	// undoes the forward first layer's single pre-mask with a post-mask.
	ccc := make([][]byte, m)
	for i := 0; i < m; i++ {
		ccc[i] = decryptBlock(block, xorBytes(c[i], masks[i]))
	}

	sumCCC := make([]byte, blockSize)
	for i := 0; i < m; i++ {
		sumCCC = xorBytes(sumCCC, ccc[i])
	}
	mc := xorBytes(sumCCC, tStar)
	mp := decryptBlock(block, mc)
	m1 := xorBytes(mp, mc)
	mMask := append([]byte{}, m1...)

	ppp := make([][]byte, m)
	rest := make([]byte, blockSize)
	for i := 1; i < m; i++ {
		if i%refreshInterval != 0 {
			mMask = multAlpha(mMask)
			ppp[i] = xorBytes(ccc[i], mMask)
		} else {
			mcPrime := xorBytes(ccc[i], m1)
			mpPrime := decryptBlock(block, mcPrime)
			ppp[i] = xorBytes(mpPrime, m1)
			mMask = xorBytes(mpPrime, mcPrime)
		}
		rest = xorBytes(rest, ppp[i])
	}
	ppp[0] = xorBytes(mp, xorBytes(tStar, rest))

	out := make([]byte, m*blockSize)
	for i := 0; i < m; i++ {
		p := xorBytes(decryptBlock(block, ppp[i]), masks[i])
		copy(out[i*blockSize:], p)
	}
	return out
}

// multAlpha doubles b in GF(2^128) using the non-GCM convention where
// byte 0 is the low end of the value and byte 15 is the high end: the
// shift runs from byte 0 toward byte 15, and overflow out of byte 15
// folds back into byte 0 via the reduction polynomial 0x87.
func multAlpha(b []byte) []byte {
	out := make([]byte, blockSize)
	var carry byte
	for i := 0; i < blockSize; i++ {
		cur := b[i]
		out[i] = (cur << 1) | carry
		carry = (cur >> 7) & 1
	}
	if carry == 1 {
		out[0] ^= 0x87
	}
	return out
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
