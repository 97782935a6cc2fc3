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

// Package knuth implements the Knuth-shuffle integer cipher, the
// tiny-space member of the cipher family: a deterministic Fisher-Yates
// shuffle of the whole message space, keyed and tweaked, with the
// resulting permutation table cached for reuse.
package knuth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"fmt"
	"math/big"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/EVGStudents/FPE/intcipher"
	"github.com/EVGStudents/FPE/key"
	"github.com/EVGStudents/FPE/messagespace"
)

// tweakSalt is the fixed 16-byte salt used to derive a 16-byte tweak
// when the caller-supplied tweak is not already 16 bytes long.
var tweakSalt = []byte{0x15, 0x03, 0xA2, 0x80, 0x00, 0x7F, 0x0D, 0x2B, 0xED, 0x78, 0x14, 0x5E, 0xC2, 0x65, 0x0E, 0x5B}

const tweakPBKDFIterations = 10000

// constantBlock is the fixed 16-byte AES plaintext block encrypted to
// derive the shuffle's pseudorandom seed R.
const constantBlock = "Hello World!! :D"

// Cipher is the Knuth-shuffle IntegerCipher over a fixed
// IntegerMessageSpace. It is only appropriate for very small message
// spaces (order of bit length below 8, i.e. below 2^7); RankThenEncipher selects it automatically
// in that regime.
type Cipher struct {
	ms  *messagespace.IntegerMessageSpace
	max int64

	mu      sync.Mutex
	forward map[string][]int64
	inverse map[string][]int64
}

// New constructs a Knuth-shuffle cipher over ms. ms's maximum value
// must fit in an int64, which holds for every order RankThenEncipher
// selects this cipher for.
func New(ms *messagespace.IntegerMessageSpace) (*Cipher, error) {
	if ms == nil {
		return nil, fmt.Errorf("knuth: message space must not be nil")
	}
	if !ms.MaxValue().IsInt64() {
		return nil, fmt.Errorf("knuth: message space order is too large for the tiny-space shuffle cipher")
	}
	return &Cipher{
		ms:      ms,
		max:     ms.MaxValue().Int64(),
		forward: make(map[string][]int64),
		inverse: make(map[string][]int64),
	}, nil
}

// Order implements intcipher.Cipher.
func (c *Cipher) Order() *big.Int { return c.ms.Order() }

// Encrypt implements intcipher.Cipher.
func (c *Cipher) Encrypt(plaintext *big.Int, k *key.Key, tweak []byte) (*big.Int, error) {
	if err := intcipher.ValidateInput(plaintext, c.ms.MaxValue(), "plaintext"); err != nil {
		return nil, err
	}
	fwd, _, err := c.permutations(k, tweak)
	if err != nil {
		return nil, err
	}
	return big.NewInt(fwd[plaintext.Int64()]), nil
}

// Decrypt implements intcipher.Cipher.
func (c *Cipher) Decrypt(ciphertext *big.Int, k *key.Key, tweak []byte) (*big.Int, error) {
	if err := intcipher.ValidateInput(ciphertext, c.ms.MaxValue(), "ciphertext"); err != nil {
		return nil, err
	}
	_, inv, err := c.permutations(k, tweak)
	if err != nil {
		return nil, err
	}
	return big.NewInt(inv[ciphertext.Int64()]), nil
}

// DropPermutationTables clears both the plaintext-to-ciphertext and
// ciphertext-to-plaintext permutation caches.
func (c *Cipher) DropPermutationTables() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forward = make(map[string][]int64)
	c.inverse = make(map[string][]int64)
}

func (c *Cipher) permutations(k *key.Key, tweak []byte) ([]int64, []int64, error) {
	if k == nil {
		return nil, nil, fmt.Errorf("knuth: key must not be nil")
	}
	if tweak == nil {
		return nil, nil, fmt.Errorf("knuth: tweak must not be nil")
	}

	derivedKey, err := k.Derive(16)
	if err != nil {
		return nil, nil, fmt.Errorf("knuth: deriving AES key: %w", err)
	}
	derivedTweak := tweak
	if len(tweak) != 16 {
		derivedTweak = pbkdf2.Key(tweak, tweakSalt, tweakPBKDFIterations, 16, sha1.New)
	}

	// Cache keyed on byte content, not slice identity: two callers
	// passing equal-but-distinct key/tweak byte slices must share one
	// permutation table.
	cacheKey := string(derivedKey) + "\x00" + string(derivedTweak)

	c.mu.Lock()
	defer c.mu.Unlock()

	if fwd, ok := c.forward[cacheKey]; ok {
		return fwd, c.inverse[cacheKey], nil
	}

	fwd, err := c.buildPermutation(derivedKey, derivedTweak)
	if err != nil {
		return nil, nil, err
	}
	inv := make([]int64, len(fwd))
	for i, v := range fwd {
		inv[v] = int64(i)
	}
	c.forward[cacheKey] = fwd
	c.inverse[cacheKey] = inv
	return fwd, inv, nil
}

// buildPermutation derives the pseudorandom seed R and runs a
// Fisher-Yates shuffle that reuses R at every step — cryptographically
// weak, but the documented behavior this tiny-space scheme requires
// for interoperability.
func (c *Cipher) buildPermutation(derivedKey, derivedTweak []byte) ([]int64, error) {
	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("knuth: %w", err)
	}
	mode := cipher.NewCBCEncrypter(block, derivedTweak)
	ciphertext := make([]byte, aes.BlockSize)
	mode.CryptBlocks(ciphertext, []byte(constantBlock))
	r := signedBigIntFromBytes(ciphertext)

	n := c.max + 1
	a := make([]int64, n)
	for i := range a {
		a[i] = int64(i)
	}

	mod := new(big.Int)
	for i := c.max; i >= 1; i-- {
		mod.Mod(r, big.NewInt(i+1))
		j := mod.Int64()
		a[i], a[j] = a[j], a[i]
	}
	return a, nil
}

// signedBigIntFromBytes interprets b as a two's-complement big-endian
// signed integer, matching java.math.BigInteger(byte[]).
func signedBigIntFromBytes(b []byte) *big.Int {
	x := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(8*len(b)))
		x.Sub(x, mod)
	}
	return x
}
