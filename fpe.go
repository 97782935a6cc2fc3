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

// Package fpe provides format-preserving encryption over arbitrary
// structured domains. A MessageSpace bijects values of a domain onto a
// contiguous integer range; RankThenEncipher composes that bijection
// with an integer cipher (Knuth-shuffle, FFX, or EME2, chosen by the
// size of the domain) to encrypt and decrypt values of the domain
// itself, producing ciphertexts that are themselves valid members of
// the domain.
package fpe

import (
	"fmt"
	"math/big"

	"github.com/EVGStudents/FPE/intcipher"
	"github.com/EVGStudents/FPE/intcipher/eme2"
	"github.com/EVGStudents/FPE/intcipher/ffx"
	"github.com/EVGStudents/FPE/intcipher/knuth"
	"github.com/EVGStudents/FPE/key"
	"github.com/EVGStudents/FPE/messagespace"
)

// knuthMaxBitLength is the order bit-length at which FFX takes over;
// the tiny-space shuffle cipher is used only for orders of fewer bits.
const knuthMaxBitLength = 8

// ffxMaxBitLength is the largest order bit-length FFX addresses;
// above it EME2 takes over.
const ffxMaxBitLength = 128

// RankThenEncipher encrypts and decrypts values of a structured domain
// M by ranking them into an integer, running an integer cipher, and
// unranking the result back into M.
type RankThenEncipher[M any] struct {
	ms     messagespace.MessageSpace[M]
	cipher intcipher.Cipher
}

// New builds a RankThenEncipher over ms, selecting the integer cipher
// automatically from the bit-length of ms's order: Knuth-shuffle below
// 8 bits, FFX from 8 up to 128 bits, EME2 above 128 bits.
func New[M any](ms messagespace.MessageSpace[M]) (*RankThenEncipher[M], error) {
	if ms == nil {
		return nil, fmt.Errorf("fpe: message space must not be nil")
	}
	intMS, err := messagespace.NewIntegerMessageSpace(ms.MaxValue())
	if err != nil {
		return nil, fmt.Errorf("fpe: deriving integer message space: %w", err)
	}

	n := intMS.Order().BitLen()
	var c intcipher.Cipher
	switch {
	case n < knuthMaxBitLength:
		c, err = knuth.New(intMS)
	case n <= ffxMaxBitLength:
		c, err = ffx.New(intMS)
	default:
		c, err = eme2.New(intMS)
	}
	if err != nil {
		return nil, fmt.Errorf("fpe: constructing default integer cipher: %w", err)
	}
	return &RankThenEncipher[M]{ms: ms, cipher: c}, nil
}

// NewWithCipher builds a RankThenEncipher over ms using an explicitly
// supplied integer cipher, whose Order must exactly equal ms's order.
func NewWithCipher[M any](ms messagespace.MessageSpace[M], c intcipher.Cipher) (*RankThenEncipher[M], error) {
	if ms == nil {
		return nil, fmt.Errorf("fpe: message space must not be nil")
	}
	if c == nil {
		return nil, fmt.Errorf("fpe: cipher must not be nil")
	}
	if c.Order().Cmp(ms.Order()) != 0 {
		return nil, fmt.Errorf("fpe: cipher order %s does not match message space order %s", c.Order(), ms.Order())
	}
	return &RankThenEncipher[M]{ms: ms, cipher: c}, nil
}

// Encrypt ranks plaintext, enciphers its rank, and unranks the result.
// An OutsideMessageSpaceError from the underlying message space
// propagates unchanged.
func (r *RankThenEncipher[M]) Encrypt(plaintext M, k *key.Key, tweak []byte) (M, error) {
	return r.apply(plaintext, k, tweak, r.cipher.Encrypt)
}

// Decrypt ranks ciphertext, deciphers its rank, and unranks the
// result. An OutsideMessageSpaceError from the underlying message
// space propagates unchanged.
func (r *RankThenEncipher[M]) Decrypt(ciphertext M, k *key.Key, tweak []byte) (M, error) {
	return r.apply(ciphertext, k, tweak, r.cipher.Decrypt)
}

func (r *RankThenEncipher[M]) apply(value M, k *key.Key, tweak []byte, op func(*big.Int, *key.Key, []byte) (*big.Int, error)) (M, error) {
	var zero M
	rank, err := r.ms.Rank(value)
	if err != nil {
		return zero, err
	}
	out, err := op(rank, k, tweak)
	if err != nil {
		return zero, fmt.Errorf("fpe: %w", err)
	}
	result, err := r.ms.Unrank(out)
	if err != nil {
		return zero, err
	}
	return result, nil
}
