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

// Package intcipher defines the shared Cipher interface implemented by
// the three integer permutation ciphers (Knuth-shuffle, FFX, EME2) and
// the validation helpers common to all of them.
package intcipher

import (
	"fmt"
	"math/big"

	"github.com/EVGStudents/FPE/key"
	"github.com/EVGStudents/FPE/messagespace"
)

// Cipher encrypts and decrypts integers in [0, Order()) under a Key
// and a public tweak.
type Cipher interface {
	// Order returns the size of the integer message space this cipher
	// instance was constructed over.
	Order() *big.Int
	Encrypt(plaintext *big.Int, k *key.Key, tweak []byte) (*big.Int, error)
	Decrypt(ciphertext *big.Int, k *key.Key, tweak []byte) (*big.Int, error)
}

// ValidateInput rejects a nil or negative value as an invalid argument,
// and a value above maxValue as outside the message space: the two
// failures carry different error kinds so a caller using errors.As can
// tell a programming error from a domain-membership failure, following
// the error-handling policy that every public operation validates its
// inputs before touching cryptographic state.
func ValidateInput(value, maxValue *big.Int, name string) error {
	if value == nil {
		return fmt.Errorf("intcipher: %s must not be nil", name)
	}
	if value.Sign() < 0 {
		return fmt.Errorf("intcipher: %s (%s) must not be negative", name, value)
	}
	if value.Cmp(maxValue) > 0 {
		return &messagespace.OutsideMessageSpaceError{Value: value}
	}
	return nil
}

// BitLength returns the number of bits needed to represent n, the
// convention used throughout this package for sizing ciphers
// (bitlength(0) = 0, as in math/big.Int.BitLen).
func BitLength(n *big.Int) int {
	return n.BitLen()
}
