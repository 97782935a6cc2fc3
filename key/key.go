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

// Package key holds base key material and derives sub-keys of
// arbitrary byte length for the FPE integer ciphers.
package key

import (
	"crypto/sha1"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// pbkdfSalt is the fixed 16-byte salt used for all general key derivation.
var pbkdfSalt = []byte{0x27, 0x03, 0xA2, 0x80, 0x00, 0x7F, 0x0D, 0x2B, 0xED, 0x78, 0x14, 0x5E, 0xC2, 0x65, 0x0E, 0x5B}

// pbkdfIterations is the fixed PBKDF2 iteration count for all derivations
// performed by this package.
const pbkdfIterations = 10000

// Key is an immutable holder of an original byte sequence of arbitrary
// length, plus a lazily-populated, memoized mapping from requested
// derived length to derived key bytes.
type Key struct {
	original []byte

	mu    sync.Mutex
	cache map[int][]byte
}

// New stores the supplied bytes as the base key material. A nil slice
// is rejected; an empty (zero-length) slice is permitted.
func New(b []byte) (*Key, error) {
	if b == nil {
		return nil, fmt.Errorf("key: base key material must not be nil")
	}
	original := make([]byte, len(b))
	copy(original, b)
	return &Key{original: original, cache: make(map[int][]byte)}, nil
}

// Derive returns length bytes of key material deterministically derived
// from the base key. If length equals the length of the original key,
// the original bytes are returned unchanged. Results are memoized per
// requested length.
func (k *Key) Derive(length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("key: requested derived length must not be negative: %d", length)
	}
	if length == len(k.original) {
		out := make([]byte, length)
		copy(out, k.original)
		return out, nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if cached, ok := k.cache[length]; ok {
		out := make([]byte, length)
		copy(out, cached)
		return out, nil
	}

	derived := pbkdf2.Key(k.original, pbkdfSalt, pbkdfIterations, length, sha1.New)
	k.cache[length] = derived

	out := make([]byte, length)
	copy(out, derived)
	return out, nil
}

// IsKeyLengthAllowed reports whether length bytes is a valid AES key
// length on this platform. Go's AES implementation has never been
// export-restricted, so this checks against the three sizes crypto/aes
// actually accepts (16, 24 and 32 bytes) rather than querying a
// provider's policy limit.
func IsKeyLengthAllowed(length int) bool {
	switch length {
	case 16, 24, 32:
		return true
	default:
		return false
	}
}
