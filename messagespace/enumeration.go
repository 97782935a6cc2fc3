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

package messagespace

import (
	"fmt"
	"math/big"
)

// EnumerationMessageSpace ranks a fixed, ordered list of unique values
// by their position. Constructing with a list containing duplicates
// silently drops the duplicates, keeping each value's first occurrence.
type EnumerationMessageSpace[M comparable] struct {
	values []M
	index  map[M]int64
}

// NewEnumerationMessageSpace builds an enumeration from values, in
// insertion order, de-duplicated. At least one distinct value is
// required.
func NewEnumerationMessageSpace[M comparable](values []M) (*EnumerationMessageSpace[M], error) {
	es := &EnumerationMessageSpace[M]{
		values: make([]M, 0, len(values)),
		index:  make(map[M]int64, len(values)),
	}
	for _, v := range values {
		if _, ok := es.index[v]; ok {
			continue
		}
		es.index[v] = int64(len(es.values))
		es.values = append(es.values, v)
	}
	if len(es.values) == 0 {
		return nil, fmt.Errorf("messagespace: enumeration must contain at least one distinct value")
	}
	return es, nil
}

// Order returns the number of distinct values in the enumeration.
func (s *EnumerationMessageSpace[M]) Order() *big.Int {
	return big.NewInt(int64(len(s.values)))
}

// MaxValue returns Order() - 1.
func (s *EnumerationMessageSpace[M]) MaxValue() *big.Int {
	return big.NewInt(int64(len(s.values)) - 1)
}

// Rank returns v's position, looked up in amortized O(1) via the
// value-to-index map built at construction.
func (s *EnumerationMessageSpace[M]) Rank(v M) (*big.Int, error) {
	i, ok := s.index[v]
	if !ok {
		return nil, &OutsideMessageSpaceError{Value: v}
	}
	return big.NewInt(i), nil
}

// Unrank returns the value at position r.
func (s *EnumerationMessageSpace[M]) Unrank(r *big.Int) (M, error) {
	var zero M
	if r.Sign() < 0 || r.Cmp(s.MaxValue()) > 0 {
		return zero, &OutsideMessageSpaceError{Value: r}
	}
	return s.values[r.Int64()], nil
}
